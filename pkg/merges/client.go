package merges

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

const (
	DefaultTimeout = 15 * time.Second

	userAgent = "patchnotes-bot"
)

// NewHTTPClient returns the client used for every GitHub call. The timeout bounds a whole request,
// so a hung connection cannot stall a poll cycle.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTripper{tripper: http.DefaultTransport},
	}
}

type userAgentTripper struct {
	tripper http.RoundTripper
}

func (t *userAgentTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.tripper.RoundTrip(req)
}

// NewGitHubClient builds an authenticated GitHub client. apiURL is optional and only needed for
// GitHub Enterprise or tests.
func NewGitHubClient(httpClient *http.Client, token string, apiURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("merges: invalid api url %q: %w", apiURL, err)
		}
		client.BaseURL = u
	}
	return client, nil
}
