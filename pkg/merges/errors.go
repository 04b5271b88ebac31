package merges

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/go-github/v66/github"
)

var (
	ErrUnauthorized = errors.New("github rejected the token")
	ErrForbidden    = errors.New("github denied access")
	ErrNotFound     = errors.New("github repository not found")
	ErrTransient    = errors.New("github request failed")
)

// classify wraps err with the sentinel matching its failure class. The original error stays in the
// chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: rate limited: %w", ErrTransient, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Hint returns a remediation hint for an error returned by the Source.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "check that GITHUB_TOKEN is set and has not expired"
	case errors.Is(err, ErrForbidden):
		return "the token needs the 'repo' scope for private repositories, the 'read:org' scope and membership of the owning organization"
	case errors.Is(err, ErrNotFound):
		return "the repository does not exist or the token cannot see it; check GITHUB_OWNER, GITHUB_REPO and the token scopes"
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return "github did not respond in time; the next poll will retry"
	}
	return "the next poll will retry"
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
