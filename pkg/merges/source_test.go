package merges

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(NewHTTPClient(5*time.Second), "test-token", srv.URL)
	require.NoError(t, err)
	return NewSource(client, Repository{Owner: "acme", Name: "game"}, "", "")
}

func TestLatestQualifyingMerge(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/game/pulls", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "closed", q.Get("state"))
		assert.Equal(t, "main", q.Get("base"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		fmt.Fprint(w, `[
			{"id": 3, "number": 14, "title": "Closed without merge", "merged_at": null,
			 "head": {"ref": "development"}, "base": {"ref": "main"}},
			{"id": 2, "number": 13, "title": "Hotfix", "merged_at": "2024-05-02T10:00:00Z",
			 "head": {"ref": "hotfix/crash"}, "base": {"ref": "main"}},
			{"id": 1, "number": 12, "title": "Add caching", "body": "- faster lookups",
			 "merged_at": "2024-05-01T10:00:00Z", "html_url": "https://github.com/acme/game/pull/12",
			 "head": {"ref": "development"}, "base": {"ref": "main"}},
			{"id": 0, "number": 11, "title": "Older release", "merged_at": "2024-04-01T10:00:00Z",
			 "head": {"ref": "development"}, "base": {"ref": "main"}}
		]`)
	})

	event, err := source.LatestQualifyingMerge(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, "1", event.ID)
	assert.Equal(t, 12, event.Number)
	assert.Equal(t, "Add caching", event.Title)
	require.NotNil(t, event.Body)
	assert.Equal(t, "- faster lookups", *event.Body)
	assert.Equal(t, "https://github.com/acme/game/pull/12", event.URL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), event.MergedAt.UTC())
	assert.Equal(t, "development", event.SourceBranch)
	assert.Equal(t, "main", event.TargetBranch)
}

func TestLatestQualifyingMerge_EmptyBodyIsAbsent(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 100, "number": 12, "title": "Fix login", "body": "  ",
			"merged_at": "2024-05-01T10:00:00Z", "head": {"ref": "development"}, "base": {"ref": "main"}}]`)
	})

	event, err := source.LatestQualifyingMerge(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Nil(t, event.Body)
}

func TestLatestQualifyingMerge_NoneQualifies(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 3, "number": 14, "merged_at": null, "head": {"ref": "development"}},
			{"id": 2, "number": 13, "merged_at": "2024-05-02T10:00:00Z", "head": {"ref": "feature/x"}}
		]`)
	})

	event, err := source.LatestQualifyingMerge(context.Background())
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestLatestQualifyingMerge_CustomBranches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "release", r.URL.Query().Get("base"))
		fmt.Fprint(w, `[{"id": 9, "number": 2, "merged_at": "2024-05-02T10:00:00Z",
			"head": {"ref": "staging"}, "base": {"ref": "release"}}]`)
	}))
	defer srv.Close()
	client, err := NewGitHubClient(NewHTTPClient(0), "", srv.URL)
	require.NoError(t, err)

	source := NewSource(client, Repository{Owner: "acme", Name: "game"}, "release", "staging")
	event, err := source.LatestQualifyingMerge(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "9", event.ID)
	assert.Equal(t, "staging", event.SourceBranch)
	assert.Equal(t, "release", event.TargetBranch)
}

func TestLatestQualifyingMerge_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: ErrForbidden},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, want: ErrTransient},
		{
			name:   "rate limited",
			status: http.StatusForbidden,
			header: map[string]string{
				"X-RateLimit-Limit":     "5000",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprint(time.Now().Add(time.Hour).Unix()),
			},
			want: ErrTransient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message": "nope"}`)
			})

			event, err := source.LatestQualifyingMerge(context.Background())
			require.Error(t, err)
			assert.Nil(t, event)
			assert.ErrorIs(t, err, tt.want)
			for _, other := range []error{ErrUnauthorized, ErrForbidden, ErrNotFound, ErrTransient} {
				if other != tt.want {
					assert.NotErrorIs(t, err, other)
				}
			}
		})
	}
}

func TestLatestQualifyingMerge_KeepsOriginalError(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	_, err := source.LatestQualifyingMerge(context.Background())
	var respErr *github.ErrorResponse
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusNotFound, respErr.Response.StatusCode)
}

func TestLatestQualifyingMerge_NetworkFailure(t *testing.T) {
	client, err := NewGitHubClient(NewHTTPClient(time.Second), "", "http://127.0.0.1:1")
	require.NoError(t, err)
	source := NewSource(client, Repository{Owner: "acme", Name: "game"}, "", "")

	_, err = source.LatestQualifyingMerge(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestHint(t *testing.T) {
	assert.Contains(t, Hint(fmt.Errorf("x: %w", ErrUnauthorized)), "GITHUB_TOKEN")
	assert.Contains(t, Hint(fmt.Errorf("x: %w", ErrForbidden)), "read:org")
	assert.Contains(t, Hint(fmt.Errorf("x: %w", ErrNotFound)), "GITHUB_REPO")
	assert.Contains(t, Hint(context.DeadlineExceeded), "in time")
	assert.Equal(t, "the next poll will retry", Hint(errors.New("boom")))
}

func TestDiagnose(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login": "octocat"}`)
	})
	mux.HandleFunc("/user/orgs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"login": "other"}]`)
	})
	mux.HandleFunc("/repos/acme/game", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name": "acme/game"}`)
	})
	source := newTestSource(t, mux.ServeHTTP)

	diagnostics := source.Diagnose(context.Background())
	require.Len(t, diagnostics, 3)
	assert.True(t, diagnostics[0].OK)
	assert.Contains(t, diagnostics[0].Message, "octocat")
	assert.False(t, diagnostics[1].OK)
	assert.Contains(t, diagnostics[1].Message, "no access to organization acme")
	assert.True(t, diagnostics[2].OK)
}

func TestDiagnose_BadToken(t *testing.T) {
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	})

	diagnostics := source.Diagnose(context.Background())
	require.Len(t, diagnostics, 1)
	assert.False(t, diagnostics[0].OK)
	assert.Contains(t, diagnostics[0].Message, "GITHUB_TOKEN")
}
