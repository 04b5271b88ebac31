package merges

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/lmittmann/tint"
)

const (
	PageSize = 20

	DefaultBaseBranch = "main"
	DefaultHeadBranch = "development"
)

type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Event is a pull request merged from the head branch into the base branch.
type Event struct {
	ID           string
	Number       int
	Title        string
	Body         *string
	URL          string
	MergedAt     time.Time
	SourceBranch string
	TargetBranch string
}

// Source finds the latest qualifying merge on a repository. It keeps no state between calls.
type Source struct {
	client     *github.Client
	repo       Repository
	baseBranch string
	headBranch string
}

func NewSource(client *github.Client, repo Repository, baseBranch string, headBranch string) *Source {
	if baseBranch == "" {
		baseBranch = DefaultBaseBranch
	}
	if headBranch == "" {
		headBranch = DefaultHeadBranch
	}
	return &Source{
		client:     client,
		repo:       repo,
		baseBranch: baseBranch,
		headBranch: headBranch,
	}
}

// LatestQualifyingMerge returns the newest closed pull request against the base branch that was
// merged from the head branch, or nil if none of the last PageSize pull requests qualifies.
func (s *Source) LatestQualifyingMerge(ctx context.Context) (*Event, error) {
	prs, _, err := s.client.PullRequests.List(ctx, s.repo.Owner, s.repo.Name, &github.PullRequestListOptions{
		State:     "closed",
		Base:      s.baseBranch,
		Sort:      "created",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: PageSize,
		},
	})
	if err != nil {
		err = classify(err)
		slog.Debug("merges: error while listing pull requests", slog.String("repository", s.repo.String()), tint.Err(err))
		return nil, err
	}
	for _, pr := range prs {
		if pr.MergedAt == nil || pr.GetHead().GetRef() != s.headBranch {
			continue
		}
		return toEvent(pr, s.baseBranch), nil
	}
	return nil, nil
}

func toEvent(pr *github.PullRequest, baseBranch string) *Event {
	var body *string
	if b := pr.GetBody(); strings.TrimSpace(b) != "" {
		body = &b
	}
	target := pr.GetBase().GetRef()
	if target == "" {
		target = baseBranch
	}
	return &Event{
		ID:           strconv.FormatInt(pr.GetID(), 10),
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         body,
		URL:          pr.GetHTMLURL(),
		MergedAt:     pr.GetMergedAt().Time,
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: target,
	}
}
