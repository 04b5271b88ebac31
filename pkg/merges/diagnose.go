package merges

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
)

type Diagnostic struct {
	OK      bool
	Message string
}

// Diagnose checks the token against GitHub: who it authenticates as, whether that user can see the
// owning organization and whether the repository is reachable. Findings are meant to be logged at
// startup and never stop the bot.
func (s *Source) Diagnose(ctx context.Context) []Diagnostic {
	var diagnostics []Diagnostic

	user, _, err := s.client.Users.Get(ctx, "")
	if err != nil {
		err = classify(err)
		return append(diagnostics, Diagnostic{
			Message: fmt.Sprintf("github api test failed: %v (%s)", err, Hint(err)),
		})
	}
	diagnostics = append(diagnostics, Diagnostic{
		OK:      true,
		Message: "github api connected as " + user.GetLogin(),
	})

	if !strings.EqualFold(user.GetLogin(), s.repo.Owner) {
		orgs, _, err := s.client.Organizations.List(ctx, "", &github.ListOptions{PerPage: 100})
		switch {
		case err != nil:
			err = classify(err)
			diagnostics = append(diagnostics, Diagnostic{
				Message: fmt.Sprintf("could not list organizations: %v (%s)", err, Hint(err)),
			})
		case hasOrg(orgs, s.repo.Owner):
			diagnostics = append(diagnostics, Diagnostic{
				OK:      true,
				Message: "has access to organization " + s.repo.Owner,
			})
		default:
			diagnostics = append(diagnostics, Diagnostic{
				Message: fmt.Sprintf("no access to organization %s; make sure the token has the 'read:org' scope and the user is a member", s.repo.Owner),
			})
		}
	}

	if _, _, err := s.client.Repositories.Get(ctx, s.repo.Owner, s.repo.Name); err != nil {
		err = classify(err)
		diagnostics = append(diagnostics, Diagnostic{
			Message: fmt.Sprintf("cannot read repository %s: %v (%s)", s.repo, err, Hint(err)),
		})
	} else {
		diagnostics = append(diagnostics, Diagnostic{
			OK:      true,
			Message: "repository " + s.repo.String() + " is reachable",
		})
	}
	return diagnostics
}

func hasOrg(orgs []*github.Organization, login string) bool {
	for _, org := range orgs {
		if strings.EqualFold(org.GetLogin(), login) {
			return true
		}
	}
	return false
}
