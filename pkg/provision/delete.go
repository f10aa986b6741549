package provision

import (
	"context"
	"fmt"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/fanout"
)

// DeleteRepositories decommissions every repository in req independently. An
// already absent resource counts as removed, so running it twice succeeds twice.
func (s *Service) DeleteRepositories(ctx context.Context, req DeleteReposRequest) (*DeleteReport, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	names := dedupe(req.Repos)
	outcomes := fanout.Run(ctx, s.Exec, StageRepoDelete, names, fanout.Strings,
		func(ctx context.Context, repo string) (DeleteResult, error) {
			return s.decommission(ctx, req.Org, repo), nil
		})

	report := &DeleteReport{Org: req.Org, Total: len(names), Details: make([]DeleteResult, 0, len(outcomes))}
	for _, o := range outcomes {
		result := o.Data
		if !o.Success {
			result = DeleteResult{Repo: o.ID, Errors: []string{o.Error}}
		}
		if result.Complete() {
			report.Succeeded++
		}
		report.Details = append(report.Details, result)
	}
	if report.Total > 0 {
		report.SuccessRate = float64(report.Succeeded) * 100 / float64(report.Total)
	}
	report.Message = fmt.Sprintf("Successfully deleted %d/%d projects", report.Succeeded, report.Total)
	s.Logger.Info("multi-delete finished", "org", req.Org, "succeeded", report.Succeeded, "total", report.Total)
	return report, nil
}

// DeleteRepository decommissions one repository.
func (s *Service) DeleteRepository(ctx context.Context, req DeleteRepoRequest) (*DeleteResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	result := s.decommission(ctx, req.Org, req.Repo)
	return &result, nil
}

// decommission removes the secrets, the five derived teams, the repository and
// the analysis project with its tokens. Each group is recorded on its own.
func (s *Service) decommission(ctx context.Context, org, repo string) DeleteResult {
	result := DeleteResult{Repo: repo}
	collect := func(ok bool, errs []string) bool {
		result.Errors = append(result.Errors, errs...)
		return ok
	}

	secrets := fanout.Run(ctx, s.Exec, StageSecretDelete, provisioner.SecretNames, fanout.Strings,
		func(ctx context.Context, name string) (struct{}, error) {
			return struct{}{}, provisioner.IgnoreNotFound(s.Host.DeleteSecret(ctx, org, repo, name))
		})
	result.Secrets = collect(summarize(secrets))

	teams := fanout.Run(ctx, s.Exec, StageTeamDelete, provisioner.TeamNames(repo), fanout.Strings,
		func(ctx context.Context, name string) (struct{}, error) {
			return struct{}{}, provisioner.IgnoreNotFound(s.Host.DeleteTeam(ctx, org, provisioner.TeamSlug(name)))
		})
	result.Teams = collect(summarize(teams))

	if err := provisioner.IgnoreNotFound(s.Host.DeleteRepository(ctx, org, repo)); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("repository: %v", err))
	} else {
		result.Repository = true
	}

	result.Analysis = collect(s.deleteAnalysis(ctx, repo))
	return result
}

// deleteAnalysis removes the analysis project and, only if that worked, every
// token issued for it.
func (s *Service) deleteAnalysis(ctx context.Context, repo string) (bool, []string) {
	key := provisioner.ProjectKey(repo)
	if err := provisioner.IgnoreNotFound(s.Analysis.DeleteProject(ctx, key)); err != nil {
		return false, []string{fmt.Sprintf("analysis project %s: %v", key, err)}
	}

	all, err := s.Analysis.SearchTokens(ctx)
	if err != nil {
		return false, []string{fmt.Sprintf("search analysis tokens: %v", err)}
	}
	var owned []string
	for _, t := range all {
		if provisioner.OwnsToken(key, t.Name) {
			owned = append(owned, t.Name)
		}
	}
	revoked := fanout.Run(ctx, s.Exec, StageTokenRevoke, owned, fanout.Strings,
		func(ctx context.Context, name string) (struct{}, error) {
			return struct{}{}, provisioner.IgnoreNotFound(s.Analysis.RevokeToken(ctx, name))
		})
	return summarize(revoked)
}

func summarize[T any](outcomes []provisioner.Outcome[T]) (bool, []string) {
	var errs []string
	for _, o := range outcomes {
		if !o.Success {
			errs = append(errs, fmt.Sprintf("%s: %s", o.ID, o.Error))
		}
	}
	return len(errs) == 0, errs
}
