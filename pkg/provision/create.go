package provision

import (
	"context"
	"fmt"
	"slices"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/fanout"
)

// CreateRepositories provisions every repository in req. Stages run in a fixed
// order and each one fans out across the repositories still eligible for it: a
// repository drops out of later stages as soon as a stage it depends on fails.
// Per-repository failures are folded into the report; the returned error is only
// ever a validation error.
func (s *Service) CreateRepositories(ctx context.Context, req CreateReposRequest) (*CreateReposReport, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	org := req.Org
	names := dedupe(req.Repos)

	repos := fanout.Run(ctx, s.Exec, StageRepoCreate, names, fanout.Strings,
		func(ctx context.Context, name string) (provisioner.Repository, error) {
			return s.Host.CreateRepository(ctx, org, name)
		})
	created := provisioner.SucceededIDs(repos)

	teams := s.BuildTeams(ctx, org, created)

	var topics []provisioner.Outcome[struct{}]
	if len(req.Topics) > 0 {
		topics = fanout.Run(ctx, s.Exec, StageTopics, created, fanout.Strings,
			func(ctx context.Context, repo string) (struct{}, error) {
				return struct{}{}, s.Host.ReplaceTopics(ctx, org, repo, req.Topics)
			})
	}

	projects := fanout.Run(ctx, s.Exec, StageAnalysisProject, created, fanout.Strings,
		func(ctx context.Context, repo string) (provisioner.AnalysisProject, error) {
			p := provisioner.NewAnalysisProject(repo)
			return p, s.Analysis.CreateProject(ctx, p)
		})

	projectByRepo := provisioner.Index(projects)
	tokens := fanout.Run(ctx, s.Exec, StageAnalysisToken, provisioner.SucceededIDs(projects), fanout.Strings,
		func(ctx context.Context, repo string) (provisioner.AnalysisToken, error) {
			return s.Analysis.GenerateToken(ctx, projectByRepo[repo].Data.Key)
		})

	tokenByRepo := provisioner.Index(tokens)
	tokenSecrets := fanout.Run(ctx, s.Exec, StageSecretToken, provisioner.SucceededIDs(tokens), fanout.Strings,
		func(ctx context.Context, repo string) (struct{}, error) {
			return struct{}{}, s.writeSecret(ctx, org, repo, provisioner.SecretAnalysisToken, tokenByRepo[repo].Data.Token)
		})

	keySecrets := fanout.Run(ctx, s.Exec, StageSecretKey, provisioner.SucceededIDs(tokenSecrets), fanout.Strings,
		func(ctx context.Context, repo string) (struct{}, error) {
			return struct{}{}, s.writeSecret(ctx, org, repo, provisioner.SecretProjectKey, tokenByRepo[repo].Data.ProjectKey)
		})

	report := &CreateReposReport{
		Message:  "Multi-project setup completed",
		Org:      org,
		Projects: make([]RepositorySummary, 0, len(created)),
	}
	stages := stageIndex{
		StageTopics:          failures(topics),
		StageAnalysisProject: failures(projects),
		StageAnalysisToken:   failures(tokens),
		StageSecretToken:     failures(tokenSecrets),
		StageSecretKey:       failures(keySecrets),
	}
	teamFailures := failures(teams)

	for _, repo := range repos {
		if !repo.Success {
			report.Failures = append(report.Failures, StageError{Stage: StageRepoCreate, ID: repo.ID, Error: repo.Error})
			continue
		}
		summary := RepositorySummary{
			Repo:  repo.ID,
			URL:   repo.Data.URL,
			Teams: provisioner.MatchTeams(repo.ID, teams),
		}
		for _, name := range provisioner.TeamNames(repo.ID) {
			if msg, ok := teamFailures[name]; ok {
				summary.Errors = append(summary.Errors, StageError{Stage: StageTeamHierarchy, ID: name, Error: msg})
			}
		}
		summary.Errors = append(summary.Errors, stages.errorsFor(repo.ID)...)
		if p := projectByRepo[repo.ID]; p.Success {
			summary.ProjectKey = p.Data.Key
		}
		if t := tokenByRepo[repo.ID]; t.Success {
			summary.Token = t.Data.Token
		}
		summary.Status = StatusComplete
		if len(summary.Errors) > 0 {
			summary.Status = StatusPartial
		}
		report.Projects = append(report.Projects, summary)
	}

	s.Logger.Info("multi-create finished", "org", org, "requested", len(names), "created", len(created), "failed", len(report.Failures))
	return report, nil
}

// CreateRepository provisions a single repository with one caller-named team.
// Any failure stops the sequence and is returned.
func (s *Service) CreateRepository(ctx context.Context, req CreateRepoRequest) (*CreateRepoResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	perm := provisioner.PermissionPush
	if req.Permission != "" {
		p, err := provisioner.ParsePermission(req.Permission)
		if err != nil {
			return nil, err
		}
		perm = p
	}
	org := req.Org

	repo, err := s.Host.CreateRepository(ctx, org, req.Repo)
	if err != nil {
		return nil, fmt.Errorf("create repository %s: %w", req.Repo, err)
	}
	s.Logger.Info("repository created", "org", org, "repo", repo.Name)

	team, err := s.attachTeam(ctx, org, req.Repo, req.Team, perm)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("team attached", "repo", req.Repo, "team", team.Slug, "permission", perm)

	if len(req.Topics) > 0 {
		if err := s.Host.ReplaceTopics(ctx, org, req.Repo, req.Topics); err != nil {
			return nil, fmt.Errorf("set topics: %w", err)
		}
	}

	project := provisioner.NewAnalysisProject(req.Repo)
	if err := s.Analysis.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create analysis project %s: %w", project.Key, err)
	}
	token, err := s.Analysis.GenerateToken(ctx, project.Key)
	if err != nil {
		return nil, fmt.Errorf("generate analysis token: %w", err)
	}
	if err := s.writeAnalysisSecrets(ctx, org, req.Repo, token); err != nil {
		return nil, err
	}
	s.Logger.Info("analysis secrets stored", "repo", req.Repo, "project", project.Key)

	return &CreateRepoResult{
		Message:    "Project setup completed successfully",
		Repo:       repo.Name,
		URL:        repo.URL,
		Team:       team,
		ProjectKey: project.Key,
		Token:      token.Token,
	}, nil
}

// stageIndex maps stage name to the failures of that stage, keyed by repository.
type stageIndex map[string]map[string]string

var reportedStages = []string{StageTopics, StageAnalysisProject, StageAnalysisToken, StageSecretToken, StageSecretKey}

func (idx stageIndex) errorsFor(repo string) []StageError {
	var out []StageError
	for _, stage := range reportedStages {
		if msg, ok := idx[stage][repo]; ok {
			out = append(out, StageError{Stage: stage, ID: repo, Error: msg})
		}
	}
	return out
}

func failures[T any](outcomes []provisioner.Outcome[T]) map[string]string {
	m := make(map[string]string)
	for _, o := range outcomes {
		if !o.Success {
			m[o.ID] = o.Error
		}
	}
	return m
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
