package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/fanout"
)

type teamUnit struct {
	repo  string
	level provisioner.Permission
}

func (u teamUnit) name() string { return provisioner.TeamName(u.repo, u.level) }

// ensureTeam gets the team by slug, creating it when missing. A conflict on
// create means another caller won the race, so the team is fetched again.
func (s *Service) ensureTeam(ctx context.Context, org, name string) (provisioner.Team, error) {
	slug := provisioner.TeamSlug(name)
	team, err := s.Host.GetTeam(ctx, org, slug)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, provisioner.ErrNotFound) {
		return provisioner.Team{}, fmt.Errorf("get team %s: %w", slug, err)
	}

	team, err = s.Host.CreateTeam(ctx, org, name)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, provisioner.ErrConflict) {
		return provisioner.Team{}, fmt.Errorf("create team %s: %w", name, err)
	}
	team, err = s.Host.GetTeam(ctx, org, slug)
	if err != nil {
		return provisioner.Team{}, fmt.Errorf("get team %s after conflict: %w", slug, err)
	}
	return team, nil
}

// attachTeam ensures the team exists and grants it p on repo. The grant always
// overwrites whatever the team had before.
func (s *Service) attachTeam(ctx context.Context, org, repo, name string, p provisioner.Permission) (provisioner.TeamAssignment, error) {
	team, err := s.ensureTeam(ctx, org, name)
	if err != nil {
		return provisioner.TeamAssignment{}, err
	}
	slug := team.Slug
	if slug == "" {
		slug = provisioner.TeamSlug(name)
	}
	if err := s.Host.AddTeamRepository(ctx, org, slug, repo, p); err != nil {
		return provisioner.TeamAssignment{}, fmt.Errorf("attach %s to %s: %w", slug, repo, err)
	}
	return provisioner.TeamAssignment{Name: name, Slug: slug, Permission: p}, nil
}

// BuildTeams creates the five permission teams of every repository and attaches
// each to its repository. The result is flat: one record per team, identified by
// team name, grouped by repository in input order and by level within a repository.
// Use provisioner.MatchTeams to recover a repository's teams.
func (s *Service) BuildTeams(ctx context.Context, org string, repos []string) []provisioner.Outcome[provisioner.TeamAssignment] {
	units := make([]teamUnit, 0, len(repos)*len(provisioner.PermissionLevels))
	for _, repo := range repos {
		for _, level := range provisioner.PermissionLevels {
			units = append(units, teamUnit{repo: repo, level: level})
		}
	}
	return fanout.Run(ctx, s.Exec, StageTeamHierarchy, units, teamUnit.name,
		func(ctx context.Context, u teamUnit) (provisioner.TeamAssignment, error) {
			return s.attachTeam(ctx, org, u.repo, u.name(), u.level)
		})
}
