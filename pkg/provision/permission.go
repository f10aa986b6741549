package provision

import (
	"context"
	"fmt"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/fanout"
)

// UpdatePermissions grants every listed team the requested permission on every
// listed repository, overwriting previous grants.
func (s *Service) UpdatePermissions(ctx context.Context, req PermissionRequest) (*PermissionReport, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	perm, err := provisioner.ParsePermission(req.Permission)
	if err != nil {
		return nil, err
	}

	var units []PermissionChange
	for _, repo := range dedupe(req.Repos) {
		for _, team := range dedupe(req.Teams) {
			units = append(units, PermissionChange{Repo: repo, Team: provisioner.TeamSlug(team), Permission: perm})
		}
	}
	results := fanout.Run(ctx, s.Exec, StagePermission, units,
		func(c PermissionChange) string { return c.Repo + "/" + c.Team },
		func(ctx context.Context, c PermissionChange) (PermissionChange, error) {
			return c, s.Host.AddTeamRepository(ctx, req.Org, c.Team, c.Repo, c.Permission)
		})

	report := &PermissionReport{Org: req.Org, Total: len(results), Results: results}
	report.Succeeded = len(provisioner.SucceededIDs(results))
	report.Message = fmt.Sprintf("Set %s on %d/%d team grants", perm, report.Succeeded, report.Total)
	return report, nil
}
