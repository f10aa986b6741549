package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/pkg/fanout"
)

// Membership states reported per member.
const (
	MemberAdded   = "added"
	MemberRemoved = "removed"
	MemberAbsent  = "absent"
)

type memberUnit struct {
	slug string
	user string
}

func (u memberUnit) id() string { return u.slug + "/" + u.user }

// AddMembers adds every listed user to its team.
func (s *Service) AddMembers(ctx context.Context, req MembersRequest) (*MembersReport, error) {
	return s.changeMembers(ctx, req, StageMemberAdd, func(ctx context.Context, u memberUnit) (string, error) {
		if err := s.Host.AddTeamMember(ctx, req.Org, u.slug, u.user); err != nil {
			return "", err
		}
		return MemberAdded, nil
	})
}

// RemoveMembers removes every listed user from its team. A user who is not a
// member is reported as absent, not as a failure.
func (s *Service) RemoveMembers(ctx context.Context, req MembersRequest) (*MembersReport, error) {
	return s.changeMembers(ctx, req, StageMemberRemove, func(ctx context.Context, u memberUnit) (string, error) {
		err := s.Host.RemoveTeamMember(ctx, req.Org, u.slug, u.user)
		switch {
		case errors.Is(err, provisioner.ErrNotFound):
			s.Logger.Warn("member not found", "team", u.slug, "user", u.user)
			return MemberAbsent, nil
		case err != nil:
			return "", err
		}
		return MemberRemoved, nil
	})
}

func (s *Service) changeMembers(ctx context.Context, req MembersRequest, stage string, fn func(context.Context, memberUnit) (string, error)) (*MembersReport, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var units []memberUnit
	for _, t := range req.Teams {
		slug := provisioner.TeamSlug(t.Team)
		for _, user := range t.Members {
			units = append(units, memberUnit{slug: slug, user: user})
		}
	}
	outcomes := fanout.Run(ctx, s.Exec, stage, units, memberUnit.id, fn)

	report := &MembersReport{Org: req.Org, Teams: make([]TeamMembersResult, 0, len(req.Teams))}
	failed, i := 0, 0
	for _, t := range req.Teams {
		result := TeamMembersResult{Team: t.Team, Members: make([]provisioner.Outcome[string], 0, len(t.Members))}
		for _, user := range t.Members {
			o := outcomes[i]
			o.ID = user
			if !o.Success {
				failed++
			}
			result.Members = append(result.Members, o)
			i++
		}
		report.Teams = append(report.Teams, result)
	}
	report.Message = fmt.Sprintf("Processed %d memberships, %d failed", len(units), failed)
	return report, nil
}
