package githubapp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mscno/provisioner"
)

// Organization rulesets are read and written through raw requests so that only
// the fields this service edits need to round-trip.

type orgRuleset struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Conditions *rulesetConditions `json:"conditions,omitempty"`
}

type rulesetConditions struct {
	RefName        *nameCondition `json:"ref_name,omitempty"`
	RepositoryName *nameCondition `json:"repository_name,omitempty"`
}

type nameCondition struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type rulesetUpdate struct {
	Conditions rulesetConditions `json:"conditions"`
}

// FindRuleset resolves an organization ruleset by name and returns it with its
// conditions. provisioner.ErrNotFound is returned when no ruleset has that name.
func (s *SourceHost) FindRuleset(ctx context.Context, org, name string) (provisioner.Ruleset, error) {
	for page := 1; page != 0; {
		req, err := s.Client.NewRequest(http.MethodGet, fmt.Sprintf("orgs/%v/rulesets?per_page=100&page=%d", org, page), nil)
		if err != nil {
			return provisioner.Ruleset{}, err
		}
		var list []orgRuleset
		resp, err := s.Client.Do(ctx, req, &list)
		if err != nil {
			return provisioner.Ruleset{}, mapError(resp, err)
		}
		for _, rs := range list {
			if rs.Name == name {
				return s.GetRuleset(ctx, org, rs.ID)
			}
		}
		page = resp.NextPage
	}
	return provisioner.Ruleset{}, fmt.Errorf("ruleset %q in %s: %w", name, org, provisioner.ErrNotFound)
}

// GetRuleset fetches one organization ruleset by id.
func (s *SourceHost) GetRuleset(ctx context.Context, org string, id int64) (provisioner.Ruleset, error) {
	req, err := s.Client.NewRequest(http.MethodGet, fmt.Sprintf("orgs/%v/rulesets/%d", org, id), nil)
	if err != nil {
		return provisioner.Ruleset{}, err
	}
	var rs orgRuleset
	resp, err := s.Client.Do(ctx, req, &rs)
	if err != nil {
		return provisioner.Ruleset{}, mapError(resp, err)
	}
	out := provisioner.Ruleset{ID: rs.ID, Name: rs.Name}
	if c := rs.Conditions; c != nil {
		if c.RefName != nil {
			out.IncludeRefs = c.RefName.Include
			out.ExcludeRefs = c.RefName.Exclude
		}
		if c.RepositoryName != nil {
			out.IncludeRepositories = c.RepositoryName.Include
			out.ExcludeRepositories = c.RepositoryName.Exclude
		}
	}
	return out, nil
}

// UpdateRulesetRepositories replaces the ruleset's ref and repository-name
// conditions with the ones carried by rs.
func (s *SourceHost) UpdateRulesetRepositories(ctx context.Context, org string, rs provisioner.Ruleset) error {
	body := rulesetUpdate{Conditions: rulesetConditions{
		RefName: &nameCondition{
			Include: nonNil(rs.IncludeRefs),
			Exclude: nonNil(rs.ExcludeRefs),
		},
		RepositoryName: &nameCondition{
			Include: nonNil(rs.IncludeRepositories),
			Exclude: nonNil(rs.ExcludeRepositories),
		},
	}}
	req, err := s.Client.NewRequest(http.MethodPut, fmt.Sprintf("orgs/%v/rulesets/%d", org, rs.ID), body)
	if err != nil {
		return err
	}
	resp, err := s.Client.Do(ctx, req, nil)
	if err != nil {
		return mapError(resp, err)
	}
	s.Logger.Debug("ruleset updated", "org", org, "ruleset", rs.Name, "repositories", len(rs.IncludeRepositories))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
