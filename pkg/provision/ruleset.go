package provision

import (
	"context"
	"fmt"
	"slices"

	"github.com/mscno/provisioner"
)

// DefaultBranchRef is the ref condition written when a ruleset has none.
const DefaultBranchRef = "~DEFAULT_BRANCH"

// ReconcileRuleset adds the requested repositories to a named organization
// ruleset. Repositories already on the allow-list are never removed. When every
// requested repository is already present nothing is written and Changed is false.
func (s *Service) ReconcileRuleset(ctx context.Context, req RulesetRequest) (*RulesetResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	rs, err := s.Host.FindRuleset(ctx, req.Org, req.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("resolve ruleset %q: %w", req.Ruleset, err)
	}

	updated, added := mergeRepositories(rs.IncludeRepositories, req.Repos)
	if len(updated) == 0 {
		return nil, provisioner.Validationf("ruleset %q would have no repositories", req.Ruleset)
	}
	result := &RulesetResult{
		RulesetID:    rs.ID,
		Ruleset:      rs.Name,
		Added:        added,
		Repositories: updated,
	}
	if len(added) == 0 {
		result.Message = "No new repositories to add"
		s.Logger.Info("ruleset unchanged", "org", req.Org, "ruleset", rs.Name)
		return result, nil
	}

	rs.IncludeRepositories = updated
	if len(rs.IncludeRefs) == 0 {
		rs.IncludeRefs = []string{DefaultBranchRef}
	}
	if err := s.Host.UpdateRulesetRepositories(ctx, req.Org, rs); err != nil {
		return nil, fmt.Errorf("update ruleset %q: %w", rs.Name, err)
	}
	result.Changed = true
	result.Message = fmt.Sprintf("Added %d repositories to ruleset %s", len(added), rs.Name)
	s.Logger.Info("ruleset updated", "org", req.Org, "ruleset", rs.Name, "added", added)
	return result, nil
}

// mergeRepositories returns current ∪ requested, keeping current's order and
// appending new names in request order, and requested \ current.
func mergeRepositories(current, requested []string) (updated, added []string) {
	updated = make([]string, 0, len(current)+len(requested))
	for _, r := range current {
		if r != "" && !slices.Contains(updated, r) {
			updated = append(updated, r)
		}
	}
	added = []string{}
	for _, r := range requested {
		if r == "" || slices.Contains(updated, r) {
			continue
		}
		updated = append(updated, r)
		added = append(added, r)
	}
	return updated, added
}
