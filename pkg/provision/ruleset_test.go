package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscno/provisioner"
)

func TestMergeRepositories(t *testing.T) {
	updated, added := mergeRepositories([]string{"a", "b"}, []string{"b", "c", "c", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, updated)
	assert.Equal(t, []string{"c", "d"}, added)

	updated, added = mergeRepositories([]string{"a", "b"}, []string{"a"})
	assert.Equal(t, []string{"a", "b"}, updated)
	assert.Empty(t, added)

	updated, added = mergeRepositories(nil, []string{"x"})
	assert.Equal(t, []string{"x"}, updated)
	assert.Equal(t, []string{"x"}, added)
}

func TestReconcileRuleset(t *testing.T) {
	svc, host, _ := newService(t)
	host.Rulesets["acme/protect-main"] = provisioner.Ruleset{
		ID:                  42,
		Name:                "protect-main",
		IncludeRepositories: []string{"svc-a", "svc-b"},
		ExcludeRepositories: []string{"legacy"},
	}

	t.Run("grows the allow-list", func(t *testing.T) {
		res, err := svc.ReconcileRuleset(context.Background(), RulesetRequest{Org: "acme", Ruleset: "protect-main", Repos: []string{"svc-b", "svc-c"}})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, []string{"svc-c"}, res.Added)

		rs := host.Rulesets["acme/protect-main"]
		assert.ElementsMatch(t, []string{"svc-a", "svc-b", "svc-c"}, rs.IncludeRepositories)
		assert.Equal(t, []string{"legacy"}, rs.ExcludeRepositories)
		assert.Equal(t, []string{DefaultBranchRef}, rs.IncludeRefs)
	})

	t.Run("no-op skips the write", func(t *testing.T) {
		before := host.CallCount("UpdateRulesetRepositories")
		res, err := svc.ReconcileRuleset(context.Background(), RulesetRequest{Org: "acme", Ruleset: "protect-main", Repos: []string{"svc-a"}})
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Empty(t, res.Added)
		assert.Len(t, res.Repositories, 3)
		assert.Equal(t, before, host.CallCount("UpdateRulesetRepositories"))
	})

	t.Run("unknown ruleset", func(t *testing.T) {
		_, err := svc.ReconcileRuleset(context.Background(), RulesetRequest{Org: "acme", Ruleset: "nope", Repos: []string{"svc-a"}})
		assert.ErrorIs(t, err, provisioner.ErrNotFound)
	})

	t.Run("empty request", func(t *testing.T) {
		_, err := svc.ReconcileRuleset(context.Background(), RulesetRequest{Org: "acme", Ruleset: "protect-main"})
		assert.ErrorIs(t, err, provisioner.ErrValidation)
	})
}

func TestReconcileRulesetKeepsExistingRefs(t *testing.T) {
	svc, host, _ := newService(t)
	host.Rulesets["acme/release"] = provisioner.Ruleset{ID: 7, Name: "release", IncludeRefs: []string{"refs/heads/release/*"}}

	_, err := svc.ReconcileRuleset(context.Background(), RulesetRequest{Org: "acme", Ruleset: "release", Repos: []string{"svc-a"}})
	require.NoError(t, err)
	rs := host.Rulesets["acme/release"]
	assert.Equal(t, []string{"refs/heads/release/*"}, rs.IncludeRefs)
	assert.Equal(t, []string{"svc-a"}, rs.IncludeRepositories)
}
