package provisioner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTeamNames(t *testing.T) {
	names := TeamNames("svc-a")
	assert.Equal(t, []string{"svc-a-pull", "svc-a-triage", "svc-a-push", "svc-a-maintain", "svc-a-admin"}, names)

	t.Run("every derived name maps back to its level", func(t *testing.T) {
		for _, p := range PermissionLevels {
			got, ok := TeamPermission("svc-a", TeamName("svc-a", p))
			assert.True(t, ok)
			assert.Equal(t, p, got)
		}
	})

	t.Run("no other name matches", func(t *testing.T) {
		for _, name := range []string{
			"svc-a",
			"svc-a-",
			"svc-a-Pull",
			"svc-a-owner",
			"svc-a-b-pull",
			"svc-ab-pull",
			"xsvc-a-pull",
			"svc-a-pull-2",
		} {
			_, ok := TeamPermission("svc-a", name)
			assert.False(t, ok, name)
		}
	})
}

func TestProjectKey(t *testing.T) {
	assert.Equal(t, "my-repo", ProjectKey("My Repo"))
	assert.Equal(t, ProjectKey("Some Name"), ProjectKey("Some Name"))
	assert.Equal(t, "svc-a", ProjectKey("svc-a"))
	assert.Equal(t, "svc-a_analysis_token", TokenName(ProjectKey("svc-a")))
}

func TestOwnsToken(t *testing.T) {
	assert.True(t, OwnsToken("svc-a", "svc-a_analysis_token"))
	assert.True(t, OwnsToken("svc-a", "svc-a_old"))
	assert.False(t, OwnsToken("svc-a", "svc-ab_analysis_token"))
	assert.False(t, OwnsToken("svc-a", "svc-a-analysis"))
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" Maintain ")
	assert.NoError(t, err)
	assert.Equal(t, PermissionMaintain, p)

	_, err = ParsePermission("owner")
	assert.True(t, errors.Is(err, ErrValidation))

	assert.True(t, PermissionPull.Rank() < PermissionAdmin.Rank())
}

func TestMatchTeams(t *testing.T) {
	var outcomes []Outcome[TeamAssignment]
	for _, repo := range []string{"svc", "svc-a"} {
		for _, p := range PermissionLevels {
			name := TeamName(repo, p)
			outcomes = append(outcomes, Succeeded(name, TeamAssignment{Name: name, Slug: TeamSlug(name), Permission: p}))
		}
	}
	outcomes = append(outcomes, Failed[TeamAssignment]("svc-b-admin", fmt.Errorf("boom")))

	svc := MatchTeams("svc", outcomes)
	assert.Equal(t, 5, len(svc))
	for i, team := range svc {
		assert.Equal(t, PermissionLevels[i], team.Permission)
		assert.Equal(t, TeamName("svc", team.Permission), team.Name)
	}

	svcA := MatchTeams("svc-a", outcomes)
	assert.Equal(t, 5, len(svcA))

	assert.Equal(t, 0, len(MatchTeams("svc-b", outcomes)))
}

func TestOutcomeHelpers(t *testing.T) {
	outcomes := []Outcome[int]{
		Succeeded("a", 1),
		Failed[int]("b", errors.New("nope")),
		Record("c", 3, nil),
	}
	assert.Equal(t, []string{"a", "c"}, SucceededIDs(outcomes))
	assert.False(t, AllSucceeded(outcomes))
	assert.Equal(t, "nope", Index(outcomes)["b"].Error)
	assert.True(t, AllSucceeded[int](nil))
}

func TestIgnoreNotFound(t *testing.T) {
	assert.NoError(t, IgnoreNotFound(fmt.Errorf("delete repo: %w", ErrNotFound)))
	err := &RemoteError{Service: "github", Status: 500, Body: "oops"}
	assert.Equal(t, error(err), IgnoreNotFound(err))
	assert.Equal(t, "github returned status 500: oops", err.Error())
}
