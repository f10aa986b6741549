package provision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/testutl"
)

func newService(t *testing.T) (*Service, *testutl.FakeSourceHost, *testutl.FakeAnalysis) {
	t.Helper()
	host := testutl.NewFakeSourceHost()
	analysis := testutl.NewFakeAnalysis()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(host, analysis, WithLogger(logger)), host, analysis
}

func TestCreateRepositoriesScenario(t *testing.T) {
	svc, host, analysis := newService(t)

	report, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a", "svc-b"}})
	require.NoError(t, err)

	assert.Equal(t, 2, host.CallCount("CreateRepository"))
	assert.Equal(t, 10, host.CallCount("CreateTeam"))
	assert.Equal(t, 10, host.CallCount("AddTeamRepository"))
	assert.Equal(t, 2, analysis.CallCount("CreateProject"))
	assert.Equal(t, 2, analysis.CallCount("GenerateToken"))
	assert.Equal(t, 4, host.CallCount("PutSecret"))
	assert.Equal(t, 4, host.CallCount("GetPublicKey"), "public key must be fetched for every write")

	require.Len(t, report.Projects, 2)
	assert.Empty(t, report.Failures)
	for i, repo := range []string{"svc-a", "svc-b"} {
		p := report.Projects[i]
		assert.Equal(t, repo, p.Repo)
		assert.Equal(t, StatusComplete, p.Status)
		assert.Empty(t, p.Errors)
		require.Len(t, p.Teams, 5)
		for j, team := range p.Teams {
			assert.Equal(t, provisioner.PermissionLevels[j], team.Permission)
			assert.Equal(t, provisioner.TeamName(repo, team.Permission), team.Name)
			assert.Equal(t, team.Permission, host.Grants["acme/"+team.Slug+"/"+repo])
		}
		assert.Equal(t, repo, p.ProjectKey)
		assert.NotEmpty(t, p.Token)

		token, err := host.OpenSecret("acme", repo, provisioner.SecretAnalysisToken)
		require.NoError(t, err)
		assert.Equal(t, p.Token, token)
		key, err := host.OpenSecret("acme", repo, provisioner.SecretProjectKey)
		require.NoError(t, err)
		assert.Equal(t, p.ProjectKey, key)
	}
}

func TestCreateRepositoriesPartialFailure(t *testing.T) {
	svc, host, analysis := newService(t)
	host.Fail("CreateRepository", "svc-b", &provisioner.RemoteError{Service: "github", Status: 500, Body: "boom"})

	report, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a", "svc-b", "svc-c"}})
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageError{Stage: StageRepoCreate, ID: "svc-b", Error: "github returned status 500: boom"}, report.Failures[0])

	require.Len(t, report.Projects, 2)
	assert.Equal(t, "svc-a", report.Projects[0].Repo)
	assert.Equal(t, "svc-c", report.Projects[1].Repo)
	for _, p := range report.Projects {
		assert.Equal(t, StatusComplete, p.Status)
		assert.Len(t, p.Teams, 5)
	}
	assert.Equal(t, 10, host.CallCount("CreateTeam"))
	assert.Equal(t, 2, analysis.CallCount("CreateProject"))
	_, ok := analysis.Projects["svc-b"]
	assert.False(t, ok)
}

func TestCreateRepositoriesReportsPartialRepositories(t *testing.T) {
	svc, host, analysis := newService(t)
	analysis.Fail("GenerateToken", "svc-b", errors.New("token quota exceeded"))
	host.Fail("AddTeamRepository", "svc-a-admin", errors.New("forbidden"))

	report, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a", "svc-b"}})
	require.NoError(t, err)
	require.Len(t, report.Projects, 2)

	a := report.Projects[0]
	assert.Equal(t, StatusPartial, a.Status)
	assert.Len(t, a.Teams, 4)
	require.Len(t, a.Errors, 1)
	assert.Equal(t, StageTeamHierarchy, a.Errors[0].Stage)
	assert.Equal(t, "svc-a-admin", a.Errors[0].ID)
	assert.NotEmpty(t, a.Token)

	b := report.Projects[1]
	assert.Equal(t, StatusPartial, b.Status)
	assert.Equal(t, "svc-b", b.ProjectKey)
	assert.Empty(t, b.Token)
	require.Len(t, b.Errors, 1)
	assert.Equal(t, StageError{Stage: StageAnalysisToken, ID: "svc-b", Error: "token quota exceeded"}, b.Errors[0])

	// secrets only for svc-a
	assert.Equal(t, 2, host.CallCount("PutSecret"))
	_, err = host.OpenSecret("acme", "svc-b", provisioner.SecretAnalysisToken)
	assert.ErrorIs(t, err, provisioner.ErrNotFound)
}

func TestCreateRepositoriesSecretFailureStopsProjectKey(t *testing.T) {
	svc, host, _ := newService(t)
	host.Fail("PutSecret", "svc-a/"+provisioner.SecretAnalysisToken, errors.New("rejected"))

	report, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a"}})
	require.NoError(t, err)
	require.Len(t, report.Projects, 1)
	p := report.Projects[0]
	assert.Equal(t, StatusPartial, p.Status)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, StageSecretToken, p.Errors[0].Stage)
	assert.Equal(t, 1, host.CallCount("PutSecret"))
}

func TestCreateRepositoriesTopics(t *testing.T) {
	svc, host, _ := newService(t)
	_, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a"}, Topics: []string{"go", "api"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "api"}, host.Topics["acme/svc-a"])

	_, err = svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, host.CallCount("ReplaceTopics"))
}

func TestCreateRepositoriesValidation(t *testing.T) {
	svc, host, _ := newService(t)
	for _, req := range []CreateReposRequest{
		{Org: "acme"},
		{Org: "acme", Repos: []string{}},
		{Org: "", Repos: []string{"svc-a"}},
		{Org: "acme", Repos: []string{"bad name"}},
	} {
		_, err := svc.CreateRepositories(context.Background(), req)
		assert.ErrorIs(t, err, provisioner.ErrValidation)
	}
	assert.Equal(t, 0, host.CallCount("CreateRepository"))
}

func TestTeamCreateConflictRefetches(t *testing.T) {
	svc, host, _ := newService(t)
	_, err := host.CreateTeam(context.Background(), "acme", "svc-a-push")
	require.NoError(t, err)
	host.HideTeam("svc-a-push", 1)

	teams := svc.BuildTeams(context.Background(), "acme", []string{"svc-a"})
	require.Len(t, teams, 5)
	assert.True(t, provisioner.AllSucceeded(teams))
	assert.Equal(t, 6, host.CallCount("GetTeam"), "one lookup per level plus a re-fetch after the conflict")
	assert.Equal(t, 6, host.CallCount("CreateTeam"))
}

func TestBuildTeamsExistingTeamsAreReused(t *testing.T) {
	svc, host, _ := newService(t)
	first := svc.BuildTeams(context.Background(), "acme", []string{"svc-a"})
	second := svc.BuildTeams(context.Background(), "acme", []string{"svc-a"})
	assert.True(t, provisioner.AllSucceeded(first))
	assert.True(t, provisioner.AllSucceeded(second))
	assert.Equal(t, 5, host.CallCount("CreateTeam"))
	assert.Equal(t, 10, host.CallCount("AddTeamRepository"))
}

func TestCreateRepository(t *testing.T) {
	svc, host, analysis := newService(t)

	res, err := svc.CreateRepository(context.Background(), CreateRepoRequest{Org: "acme", Repo: "My-Repo", Team: "Platform Team", Permission: "maintain"})
	require.NoError(t, err)
	assert.Equal(t, "My-Repo", res.Repo)
	assert.Equal(t, provisioner.TeamAssignment{Name: "Platform Team", Slug: "platform-team", Permission: provisioner.PermissionMaintain}, res.Team)
	assert.Equal(t, "my-repo", res.ProjectKey)
	assert.Equal(t, provisioner.PermissionMaintain, host.Grants["acme/platform-team/My-Repo"])
	_, ok := analysis.Projects["my-repo"]
	assert.True(t, ok)

	key, err := host.OpenSecret("acme", "My-Repo", provisioner.SecretProjectKey)
	require.NoError(t, err)
	assert.Equal(t, "my-repo", key)
}

func TestCreateRepositoryDefaultsToPush(t *testing.T) {
	svc, host, _ := newService(t)
	res, err := svc.CreateRepository(context.Background(), CreateRepoRequest{Org: "acme", Repo: "svc-a", Team: "devs"})
	require.NoError(t, err)
	assert.Equal(t, provisioner.PermissionPush, res.Team.Permission)
	assert.Equal(t, provisioner.PermissionPush, host.Grants["acme/devs/svc-a"])
}

func TestCreateRepositoryPropagatesFailures(t *testing.T) {
	svc, host, analysis := newService(t)
	host.Fail("CreateRepository", "svc-a", &provisioner.RemoteError{Service: "github", Status: 403, Body: "forbidden"})

	_, err := svc.CreateRepository(context.Background(), CreateRepoRequest{Org: "acme", Repo: "svc-a", Team: "devs"})
	var remote *provisioner.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 403, remote.Status)
	assert.Equal(t, 0, host.CallCount("CreateTeam"))
	assert.Equal(t, 0, analysis.CallCount("CreateProject"))

	_, err = svc.CreateRepository(context.Background(), CreateRepoRequest{Org: "acme", Repo: "svc-b", Team: "devs", Permission: "owner"})
	assert.ErrorIs(t, err, provisioner.ErrValidation)
}
