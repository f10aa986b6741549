package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscno/provisioner"
)

func TestMembers(t *testing.T) {
	svc, host, _ := newService(t)
	_, err := host.CreateTeam(context.Background(), "acme", "svc-a-push")
	require.NoError(t, err)
	host.Fail("AddTeamMember", "svc-a-push/mallory", errors.New("blocked"))

	req := MembersRequest{Org: "acme", Teams: []TeamMembers{{Team: "svc-a-push", Members: []string{"alice", "mallory", "bob"}}}}
	report, err := svc.AddMembers(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Teams, 1)
	members := report.Teams[0].Members
	require.Len(t, members, 3)
	assert.Equal(t, provisioner.Succeeded("alice", MemberAdded), members[0])
	assert.False(t, members[1].Success)
	assert.Equal(t, "mallory", members[1].ID)
	assert.Equal(t, "bob", members[2].ID)
	assert.True(t, host.Members["acme/svc-a-push/alice"])

	report, err = svc.RemoveMembers(context.Background(), MembersRequest{Org: "acme", Teams: []TeamMembers{{Team: "svc-a-push", Members: []string{"alice", "carol"}}}})
	require.NoError(t, err)
	members = report.Teams[0].Members
	assert.Equal(t, provisioner.Succeeded("alice", MemberRemoved), members[0])
	assert.Equal(t, provisioner.Succeeded("carol", MemberAbsent), members[1])

	_, err = svc.AddMembers(context.Background(), MembersRequest{Org: "acme"})
	assert.ErrorIs(t, err, provisioner.ErrValidation)
}

func TestUpdatePermissions(t *testing.T) {
	svc, host, _ := newService(t)
	_, err := svc.CreateRepositories(context.Background(), CreateReposRequest{Org: "acme", Repos: []string{"svc-a", "svc-b"}})
	require.NoError(t, err)
	_, err = host.CreateTeam(context.Background(), "acme", "Ops Team")
	require.NoError(t, err)

	report, err := svc.UpdatePermissions(context.Background(), PermissionRequest{
		Org:        "acme",
		Repos:      []string{"svc-a", "svc-b"},
		Teams:      []string{"svc-a-pull", "Ops Team"},
		Permission: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, "svc-a/svc-a-pull", report.Results[0].ID)
	assert.Equal(t, provisioner.PermissionAdmin, host.Grants["acme/svc-a-pull/svc-a"])
	assert.Equal(t, provisioner.PermissionAdmin, host.Grants["acme/ops-team/svc-b"])

	_, err = svc.UpdatePermissions(context.Background(), PermissionRequest{Org: "acme", Repos: []string{"svc-a"}, Teams: []string{"x"}, Permission: "owner"})
	assert.ErrorIs(t, err, provisioner.ErrValidation)
}
