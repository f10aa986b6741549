package githubapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v71/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscno/provisioner"
)

func setup(t *testing.T) (*SourceHost, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u
	return NewSourceHost(client, "Acer-Sandbox", "repo-template", slog.New(slog.NewTextHandler(io.Discard, nil))), mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateRepository(t *testing.T) {
	host, mux := setup(t)
	mux.HandleFunc("POST /repos/Acer-Sandbox/repo-template/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc-a", body["name"])
		assert.Equal(t, "acme", body["owner"])
		assert.Equal(t, true, body["private"])
		writeJSON(w, http.StatusCreated, map[string]any{"name": "svc-a", "html_url": "https://github.com/acme/svc-a", "private": true})
	})

	repo, err := host.CreateRepository(context.Background(), "acme", "svc-a")
	require.NoError(t, err)
	assert.Equal(t, provisioner.Repository{Org: "acme", Name: "svc-a", URL: "https://github.com/acme/svc-a", Private: true}, repo)
}

func TestStatusMapping(t *testing.T) {
	host, mux := setup(t)
	mux.HandleFunc("DELETE /repos/acme/gone", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})
	mux.HandleFunc("DELETE /repos/acme/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "kaboom"})
	})
	mux.HandleFunc("POST /orgs/acme/teams", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "closed", body["privacy"])
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]any{{"message": "Name must be unique for this org"}},
		})
	})

	err := host.DeleteRepository(context.Background(), "acme", "gone")
	assert.True(t, errors.Is(err, provisioner.ErrNotFound))
	assert.NoError(t, provisioner.IgnoreNotFound(err))

	err = host.DeleteRepository(context.Background(), "acme", "broken")
	var remote *provisioner.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusInternalServerError, remote.Status)
	assert.Equal(t, "kaboom", remote.Body)

	_, err = host.CreateTeam(context.Background(), "acme", "svc-a-pull")
	assert.True(t, errors.Is(err, provisioner.ErrConflict))
	assert.Contains(t, err.Error(), "unique")
}

func TestTeams(t *testing.T) {
	host, mux := setup(t)
	mux.HandleFunc("GET /orgs/acme/teams/svc-a-pull", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": "svc-a-pull", "slug": "svc-a-pull"})
	})
	mux.HandleFunc("PUT /orgs/acme/teams/svc-a-pull/repos/acme/svc-a", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pull", body["permission"])
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /orgs/acme/teams/svc-a-pull/memberships/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"role": "member", "state": "active"})
	})
	mux.HandleFunc("DELETE /orgs/acme/teams/svc-a-pull/memberships/ghost", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})

	team, err := host.GetTeam(context.Background(), "acme", "svc-a-pull")
	require.NoError(t, err)
	assert.Equal(t, provisioner.Team{ID: 7, Name: "svc-a-pull", Slug: "svc-a-pull"}, team)

	require.NoError(t, host.AddTeamRepository(context.Background(), "acme", "svc-a-pull", "svc-a", provisioner.PermissionPull))
	require.NoError(t, host.AddTeamMember(context.Background(), "acme", "svc-a-pull", "octocat"))
	assert.True(t, errors.Is(host.RemoveTeamMember(context.Background(), "acme", "svc-a-pull", "ghost"), provisioner.ErrNotFound))
}

func TestSecrets(t *testing.T) {
	host, mux := setup(t)
	mux.HandleFunc("GET /repos/acme/svc-a/actions/secrets/public-key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"key_id": "k1", "key": "AAAA"})
	})
	mux.HandleFunc("PUT /repos/acme/svc-a/actions/secrets/SONAR_TOKEN", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "k1", body["key_id"])
		assert.Equal(t, "c2VhbGVk", body["encrypted_value"])
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("DELETE /repos/acme/svc-a/actions/secrets/SONAR_PROJECT_KEY", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /repos/acme/svc-a/topics", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"go", "service"}, body["names"])
		writeJSON(w, http.StatusOK, body)
	})

	key, err := host.GetPublicKey(context.Background(), "acme", "svc-a")
	require.NoError(t, err)
	assert.Equal(t, provisioner.PublicKey{KeyID: "k1", Key: "AAAA"}, key)

	require.NoError(t, host.PutSecret(context.Background(), "acme", "svc-a", provisioner.EncryptedSecret{
		Name: provisioner.SecretAnalysisToken, KeyID: "k1", EncryptedValue: "c2VhbGVk",
	}))
	require.NoError(t, host.DeleteSecret(context.Background(), "acme", "svc-a", provisioner.SecretProjectKey))
	require.NoError(t, host.ReplaceTopics(context.Background(), "acme", "svc-a", []string{"go", "service"}))
}

func TestRulesets(t *testing.T) {
	host, mux := setup(t)
	mux.HandleFunc("GET /orgs/acme/rulesets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "other"}, {"id": 42, "name": "protect-main"}})
	})
	mux.HandleFunc("GET /orgs/acme/rulesets/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":   42,
			"name": "protect-main",
			"conditions": map[string]any{
				"ref_name":        map[string]any{"include": []string{"refs/heads/main"}, "exclude": []string{}},
				"repository_name": map[string]any{"include": []string{"svc-a"}, "exclude": []string{"legacy"}},
			},
		})
	})
	mux.HandleFunc("PUT /orgs/acme/rulesets/42", func(w http.ResponseWriter, r *http.Request) {
		var body rulesetUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"refs/heads/main"}, body.Conditions.RefName.Include)
		assert.Equal(t, []string{}, body.Conditions.RefName.Exclude)
		assert.Equal(t, []string{"svc-a", "svc-b"}, body.Conditions.RepositoryName.Include)
		assert.Equal(t, []string{"legacy"}, body.Conditions.RepositoryName.Exclude)
		writeJSON(w, http.StatusOK, map[string]any{"id": 42})
	})

	rs, err := host.FindRuleset(context.Background(), "acme", "protect-main")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rs.ID)
	assert.Equal(t, []string{"svc-a"}, rs.IncludeRepositories)
	assert.Equal(t, []string{"legacy"}, rs.ExcludeRepositories)

	rs.IncludeRepositories = []string{"svc-a", "svc-b"}
	require.NoError(t, host.UpdateRulesetRepositories(context.Background(), "acme", rs))

	_, err = host.FindRuleset(context.Background(), "acme", "missing")
	assert.True(t, errors.Is(err, provisioner.ErrNotFound))
}
