package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mscno/provisioner/pkg/provision"
	"github.com/mscno/provisioner/server/stores"
)

// Journal operation names.
const (
	OpCreateRepos    = "create_repos"
	OpCreateRepo     = "create_repo"
	OpDeleteRepos    = "delete_repos"
	OpDeleteRepo     = "delete_repo"
	OpRuleset        = "update_ruleset"
	OpAddMembers     = "add_members"
	OpRemoveMembers  = "remove_members"
	OpPermission     = "update_permission"
	defaultListLimit = 50
)

func (s *Server) routes() {
	s.Handle("GET /{$}", http.HandlerFunc(s.welcome))
	s.Handle("GET /healthz", http.HandlerFunc(s.healthz))
	if s.opts.Metrics != nil {
		s.Handle("GET /metrics", s.opts.Metrics.Handler())
	}

	s.Handle("POST /api/v1/repos", handle(s, OpCreateRepos, http.StatusCreated, s.Provisioner.CreateRepositories))
	s.Handle("DELETE /api/v1/repos", handle(s, OpDeleteRepos, http.StatusOK, s.Provisioner.DeleteRepositories))
	s.Handle("POST /api/v1/repo", handle(s, OpCreateRepo, http.StatusCreated, s.Provisioner.CreateRepository))
	s.Handle("DELETE /api/v1/repo", http.HandlerFunc(s.deleteRepo))
	s.Handle("PUT /api/v1/repo_rulesets", handle(s, OpRuleset, http.StatusOK, s.Provisioner.ReconcileRuleset))
	s.Handle("PUT /api/v1/teams/members", handle(s, OpAddMembers, http.StatusOK, s.Provisioner.AddMembers))
	s.Handle("DELETE /api/v1/teams/members", handle(s, OpRemoveMembers, http.StatusOK, s.Provisioner.RemoveMembers))
	s.Handle("PUT /api/v1/repo_permission", handle(s, OpPermission, http.StatusOK, s.Provisioner.UpdatePermissions))

	s.Handle("GET /api/v1/reports", http.HandlerFunc(s.listReports))
	s.Handle("GET /api/v1/reports/{id}", http.HandlerFunc(s.getReport))
}

// handle decodes a Req, runs op and journals the report before returning it.
func handle[Req any, Resp provision.Report](s *Server, operation string, status int, op func(context.Context, Req) (Resp, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, s.Logger, err)
			return
		}
		resp, err := op(r.Context(), req)
		if err != nil {
			writeError(w, r, s.Logger, err)
			return
		}
		id := uuid.NewString()
		resp.SetReportID(id)
		if !s.record(r.Context(), id, operation, resp.Redacted()) {
			resp.SetReportID("")
		}
		writeJSON(w, status, resp)
	})
}

type deleteRepoResponse struct {
	ReportID string `json:"report_id,omitempty"`
	provision.DeleteResult
}

func (s *Server) deleteRepo(w http.ResponseWriter, r *http.Request) {
	var req provision.DeleteRepoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	result, err := s.Provisioner.DeleteRepository(r.Context(), req)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	resp := deleteRepoResponse{ReportID: uuid.NewString(), DeleteResult: *result}
	if !s.record(r.Context(), resp.ReportID, OpDeleteRepo, resp) {
		resp.ReportID = ""
	}
	writeJSON(w, http.StatusOK, resp)
}

// record journals report under id. A journal failure is only logged; the
// orchestration already happened and is still reported, without an id.
func (s *Server) record(ctx context.Context, id, operation string, report any) bool {
	entry, err := stores.NewEntry(id, operation, report)
	if err == nil {
		err = s.Journal.Append(ctx, entry)
	}
	if err != nil {
		s.Logger.ErrorContext(ctx, "journal append failed", "operation", operation, "report_id", id, "error", err)
		return false
	}
	return true
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	entry, err := s.Journal.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.Journal.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if entries == nil {
		entries = []stores.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the repository provisioning service",
		"version": s.opts.Version,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
