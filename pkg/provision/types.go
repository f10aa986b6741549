package provision

import (
	"github.com/mscno/provisioner"
)

// Stage names, used in logs, spans, metrics and partial-failure reports.
const (
	StageRepoCreate      = "repo-create"
	StageTeamHierarchy   = "team-hierarchy-create"
	StageTopics          = "topics-set"
	StageAnalysisProject = "analysis-project-create"
	StageAnalysisToken   = "analysis-token-create"
	StageSecretToken     = "secret-write-token"
	StageSecretKey       = "secret-write-project-key"
	StageRepoDelete      = "repo-delete"
	StageSecretDelete    = "secret-delete"
	StageTeamDelete      = "team-delete"
	StageTokenRevoke     = "analysis-token-revoke"
	StageMemberAdd       = "team-member-add"
	StageMemberRemove    = "team-member-remove"
	StagePermission      = "team-permission-set"
)

// Repository status values in a multi-create report.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// CreateReposRequest provisions several repositories with the full team hierarchy.
type CreateReposRequest struct {
	Org    string   `json:"org_name" validate:"required,ghname"`
	Repos  []string `json:"repo_names" validate:"required,min=1,dive,required,ghname"`
	Topics []string `json:"topics,omitempty" validate:"dive,required"`
}

// StageError is one failed unit, attributed to a stage.
type StageError struct {
	Stage string `json:"stage"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RepositorySummary describes one repository that was created.
type RepositorySummary struct {
	Repo       string                       `json:"repo_name"`
	URL        string                       `json:"url,omitempty"`
	Status     string                       `json:"status"`
	Teams      []provisioner.TeamAssignment `json:"teams"`
	ProjectKey string                       `json:"sonar_project_key,omitempty"`
	Token      string                       `json:"sonar_token,omitempty"`
	Errors     []StageError                 `json:"errors,omitempty"`
}

// CreateReposReport aggregates a multi-create.
type CreateReposReport struct {
	ReportID string              `json:"report_id,omitempty"`
	Message  string              `json:"message"`
	Org      string              `json:"org_name"`
	Projects []RepositorySummary `json:"projects"`
	Failures []StageError        `json:"failures,omitempty"`
}

// CreateRepoRequest provisions one repository with a single caller-named team.
type CreateRepoRequest struct {
	Org        string   `json:"org_name" validate:"required,ghname"`
	Repo       string   `json:"repo_name" validate:"required,ghname"`
	Team       string   `json:"team_name" validate:"required"`
	Permission string   `json:"team_permission,omitempty" validate:"omitempty,oneof=pull triage push maintain admin"`
	Topics     []string `json:"topics,omitempty" validate:"dive,required"`
}

// CreateRepoResult is the outcome of a single create.
type CreateRepoResult struct {
	ReportID   string                     `json:"report_id,omitempty"`
	Message    string                     `json:"message"`
	Repo       string                     `json:"github_repo"`
	URL        string                     `json:"url,omitempty"`
	Team       provisioner.TeamAssignment `json:"github_team"`
	ProjectKey string                     `json:"sonar_project_key"`
	Token      string                     `json:"sonar_token"`
}

// DeleteReposRequest decommissions several repositories.
type DeleteReposRequest struct {
	Org   string   `json:"org_name" validate:"required,ghname"`
	Repos []string `json:"repo_names" validate:"required,min=1,dive,required,ghname"`
}

// DeleteRepoRequest decommissions one repository.
type DeleteRepoRequest struct {
	Org  string `json:"org_name" validate:"required,ghname"`
	Repo string `json:"repo_name" validate:"required,ghname"`
}

// DeleteResult records what was removed for one repository.
type DeleteResult struct {
	Repo       string   `json:"repo_name"`
	Repository bool     `json:"github_repo"`
	Secrets    bool     `json:"github_secrets"`
	Teams      bool     `json:"github_teams"`
	Analysis   bool     `json:"sonarqube"`
	Errors     []string `json:"errors,omitempty"`
}

// Complete reports whether every resource of the repository is gone.
func (r DeleteResult) Complete() bool {
	return r.Repository && r.Secrets && r.Teams && r.Analysis
}

// DeleteReport aggregates a multi-delete.
type DeleteReport struct {
	ReportID    string         `json:"report_id,omitempty"`
	Message     string         `json:"message"`
	Org         string         `json:"org_name"`
	Succeeded   int            `json:"succeeded"`
	Total       int            `json:"total"`
	SuccessRate float64        `json:"success_rate"`
	Details     []DeleteResult `json:"details"`
}

// RulesetRequest grows an organization ruleset's repository allow-list.
type RulesetRequest struct {
	Org     string   `json:"org_name" validate:"required,ghname"`
	Ruleset string   `json:"ruleset_name" validate:"required"`
	Repos   []string `json:"repo_names" validate:"required,min=1,dive,required,ghname"`
}

// RulesetResult reports a reconcile. Changed is false for a no-op.
type RulesetResult struct {
	ReportID     string   `json:"report_id,omitempty"`
	Message      string   `json:"message"`
	RulesetID    int64    `json:"ruleset_id"`
	Ruleset      string   `json:"ruleset_name"`
	Changed      bool     `json:"changed"`
	Added        []string `json:"added"`
	Repositories []string `json:"repositories"`
}

// TeamMembers names the users to add to or remove from one team.
type TeamMembers struct {
	Team    string   `json:"team_name" validate:"required"`
	Members []string `json:"members" validate:"required,min=1,dive,required,ghname"`
}

// MembersRequest changes the membership of several teams.
type MembersRequest struct {
	Org   string        `json:"org_name" validate:"required,ghname"`
	Teams []TeamMembers `json:"teams" validate:"required,min=1,dive"`
}

// TeamMembersResult holds per-member outcomes for one team. Data is the
// resulting membership state.
type TeamMembersResult struct {
	Team    string                        `json:"team_name"`
	Members []provisioner.Outcome[string] `json:"members"`
}

// MembersReport aggregates a membership change.
type MembersReport struct {
	ReportID string              `json:"report_id,omitempty"`
	Message  string              `json:"message"`
	Org      string              `json:"org_name"`
	Teams    []TeamMembersResult `json:"teams"`
}

// PermissionRequest sets the permission of every listed team on every listed repository.
type PermissionRequest struct {
	Org        string   `json:"org_name" validate:"required,ghname"`
	Repos      []string `json:"repo_names" validate:"required,min=1,dive,required,ghname"`
	Teams      []string `json:"team_names" validate:"required,min=1,dive,required"`
	Permission string   `json:"new_permission" validate:"required,oneof=pull triage push maintain admin"`
}

// PermissionChange is one team permission applied to one repository.
type PermissionChange struct {
	Repo       string                 `json:"repo_name"`
	Team       string                 `json:"team_slug"`
	Permission provisioner.Permission `json:"permission"`
}

// PermissionReport aggregates a permission update.
type PermissionReport struct {
	ReportID  string                                  `json:"report_id,omitempty"`
	Message   string                                  `json:"message"`
	Org       string                                  `json:"org_name"`
	Succeeded int                                     `json:"succeeded"`
	Total     int                                     `json:"total"`
	Results   []provisioner.Outcome[PermissionChange] `json:"results"`
}

// Report is implemented by every orchestration result so it can be journaled.
type Report interface {
	SetReportID(id string)
	// Redacted returns a copy without analysis tokens, for persistence.
	Redacted() any
}

func (r *CreateReposReport) SetReportID(id string) { r.ReportID = id }
func (r *CreateRepoResult) SetReportID(id string)  { r.ReportID = id }
func (r *DeleteReport) SetReportID(id string)      { r.ReportID = id }
func (r *RulesetResult) SetReportID(id string)     { r.ReportID = id }
func (r *MembersReport) SetReportID(id string)     { r.ReportID = id }
func (r *PermissionReport) SetReportID(id string)  { r.ReportID = id }

func (r *CreateReposReport) Redacted() any {
	out := *r
	out.Projects = make([]RepositorySummary, len(r.Projects))
	for i, p := range r.Projects {
		p.Token = ""
		out.Projects[i] = p
	}
	return out
}

func (r *CreateRepoResult) Redacted() any {
	out := *r
	out.Token = ""
	return out
}

func (r *DeleteReport) Redacted() any     { return *r }
func (r *RulesetResult) Redacted() any    { return *r }
func (r *MembersReport) Redacted() any    { return *r }
func (r *PermissionReport) Redacted() any { return *r }
