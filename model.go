package provisioner

// Repository names a repository on the source host.
type Repository struct {
	Org     string `json:"org"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Private bool   `json:"private"`
}

// FullName returns org/name.
func (r Repository) FullName() string {
	return r.Org + "/" + r.Name
}

// Team is a team on the source host.
type Team struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TeamAssignment is a team attached to a repository at a permission level.
type TeamAssignment struct {
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	Permission Permission `json:"permission"`
}

// PublicKey is the key a repository's secrets must be sealed with.
type PublicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// EncryptedSecret is a sealed secret ready to be stored on a repository.
type EncryptedSecret struct {
	Name           string `json:"name"`
	KeyID          string `json:"key_id"`
	EncryptedValue string `json:"encrypted_value"`
}

// Ruleset is an organization ruleset reduced to the parts this service edits.
type Ruleset struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	IncludeRepositories []string `json:"include_repositories,omitempty"`
	ExcludeRepositories []string `json:"exclude_repositories,omitempty"`
	IncludeRefs         []string `json:"include_refs,omitempty"`
	ExcludeRefs         []string `json:"exclude_refs,omitempty"`
}

// AnalysisProject is a project on the quality-analysis service.
type AnalysisProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// NewAnalysisProject derives the project for a repository name.
func NewAnalysisProject(repo string) AnalysisProject {
	return AnalysisProject{Key: ProjectKey(repo), Name: repo}
}

// AnalysisToken is a freshly generated analysis token.
type AnalysisToken struct {
	ProjectKey string `json:"project_key"`
	Name       string `json:"name"`
	Token      string `json:"token"`
}

// UserToken is a token as listed by the quality-analysis service. The value is
// never returned by a search.
type UserToken struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	ProjectKey string `json:"project_key,omitempty"`
}
