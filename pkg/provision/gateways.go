package provision

import (
	"context"

	"github.com/mscno/provisioner"
)

// SourceHost is the source hosting capability the orchestrators drive.
// Implementations report a missing resource as provisioner.ErrNotFound and a
// duplicate team as provisioner.ErrConflict.
type SourceHost interface {
	CreateRepository(ctx context.Context, org, name string) (provisioner.Repository, error)
	DeleteRepository(ctx context.Context, org, name string) error

	GetTeam(ctx context.Context, org, slug string) (provisioner.Team, error)
	CreateTeam(ctx context.Context, org, name string) (provisioner.Team, error)
	DeleteTeam(ctx context.Context, org, slug string) error
	AddTeamRepository(ctx context.Context, org, slug, repo string, p provisioner.Permission) error
	AddTeamMember(ctx context.Context, org, slug, user string) error
	RemoveTeamMember(ctx context.Context, org, slug, user string) error

	GetPublicKey(ctx context.Context, org, repo string) (provisioner.PublicKey, error)
	PutSecret(ctx context.Context, org, repo string, secret provisioner.EncryptedSecret) error
	DeleteSecret(ctx context.Context, org, repo, name string) error

	ReplaceTopics(ctx context.Context, org, repo string, topics []string) error

	FindRuleset(ctx context.Context, org, name string) (provisioner.Ruleset, error)
	UpdateRulesetRepositories(ctx context.Context, org string, rs provisioner.Ruleset) error
}

// QualityAnalysis is the quality-analysis capability the orchestrators drive.
type QualityAnalysis interface {
	CreateProject(ctx context.Context, p provisioner.AnalysisProject) error
	DeleteProject(ctx context.Context, key string) error
	GenerateToken(ctx context.Context, projectKey string) (provisioner.AnalysisToken, error)
	RevokeToken(ctx context.Context, name string) error
	SearchTokens(ctx context.Context) ([]provisioner.UserToken, error)
}

// Sealer encrypts a secret value for a base64 public key.
type Sealer interface {
	Seal(publicKey string, plaintext []byte) (string, error)
}
