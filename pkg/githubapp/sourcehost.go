package githubapp

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v71/github"

	"github.com/mscno/provisioner"
)

// DefaultTeamPrivacy is the privacy of teams created by SourceHost.
const DefaultTeamPrivacy = "closed"

// SourceHost implements the source hosting gateway on top of go-github.
type SourceHost struct {
	Client        *github.Client
	TemplateOwner string
	TemplateRepo  string
	TeamPrivacy   string
	Logger        *slog.Logger
}

// NewSourceHost returns a gateway creating repositories from templateOwner/templateRepo.
func NewSourceHost(client *github.Client, templateOwner, templateRepo string, logger *slog.Logger) *SourceHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceHost{
		Client:        client,
		TemplateOwner: templateOwner,
		TemplateRepo:  templateRepo,
		TeamPrivacy:   DefaultTeamPrivacy,
		Logger:        logger,
	}
}

// CreateRepository generates a private repository org/name from the template.
func (s *SourceHost) CreateRepository(ctx context.Context, org, name string) (provisioner.Repository, error) {
	repo, resp, err := s.Client.Repositories.CreateFromTemplate(ctx, s.TemplateOwner, s.TemplateRepo, &github.TemplateRepoRequest{
		Name:    github.Ptr(name),
		Owner:   github.Ptr(org),
		Private: github.Ptr(true),
	})
	if err != nil {
		return provisioner.Repository{}, mapError(resp, err)
	}
	s.Logger.Debug("repository created", "org", org, "repo", name)
	return provisioner.Repository{
		Org:     org,
		Name:    repo.GetName(),
		URL:     repo.GetHTMLURL(),
		Private: repo.GetPrivate(),
	}, nil
}

// DeleteRepository removes org/name.
func (s *SourceHost) DeleteRepository(ctx context.Context, org, name string) error {
	resp, err := s.Client.Repositories.Delete(ctx, org, name)
	return mapError(resp, err)
}

// GetTeam looks a team up by slug.
func (s *SourceHost) GetTeam(ctx context.Context, org, slug string) (provisioner.Team, error) {
	team, resp, err := s.Client.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		return provisioner.Team{}, mapError(resp, err)
	}
	return toTeam(team), nil
}

// CreateTeam creates a team named name. A 422 is reported as provisioner.ErrConflict.
func (s *SourceHost) CreateTeam(ctx context.Context, org, name string) (provisioner.Team, error) {
	privacy := s.TeamPrivacy
	if privacy == "" {
		privacy = DefaultTeamPrivacy
	}
	team, resp, err := s.Client.Teams.CreateTeam(ctx, org, github.NewTeam{
		Name:    name,
		Privacy: github.Ptr(privacy),
	})
	if err != nil {
		return provisioner.Team{}, mapCreateError(resp, err)
	}
	s.Logger.Debug("team created", "org", org, "team", name)
	return toTeam(team), nil
}

// DeleteTeam removes a team by slug.
func (s *SourceHost) DeleteTeam(ctx context.Context, org, slug string) error {
	resp, err := s.Client.Teams.DeleteTeamBySlug(ctx, org, slug)
	return mapError(resp, err)
}

// AddTeamRepository grants the team permission p on org/repo, replacing any
// previous grant.
func (s *SourceHost) AddTeamRepository(ctx context.Context, org, slug, repo string, p provisioner.Permission) error {
	resp, err := s.Client.Teams.AddTeamRepoBySlug(ctx, org, slug, org, repo, &github.TeamAddTeamRepoOptions{
		Permission: p.String(),
	})
	return mapError(resp, err)
}

// GetPublicKey fetches the key secrets of org/repo must be sealed with.
func (s *SourceHost) GetPublicKey(ctx context.Context, org, repo string) (provisioner.PublicKey, error) {
	key, resp, err := s.Client.Actions.GetRepoPublicKey(ctx, org, repo)
	if err != nil {
		return provisioner.PublicKey{}, mapError(resp, err)
	}
	return provisioner.PublicKey{KeyID: key.GetKeyID(), Key: key.GetKey()}, nil
}

// PutSecret stores an already sealed secret on org/repo.
func (s *SourceHost) PutSecret(ctx context.Context, org, repo string, secret provisioner.EncryptedSecret) error {
	resp, err := s.Client.Actions.CreateOrUpdateRepoSecret(ctx, org, repo, &github.EncryptedSecret{
		Name:           secret.Name,
		KeyID:          secret.KeyID,
		EncryptedValue: secret.EncryptedValue,
	})
	return mapError(resp, err)
}

// DeleteSecret removes a secret from org/repo.
func (s *SourceHost) DeleteSecret(ctx context.Context, org, repo, name string) error {
	resp, err := s.Client.Actions.DeleteRepoSecret(ctx, org, repo, name)
	return mapError(resp, err)
}

// ReplaceTopics sets the topics of org/repo to exactly topics.
func (s *SourceHost) ReplaceTopics(ctx context.Context, org, repo string, topics []string) error {
	_, resp, err := s.Client.Repositories.ReplaceAllTopics(ctx, org, repo, topics)
	return mapError(resp, err)
}

// AddTeamMember adds user to the team as a member.
func (s *SourceHost) AddTeamMember(ctx context.Context, org, slug, user string) error {
	_, resp, err := s.Client.Teams.AddTeamMembershipBySlug(ctx, org, slug, user, &github.TeamAddTeamMembershipOptions{
		Role: "member",
	})
	return mapError(resp, err)
}

// RemoveTeamMember removes user from the team.
func (s *SourceHost) RemoveTeamMember(ctx context.Context, org, slug, user string) error {
	resp, err := s.Client.Teams.RemoveTeamMembershipBySlug(ctx, org, slug, user)
	return mapError(resp, err)
}

func toTeam(t *github.Team) provisioner.Team {
	return provisioner.Team{ID: t.GetID(), Name: t.GetName(), Slug: t.GetSlug()}
}
