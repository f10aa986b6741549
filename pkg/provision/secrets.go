package provision

import (
	"context"
	"fmt"

	"github.com/mscno/provisioner"
)

// writeSecret seals value for org/repo and stores it. The public key is fetched
// on every call since the host may rotate it.
func (s *Service) writeSecret(ctx context.Context, org, repo, name, value string) error {
	key, err := s.Host.GetPublicKey(ctx, org, repo)
	if err != nil {
		return fmt.Errorf("fetch public key: %w", err)
	}
	sealed, err := s.Sealer.Seal(key.Key, []byte(value))
	if err != nil {
		return fmt.Errorf("seal %s: %w", name, err)
	}
	err = s.Host.PutSecret(ctx, org, repo, provisioner.EncryptedSecret{
		Name:           name,
		KeyID:          key.KeyID,
		EncryptedValue: sealed,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// writeAnalysisSecrets stores the token and then the project key.
func (s *Service) writeAnalysisSecrets(ctx context.Context, org, repo string, token provisioner.AnalysisToken) error {
	if err := s.writeSecret(ctx, org, repo, provisioner.SecretAnalysisToken, token.Token); err != nil {
		return err
	}
	return s.writeSecret(ctx, org, repo, provisioner.SecretProjectKey, token.ProjectKey)
}
