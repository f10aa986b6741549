package oskeyring

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultServiceName is the keyring service entries are filed under.
const DefaultServiceName = "provisioner"

// Accounts used for the two remote services.
const (
	AccountGitHub    = "github"
	AccountSonarQube = "sonarqube"
)

// Tokens stores API tokens per account.
type Tokens struct {
	Keyring     Service
	ServiceName string
}

// NewTokens returns a token store over the OS keyring.
func NewTokens() *Tokens {
	return &Tokens{Keyring: System{}, ServiceName: DefaultServiceName}
}

func (t *Tokens) service() string {
	if t.ServiceName == "" {
		return DefaultServiceName
	}
	return t.ServiceName
}

// Get returns the token for account, or ErrNotFound.
func (t *Tokens) Get(account string) (string, error) {
	return t.Keyring.Get(t.service(), account)
}

// Set stores token for account. Surrounding whitespace is dropped.
func (t *Tokens) Set(account, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token for %s", account)
	}
	return t.Keyring.Set(t.service(), account, token)
}

// Delete forgets the token for account.
func (t *Tokens) Delete(account string) error {
	return t.Keyring.Delete(t.service(), account)
}

// Fill sets *dst from the keyring when it is empty. A missing entry is not an error.
func (t *Tokens) Fill(dst *string, account string) error {
	if *dst != "" {
		return nil
	}
	tok, err := t.Get(account)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	*dst = tok
	return nil
}
