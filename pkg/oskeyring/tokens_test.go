package oskeyring

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTokens(t *testing.T) {
	tokens := &Tokens{Keyring: NewMemory()}

	_, err := tokens.Get(AccountGitHub)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, tokens.Set(AccountGitHub, "  ghp_abc \n"))
	got, err := tokens.Get(AccountGitHub)
	assert.NoError(t, err)
	assert.Equal(t, "ghp_abc", got)

	assert.Error(t, tokens.Set(AccountSonarQube, "   "))

	t.Run("Fill keeps explicit values", func(t *testing.T) {
		v := "from-env"
		assert.NoError(t, tokens.Fill(&v, AccountGitHub))
		assert.Equal(t, "from-env", v)

		var empty string
		assert.NoError(t, tokens.Fill(&empty, AccountGitHub))
		assert.Equal(t, "ghp_abc", empty)

		var none string
		assert.NoError(t, tokens.Fill(&none, AccountSonarQube))
		assert.Equal(t, "", none)
	})

	assert.NoError(t, tokens.Delete(AccountGitHub))
	assert.NoError(t, tokens.Delete(AccountGitHub))
	_, err = tokens.Get(AccountGitHub)
	assert.True(t, errors.Is(err, ErrNotFound))
}
