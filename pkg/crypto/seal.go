// Package crypto seals secret values for storage on the source host. Values are
// encrypted with an anonymous sealed box (Curve25519, XSalsa20-Poly1305) so only
// the holder of the repository's private key can open them.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const keySize = 32

// ErrInvalidKey is returned when a public key does not decode to 32 bytes.
var ErrInvalidKey = errors.New("public key has invalid format")

// DecodePublicKey decodes a standard base64 Curve25519 public key.
func DecodePublicKey(encoded string) (*[keySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Sealer encrypts plaintext for a recipient public key.
type Sealer struct {
	// Rand is the entropy source for the ephemeral key. Defaults to crypto/rand.
	Rand io.Reader
}

// Seal encrypts plaintext for the base64 public key and returns the base64 sealed box.
func (s Sealer) Seal(publicKey string, plaintext []byte) (string, error) {
	recipient, err := DecodePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	sealed, err := box.SealAnonymous(nil, plaintext, recipient, r)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Seal encrypts plaintext with the default Sealer.
func Seal(publicKey string, plaintext []byte) (string, error) {
	return Sealer{}.Seal(publicKey, plaintext)
}

// Keypair is a Curve25519 keypair. The service never holds repository private keys;
// Keypair exists for tests and for tooling that needs to open sealed values.
type Keypair struct {
	Public  [keySize]byte
	Private [keySize]byte
}

// Generate fills kp with a fresh keypair.
func (kp *Keypair) Generate() error {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	kp.Public = *pub
	kp.Private = *priv
	return nil
}

// PublicString returns the base64 public key, as the source host publishes it.
func (kp *Keypair) PublicString() string {
	return base64.StdEncoding.EncodeToString(kp.Public[:])
}

// Open decrypts a base64 sealed box produced by Seal.
func (kp *Keypair) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode sealed box: %w", err)
	}
	plaintext, ok := box.OpenAnonymous(nil, raw, &kp.Public, &kp.Private)
	if !ok {
		return nil, errors.New("couldn't open sealed box")
	}
	return plaintext, nil
}
