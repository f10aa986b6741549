// Package oskeyring keeps service credentials in the operating system keyring so
// the CLI and server can start without a token in the environment.
package oskeyring

import (
	"errors"
	"fmt"
	"sync"

	keyringlib "github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no credential is stored for an account.
var ErrNotFound = errors.New("credential not found in keyring")

// Service is the keyring backend.
type Service interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
	// Delete does not fail when nothing is stored.
	Delete(service, user string) error
}

// System uses the OS keyring through zalando/go-keyring.
type System struct{}

func (System) Get(service, user string) (string, error) {
	secret, err := keyringlib.Get(service, user)
	if err != nil {
		if errors.Is(err, keyringlib.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read OS keyring: %w", err)
	}
	return secret, nil
}

func (System) Set(service, user, password string) error {
	return keyringlib.Set(service, user, password)
}

func (System) Delete(service, user string) error {
	err := keyringlib.Delete(service, user)
	if errors.Is(err, keyringlib.ErrNotFound) {
		return nil
	}
	return err
}

// Memory is an in-process Service for tests.
type Memory struct {
	mu    sync.RWMutex
	store map[string]string // service + "\x00" + user
}

func NewMemory() *Memory {
	return &Memory{store: map[string]string{}}
}

func (m *Memory) Get(service, user string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[service+"\x00"+user]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(service, user, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[service+"\x00"+user] = password
	return nil
}

func (m *Memory) Delete(service, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, service+"\x00"+user)
	return nil
}

var (
	_ Service = System{}
	_ Service = (*Memory)(nil)
)
