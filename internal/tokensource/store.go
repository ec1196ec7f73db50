package tokensource

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name credentials are stored under.
const DefaultKeyringService = "sglang-bridge"

// ErrReadOnly is returned by stores that cannot be written.
var ErrReadOnly = errors.New("token store is read-only")

// Store persists a single secret. Read returns "" without error when nothing
// is stored. Writing "" clears the secret.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
}

// EnvStore reads the secret from an environment variable.
type EnvStore struct {
	Name string
	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// Compile-time check to ensure EnvStore implements Store
var _ Store = (*EnvStore)(nil)

// NewEnvStore creates a store reading the variable name.
func NewEnvStore(name string) *EnvStore {
	return &EnvStore{Name: name, lookup: os.LookupEnv}
}

// Read implements Store.
func (s *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(s.Name)
	return v, nil
}

// Write implements Store. Environment variables cannot be persisted.
func (s *EnvStore) Write(context.Context, string) error {
	return fmt.Errorf("%s: %w", s.Name, ErrReadOnly)
}

// KeyringStore keeps the secret in the operating system keyring.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a store for the given keyring service and user.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Read implements Store.
func (s *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	secret, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring %s/%s: %w", s.service, s.user, err)
	}
	return secret, nil
}

// Write implements Store.
func (s *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if token == "" {
		err := keyring.Delete(s.service, s.user)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("deleting keyring %s/%s: %w", s.service, s.user, err)
		}
		return nil
	}

	if err := keyring.Set(s.service, s.user, token); err != nil {
		return fmt.Errorf("writing keyring %s/%s: %w", s.service, s.user, err)
	}
	return nil
}
