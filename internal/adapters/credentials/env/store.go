package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

var ErrReadOnly = errors.New("environment secrets are read-only")

// Store reads secrets from environment variables: the key
// "petminion/pushover/app_token" maps to PETMINION_PUSHOVER_APP_TOKEN.
type Store struct {
	lookup func(string) (string, bool)
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{lookup: os.LookupEnv}
}

func VariableFor(key string) string {
	replacer := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return strings.ToUpper(replacer.Replace(strings.Trim(strings.TrimSpace(key), "/")))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := VariableFor(key)
	if name == "" {
		return "", errors.New("secret key is empty")
	}

	value, ok := s.lookup(name)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s: %w", name, domain.ErrSecretNotFound)
	}

	return value, nil
}

func (s *Store) Put(context.Context, string, string) error {
	return ErrReadOnly
}

func (s *Store) Delete(context.Context, string) error {
	return ErrReadOnly
}
