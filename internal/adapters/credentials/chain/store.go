package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/petminion/internal/adapters/credentials/env"
	filestore "github.com/bnema/petminion/internal/adapters/credentials/file"
	passstore "github.com/bnema/petminion/internal/adapters/credentials/pass"
	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

// Store tries each backend in order. Reads return the first hit; writes land
// in the first backend that accepts them.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret store chain has no backends")

func NewStore(backends ...ports.SecretStore) *Store {
	store, err := NewStoreChecked(backends...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(backends ...ports.SecretStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("secret store backend %d is nil", i)
		}
	}

	return &Store{backends: backends}, nil
}

// NewDefault reads PETMINION_* variables first, then pass, then files under fileRoot.
func NewDefault(fileRoot string) (*Store, error) {
	return NewStoreChecked(env.NewStore(), passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for i, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldStop(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("backend %d get failed: %w", i, err))
	}

	return "", s.combine(key, errs)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldStop(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d put failed: %w", i, err))
	}

	return errors.Join(errs...)
}

// Delete removes key from every writable backend so a stale copy cannot
// shadow a later Put.
func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	deleted := false
	for i, backend := range s.backends {
		err := backend.Delete(ctx, key)
		switch {
		case err == nil:
			deleted = true
		case shouldStop(err):
			return err
		case errors.Is(err, env.ErrReadOnly):
		default:
			errs = append(errs, fmt.Errorf("backend %d delete failed: %w", i, err))
		}
	}

	if deleted {
		return nil
	}
	return errors.Join(errs...)
}

func (s *Store) combine(key string, errs []error) error {
	for _, err := range errs {
		if !errors.Is(err, domain.ErrSecretNotFound) {
			return errors.Join(errs...)
		}
	}

	return fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
}

func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
