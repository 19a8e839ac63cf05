package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/petminion/internal/adapters/credentials/env"
	"github.com/bnema/petminion/internal/domain"
	portmocks "github.com/bnema/petminion/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tokenKey = "petminion/pushover/app_token"

func TestStoreGetUsesFirstBackendThatHasTheKey(t *testing.T) {
	t.Parallel()

	first := portmocks.NewMockSecretStore(t)
	second := portmocks.NewMockSecretStore(t)
	third := portmocks.NewMockSecretStore(t)
	store := NewStore(first, second, third)

	first.EXPECT().Get(mock.Anything, tokenKey).Return("", domain.ErrSecretNotFound).Once()
	second.EXPECT().Get(mock.Anything, tokenKey).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetReportsNotFoundWhenNoBackendHasTheKey(t *testing.T) {
	t.Parallel()

	first := portmocks.NewMockSecretStore(t)
	second := portmocks.NewMockSecretStore(t)
	store := NewStore(first, second)

	first.EXPECT().Get(mock.Anything, tokenKey).Return("", domain.ErrSecretNotFound).Once()
	second.EXPECT().Get(mock.Anything, tokenKey).Return("", domain.ErrSecretNotFound).Once()

	_, err := store.Get(context.Background(), tokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, tokenKey)
}

func TestStoreGetCombinesRealFailures(t *testing.T) {
	t.Parallel()

	first := portmocks.NewMockSecretStore(t)
	second := portmocks.NewMockSecretStore(t)
	store := NewStore(first, second)

	first.EXPECT().Get(mock.Anything, tokenKey).Return("", errors.New("gpg agent locked")).Once()
	second.EXPECT().Get(mock.Anything, tokenKey).Return("", errors.New("permission denied")).Once()

	_, err := store.Get(context.Background(), tokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "backend 0 get failed: gpg agent locked")
	assert.ErrorContains(t, err, "backend 1 get failed: permission denied")
}

func TestStorePutSkipsReadOnlyBackends(t *testing.T) {
	t.Parallel()

	readOnly := portmocks.NewMockSecretStore(t)
	writable := portmocks.NewMockSecretStore(t)
	store := NewStore(readOnly, writable)

	readOnly.EXPECT().Put(mock.Anything, tokenKey, "secret").Return(env.ErrReadOnly).Once()
	writable.EXPECT().Put(mock.Anything, tokenKey, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), tokenKey, "secret"))
}

func TestStorePutStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	first := portmocks.NewMockSecretStore(t)
	second := portmocks.NewMockSecretStore(t)
	store := NewStore(first, second)

	first.EXPECT().Put(mock.Anything, tokenKey, "secret").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), tokenKey, "secret"))
}

func TestStoreDeleteClearsEveryWritableBackend(t *testing.T) {
	t.Parallel()

	readOnly := portmocks.NewMockSecretStore(t)
	pass := portmocks.NewMockSecretStore(t)
	file := portmocks.NewMockSecretStore(t)
	store := NewStore(readOnly, pass, file)

	readOnly.EXPECT().Delete(mock.Anything, tokenKey).Return(env.ErrReadOnly).Once()
	pass.EXPECT().Delete(mock.Anything, tokenKey).Return(errors.New("pass unavailable")).Once()
	file.EXPECT().Delete(mock.Anything, tokenKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), tokenKey))
}

func TestStoreGetDoesNotFallBackOnCanceledContext(t *testing.T) {
	t.Parallel()

	first := portmocks.NewMockSecretStore(t)
	second := portmocks.NewMockSecretStore(t)
	store := NewStore(first, second)

	first.EXPECT().Get(mock.Anything, tokenKey).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), tokenKey)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreCheckedRejectsMissingBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked()
	require.ErrorIs(t, err, errNoBackends)

	_, err = NewStoreChecked(portmocks.NewMockSecretStore(t), nil)
	require.ErrorContains(t, err, "backend 1 is nil")
}
