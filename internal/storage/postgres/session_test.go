package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/pribylovaa/go-books-api/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Интеграционные тесты репозитория сессий (session.go): установка,
// атомарная ротация (compare-and-swap) и сброс refresh-сессии.

// TestIntegration_SetRefreshToken_OverwritesPrevious — безусловная перезапись
// сессии при логине: прежний хэш больше не «текущий».
func TestIntegration_SetRefreshToken_OverwritesPrevious(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := mustSaveUser(t, st, "session@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "hash-1"))
	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "hash-2"))

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-2", got.RefreshTokenHash)

	// Ротация со старым хэшем после перезаписи не проходит.
	swapped, err := st.RotateRefreshToken(ctx, u.ID, "hash-1", "hash-3")
	require.NoError(t, err)
	require.False(t, swapped)
}

func TestIntegration_SetRefreshToken_UnknownUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	err := st.SetRefreshToken(context.Background(), uuid.New(), "hash-1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_CAS — успешная ротация заменяет значение,
// повтор со старым хэшем отклоняется.
func TestIntegration_RotateRefreshToken_CAS(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := mustSaveUser(t, st, "rotate@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "hash-1"))

	swapped, err := st.RotateRefreshToken(ctx, u.ID, "hash-1", "hash-2")
	require.NoError(t, err)
	require.True(t, swapped)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-2", got.RefreshTokenHash)

	// Повтор старого токена.
	swapped, err = st.RotateRefreshToken(ctx, u.ID, "hash-1", "hash-3")
	require.NoError(t, err)
	require.False(t, swapped)

	// Несуществующий пользователь отличим от несовпадения значения.
	_, err = st.RotateRefreshToken(ctx, uuid.New(), "hash-1", "hash-3")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_Concurrent — из N конкурентных ротаций
// одного и того же токена успешной оказывается ровно одна.
func TestIntegration_RotateRefreshToken_Concurrent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := mustSaveUser(t, st, "race@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "hash-current"))

	const workers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			newHash := uuid.NewString()
			swapped, err := st.RotateRefreshToken(ctx, u.ID, "hash-current", newHash)
			require.NoError(t, err)

			if swapped {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

// TestIntegration_ClearRefreshToken — logout сбрасывает сессию; повторная
// ротация с прежним хэшем невозможна.
func TestIntegration_ClearRefreshToken(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := mustSaveUser(t, st, "logout@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, "hash-1"))
	require.NoError(t, st.ClearRefreshToken(ctx, u.ID))

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshTokenHash)

	swapped, err := st.RotateRefreshToken(ctx, u.ID, "hash-1", "hash-2")
	require.NoError(t, err)
	require.False(t, swapped)

	err = st.ClearRefreshToken(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}
