package users

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/conecta2/conecta2/internal/platform/db"
)

func newIntegrationRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	truncate(t, pool)
	t.Cleanup(func() { truncate(t, pool) })
	return repo
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE users RESTART IDENTITY`)
	require.NoError(t, err)
}

func TestRepositoryIntegration(t *testing.T) {
	repo := newIntegrationRepository(t)
	ctx := context.Background()

	created, err := repo.Save(ctx, User{Name: "Ana", Age: 70, Interests: "chess"})
	require.NoError(t, err)
	require.Positive(t, created.ID)

	mirrored := []User{
		{ID: 10, Name: "Luis", Age: 68, Interests: "gardening, chess"},
		{ID: 11, Name: "Marta", Age: 81, Interests: "reading"},
	}
	require.NoError(t, repo.ReplaceAll(ctx, mirrored))

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, mirrored, all)

	// The sequence stays ahead of mirrored ids.
	next, err := repo.Save(ctx, User{Name: "Pía", Age: 90, Interests: "tejer"})
	require.NoError(t, err)
	require.Greater(t, next.ID, int64(11))

	updated, err := repo.Save(ctx, User{ID: 10, Name: "Luis", Age: 69, Interests: "gardening"})
	require.NoError(t, err)
	require.Equal(t, 69, updated.Age)

	require.NoError(t, repo.ReplaceAll(ctx, nil))
	all, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRepositoryRejectsInvalidUsers(t *testing.T) {
	repo := NewRepository(nil)
	ctx := context.Background()

	_, err := repo.Save(ctx, User{Age: 3})
	require.ErrorIs(t, err, ErrValidation)

	err = repo.ReplaceAll(ctx, []User{{Name: "Ana", Age: 70}})
	require.ErrorIs(t, err, ErrValidation)

	err = repo.ReplaceAll(ctx, []User{{ID: 1, Name: "Ana", Age: -1}})
	require.ErrorIs(t, err, ErrValidation)
}
