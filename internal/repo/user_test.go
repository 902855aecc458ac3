package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/repo"
	"github.com/pkordes/mileage-tracker/testutil"
)

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	r := repo.NewUserRepo(testutil.NewTx(t))
	ctx := context.Background()

	created, err := r.Create(ctx, "driver@example.com", "$2a$10$hash")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := r.GetByEmail(ctx, "driver@example.com")

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
}

func TestUserRepo_Create_DuplicateEmailConflicts(t *testing.T) {
	r := repo.NewUserRepo(testutil.NewTx(t))
	ctx := context.Background()

	_, err := r.Create(ctx, "driver@example.com", "h1")
	require.NoError(t, err)

	_, err = r.Create(ctx, "driver@example.com", "h2")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	r := repo.NewUserRepo(testutil.NewTx(t))

	_, err := r.GetByEmail(context.Background(), "ghost@example.com")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
