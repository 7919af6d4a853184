package repository

import (
	"context"
	"testing"

	"uboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Lookups(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	u := testutil.CreateUser(t, db, "ada")

	byName, err := repo.GetByUserName(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	taken, err := repo.Taken(ctx, "ada", "other@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.Taken(ctx, "grace", "grace@example.com")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_TokenRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	u := testutil.CreateUser(t, db, "ada")

	token := "c:abc123"
	u.ConfirmationToken = &token
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}
