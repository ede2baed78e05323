package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/storage"
)

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()

	created, err := store.CreateAccount(ctx, models.Account{Email: " Student@Uni.edu "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "student@uni.edu", created.Email)
	assert.Equal(t, "Anonymous0001", created.AnonymousName)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := store.FindByEmail(ctx, "STUDENT@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.CreateAccount(ctx, models.Account{Email: "student@uni.edu"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = store.FindByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateKeepsEmail(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	created, err := store.CreateAccount(ctx, models.Account{Email: "a@b.com"})
	require.NoError(t, err)

	created.Verified = true
	created.Email = "other@b.com"
	require.NoError(t, store.UpdateAccount(ctx, created))

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found.Verified)
	assert.Equal(t, "a@b.com", found.Email)

	assert.ErrorIs(t, store.UpdateAccount(ctx, models.Account{ID: 7}), storage.ErrNotFound)
}
