package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/anonboard/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", "test", time.Hour)
	raw, err := tokens.Generate(models.Account{ID: 42, Role: models.RoleAdmin})
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenRejected(t *testing.T) {
	tokens := NewTokenManager("secret", "test", time.Hour)
	raw, err := tokens.Generate(models.Account{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("other", "test", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret", "elsewhere", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewTokenManager("secret", "test", -time.Minute).Generate(models.Account{ID: 1})
	require.NoError(t, err)
	_, err = tokens.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
