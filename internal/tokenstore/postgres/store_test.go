package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/anonboard/internal/tokenstore"
)

// TestTokenStoreIntegration round-trips a token through a live database.
func TestTokenStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_TOKENSTORE_INTEGRATION") != "true" {
		t.Skip("set RUN_TOKENSTORE_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	profile := fmt.Sprintf("apitest_%d", time.Now().UnixNano())
	store, err := NewTokenStore(ctx, dbURL, profile)
	require.NoError(t, err)
	defer store.Close()
	defer func() { _ = store.Delete(ctx, tokenstore.Key) }()

	_, err = store.Get(ctx, tokenstore.Key)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, store.Set(ctx, tokenstore.Key, "t1"))
	require.NoError(t, store.Set(ctx, tokenstore.Key, "t2"))
	got, err := store.Get(ctx, tokenstore.Key)
	require.NoError(t, err)
	assert.Equal(t, "t2", got)

	require.NoError(t, store.Delete(ctx, tokenstore.Key))
	require.NoError(t, store.Delete(ctx, tokenstore.Key))
	_, err = store.Get(ctx, tokenstore.Key)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
