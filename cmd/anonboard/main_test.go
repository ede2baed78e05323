package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/anonboard/internal/apiclient"
	"github.com/hongminglow/anonboard/internal/config"
	"github.com/hongminglow/anonboard/internal/http/handlers"
	"github.com/hongminglow/anonboard/internal/server"
	"github.com/hongminglow/anonboard/internal/session"
	"github.com/hongminglow/anonboard/internal/storage/memory"
	"github.com/hongminglow/anonboard/internal/tokenstore"
)

func TestRunCommands(t *testing.T) {
	ctx := context.Background()
	accounts := memory.NewAccountStore()
	_, err := handlers.SeedAccount(ctx, accounts, handlers.SeedInput{Email: "cli@uni.edu", Password: "secret-pw"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.ServerConfig{JWTSecret: "cli-secret", JWTIssuer: "anonboard-test", JWTTTL: time.Hour}
	ts := httptest.NewServer(server.Handler(cfg, accounts, logger))
	defer ts.Close()

	creds := apiclient.NewCredentials()
	api := apiclient.New(config.NormalizeAPIURL(ts.URL), creds, apiclient.WithLogger(logger))
	manager := session.NewManager(api, creds, tokenstore.NewMemoryStore(), session.WithLogger(logger))
	defer manager.Close()
	manager.Initialize(ctx)

	var out bytes.Buffer
	require.NoError(t, run(ctx, manager, "route", []string{"/feed"}, &out))
	assert.Equal(t, "/feed -> redirect /login\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, manager, "login", []string{"-email", "cli@uni.edu", "-password", "secret-pw"}, &out))
	assert.Contains(t, out.String(), "state: AUTHENTICATED")
	assert.Contains(t, out.String(), "cli@uni.edu")

	out.Reset()
	require.NoError(t, run(ctx, manager, "route", []string{"/admin"}, &out))
	assert.Equal(t, "/admin -> access-denied\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, manager, "logout", nil, &out))
	assert.Equal(t, session.StateUnauthenticated, manager.State())

	err = run(ctx, manager, "login", []string{"-email", "cli@uni.edu", "-password", "wrong"}, &out)
	assert.Equal(t, "Invalid email or password", apiclient.Message(err, ""))

	assert.Error(t, run(ctx, manager, "bogus", nil, &out))
}
