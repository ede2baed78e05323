package session_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/anonboard/internal/apiclient"
	"github.com/hongminglow/anonboard/internal/config"
	"github.com/hongminglow/anonboard/internal/guard"
	"github.com/hongminglow/anonboard/internal/http/handlers"
	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/server"
	"github.com/hongminglow/anonboard/internal/session"
	"github.com/hongminglow/anonboard/internal/storage/memory"
	"github.com/hongminglow/anonboard/internal/tokenstore"
)

type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) deliver(email, code string) {
	m.mu.Lock()
	m.codes[email] = code
	m.mu.Unlock()
}

func (m *mailbox) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type client struct {
	api     *apiclient.Client
	manager *session.Manager
}

func newClient(t *testing.T, baseURL string, store tokenstore.Store) client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := apiclient.NewCredentials()
	api := apiclient.New(config.NormalizeAPIURL(baseURL), creds, apiclient.WithLogger(logger))
	manager := session.NewManager(api, creds, store, session.WithLogger(logger))
	t.Cleanup(manager.Close)
	return client{api: api, manager: manager}
}

// TestSessionAgainstDevServer walks a student through signup, login, restart
// and a mid-session ban against the in-memory dev stub.
func TestSessionAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	accounts := memory.NewAccountStore()
	mail := &mailbox{codes: map[string]string{}}
	cfg := config.ServerConfig{
		JWTSecret:   "integration-secret",
		JWTIssuer:   "anonboard-test",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.Handler(cfg, accounts, logger, handlers.WithOTPSink(mail.deliver)))
	defer ts.Close()

	_, err := handlers.SeedAccount(ctx, accounts, handlers.SeedInput{Email: "mod@uni.edu", Password: "mod-secret", Role: models.RoleAdmin})
	require.NoError(t, err)

	router := guard.NewRouter(guard.DefaultRoutes())
	fsys := afero.NewMemMapFs()
	studentStore := tokenstore.NewFileStore(fsys, "/home/student/.config/anonboard/session.json")

	student := newClient(t, ts.URL, studentStore)
	student.manager.Initialize(ctx)
	require.Equal(t, session.StateUnauthenticated, student.manager.State())
	assert.Equal(t, guard.LoginPath, router.Resolve("/create", student.manager.State()).RedirectTo)

	email := fmt.Sprintf("student_%d@uni.edu", time.Now().UnixNano())
	pending, err := student.manager.Register(ctx, email, "hunter22", "7")
	require.NoError(t, err)
	assert.True(t, pending.VerificationRequired)
	assert.Nil(t, student.manager.Snapshot().User)

	require.NoError(t, student.manager.VerifyEmail(ctx, email, mail.code(email)))
	assert.Nil(t, student.manager.Snapshot().User)

	res, err := student.manager.Login(ctx, email, "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	snap := student.manager.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, email, snap.User.Email)
	assert.False(t, snap.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), snap.TokenExpiresAt, time.Minute)
	assert.Equal(t, guard.Render, router.Resolve("/feed", snap.State()).Outcome)
	assert.Equal(t, guard.AccessDenied, router.Resolve("/admin", snap.State()).Outcome)

	// a fresh process picks the session back up from the persisted token
	restarted := newClient(t, ts.URL, tokenstore.NewFileStore(fsys, "/home/student/.config/anonboard/session.json"))
	restarted.manager.Initialize(ctx)
	require.NotNil(t, restarted.manager.Snapshot().User)
	assert.Equal(t, snap.User.ID, restarted.manager.Snapshot().User.ID)

	moderator := newClient(t, ts.URL, tokenstore.NewMemoryStore())
	moderator.manager.Initialize(ctx)
	_, err = moderator.manager.Login(ctx, "mod@uni.edu", "mod-secret")
	require.NoError(t, err)
	require.Equal(t, session.StateAuthenticatedAdmin, moderator.manager.State())

	// a student poking an admin endpoint gets a plain 403 and keeps the session
	err = student.api.Post(ctx, fmt.Sprintf("/admin/users/%d/ban", snap.User.ID), nil, nil)
	assert.Equal(t, 403, apiclient.StatusCode(err))
	assert.False(t, apiclient.IsBanned(err))
	require.NotNil(t, student.manager.Snapshot().User)

	banPath := fmt.Sprintf("/admin/users/%d/ban", snap.User.ID)
	require.NoError(t, moderator.api.Do(ctx, "POST", banPath, url.Values{"reason": {"spam"}}, nil, nil))

	err = student.api.Get(ctx, "/auth/me", nil, nil)
	require.Error(t, err)
	assert.True(t, apiclient.IsBanned(err))
	assert.Equal(t, "Your account has been banned: spam", apiclient.Message(err, ""))
	assert.Nil(t, student.manager.Snapshot().User)
	assert.Equal(t, guard.LoginPath, router.Resolve("/feed", student.manager.State()).RedirectTo)

	_, err = studentStore.Get(ctx, tokenstore.Key)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	_, err = student.manager.Login(ctx, email, "hunter22")
	assert.True(t, apiclient.IsBanned(err))
	assert.Equal(t, session.StateUnauthenticated, student.manager.State())

	// the moderator's session is untouched by the student's ban
	assert.Equal(t, session.StateAuthenticatedAdmin, moderator.manager.State())
}
