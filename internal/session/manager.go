// Package session owns the client's authentication lifecycle: the bearer
// token, the resolved identity, and the derived authorization gate that route
// guards and navigation read.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/hongminglow/anonboard/internal/apiclient"
	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/models/dto"
	"github.com/hongminglow/anonboard/internal/tokenstore"
)

const (
	pathMe             = "/auth/me"
	pathLogin          = "/auth/login"
	pathSignup         = "/auth/signup"
	pathVerifyEmail    = "/auth/verify-email"
	pathResendOTP      = "/auth/resend-otp"
	pathForgotPassword = "/auth/forgot-password"
	pathResetPassword  = "/auth/reset-password"
)

// ErrInvalidInput wraps local validation failures raised before any request.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoToken is returned when a login response carries no token.
var ErrNoToken = errors.New("login response missing token")

// API is the subset of the HTTP client the manager needs.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Use(fn apiclient.Interceptor) int
	Eject(id int)
}

// CredentialWriter is the request context every outbound call reads its
// Authorization header from. Only the manager writes it.
type CredentialWriter interface {
	SetBearer(token string)
	Clear()
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager is the single source of truth for the current user.
//
// All fields below mu change together: clearing the token clears the user in
// the same critical section. No lock is held across API calls or subscriber
// callbacks.
type Manager struct {
	api    API
	creds  CredentialWriter
	store  tokenstore.Store
	logger *slog.Logger

	initOnce      sync.Once
	interceptorID int

	// persistMu serializes token store I/O. Each write mirrors whatever token
	// is current when it runs, so the last writer always matches memory.
	persistMu sync.Mutex

	mu      sync.Mutex
	token   string
	user    *models.UserProfile
	loading LoadingState
	// generation increases on every identity attempt and every token change;
	// an identity result is applied only if it is still current.
	generation uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewManager wires the manager to its collaborators and installs the
// forced-logout interceptor on api.
func NewManager(api API, creds CredentialWriter, store tokenstore.Store, opts ...Option) *Manager {
	m := &Manager{
		api:     api,
		creds:   creds,
		store:   store,
		logger:  slog.Default(),
		loading: Initializing,
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.interceptorID = api.Use(m.onResponse)
	return m
}

// Close removes the interceptor from the API client.
func (m *Manager) Close() {
	m.api.Eject(m.interceptorID)
}

// Initialize seeds the session from the persisted token and resolves the
// identity once. Failures are logged, never returned. Later calls are no-ops.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		token, err := m.store.Get(ctx, tokenstore.Key)
		if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
			m.logger.Warn("session.init.store_read_failed", "error", err)
		}
		if token == "" {
			m.mu.Lock()
			m.loading = Ready
			m.mu.Unlock()
			m.logger.Debug("session.init.no_token")
			m.notify()
			return
		}

		m.mu.Lock()
		m.token = token
		m.generation++
		m.creds.SetBearer(token)
		m.mu.Unlock()

		if err := m.resolveIdentity(ctx); err != nil {
			m.logger.Info("session.init.identity_failed", "error", err)
		}
	})
}

// RefreshUser re-resolves the identity, e.g. after a tier or role change.
func (m *Manager) RefreshUser(ctx context.Context) error {
	return m.resolveIdentity(ctx)
}

// resolveIdentity asks the API who the current token belongs to. Any HTTP
// error response means the token is bad and the session is cleared; a
// transport failure leaves the session untouched. Either way the manager is
// Ready afterwards.
func (m *Manager) resolveIdentity(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	var profile models.UserProfile
	err := m.api.Get(ctx, pathMe, nil, &profile)

	cleared := false
	m.mu.Lock()
	m.loading = Ready
	switch {
	case gen != m.generation:
		m.logger.Debug("session.identity.stale", "generation", gen)
	case err == nil:
		m.user = &profile
		m.logger.Debug("session.identity.resolved", "user_id", profile.ID, "role", profile.Role)
	case transient(err):
		m.logger.Warn("session.identity.unreachable", "error", err)
	default:
		m.clearLocked()
		cleared = true
		m.logger.Info("session.identity.rejected", "status", apiclient.StatusCode(err))
	}
	m.mu.Unlock()

	if cleared {
		_ = m.syncStore(context.WithoutCancel(ctx))
	}

	m.notify()
	return err
}

// Login authenticates, persists the token and resolves the identity before
// returning the API payload. API errors are returned unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	req := dto.LoginRequest{Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var res dto.LoginResponse
	if err := m.api.Post(ctx, pathLogin, req, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, ErrNoToken
	}

	m.mu.Lock()
	m.token = res.Token
	m.generation++
	m.creds.SetBearer(res.Token)
	m.mu.Unlock()

	_ = m.syncStore(ctx)

	if err := m.resolveIdentity(ctx); err != nil {
		m.logger.Info("session.login.identity_failed", "error", err)
	}
	return &res, nil
}

// Register creates a pending account. It never starts a session; the caller
// follows up with VerifyEmail and then Login.
func (m *Manager) Register(ctx context.Context, email, password, avatarID string) (*dto.SignupResponse, error) {
	req := dto.SignupRequest{Email: email, Password: password, Avatar: avatarID}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	var res dto.SignupResponse
	if err := m.api.Post(ctx, pathSignup, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyEmail confirms a signup OTP. It does not start a session.
func (m *Manager) VerifyEmail(ctx context.Context, email, otp string) error {
	return m.post(ctx, pathVerifyEmail, dto.VerifyEmailRequest{Email: email, OTP: otp})
}

// ResendOTP asks for a fresh verification code.
func (m *Manager) ResendOTP(ctx context.Context, email string) error {
	return m.post(ctx, pathResendOTP, dto.EmailRequest{Email: email})
}

// ForgotPassword starts the reset flow by mailing an OTP.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.post(ctx, pathForgotPassword, dto.EmailRequest{Email: email})
}

// ResetPassword sets a new password using the mailed OTP. It does not start a
// session.
func (m *Manager) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return m.post(ctx, pathResetPassword, dto.ResetPasswordRequest{Email: email, OTP: otp, NewPassword: newPassword})
}

type validatable interface {
	Validate() error
}

func (m *Manager) post(ctx context.Context, path string, req validatable) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return m.api.Post(ctx, path, req, nil)
}

// Logout clears the session locally. It never calls the API and is
// idempotent. The in-memory session is gone even when the store delete fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	changed := m.token != "" || m.user != nil
	m.clearLocked()
	m.mu.Unlock()

	if changed {
		m.logger.Info("session.logout")
		m.notify()
	}
	return m.syncStore(ctx)
}

// onResponse watches every API response for the banned marker and drops the
// session when it appears. It never navigates; guards see the nil user on
// their next evaluation.
func (m *Manager) onResponse(ctx context.Context, res *apiclient.Response, err error) {
	if res == nil || res.Status != http.StatusForbidden || !apiclient.IsBanned(err) {
		return
	}

	m.mu.Lock()
	changed := m.token != "" || m.user != nil
	m.clearLocked()
	m.mu.Unlock()

	_ = m.syncStore(context.WithoutCancel(ctx))
	m.logger.Warn("session.forced_logout", "method", res.Method, "path", res.Path, "reason", apiclient.Message(err, ""))
	if changed {
		m.notify()
	}
}

// clearLocked drops token and user together. Callers hold mu and follow up
// with syncStore once it is released.
func (m *Manager) clearLocked() {
	m.token = ""
	m.user = nil
	m.generation++
	m.creds.Clear()
}

// syncStore writes the current token to the store, or deletes it when there
// is none. It runs without mu held.
func (m *Manager) syncStore(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token == "" {
		if err := m.store.Delete(ctx, tokenstore.Key); err != nil {
			m.logger.Warn("session.store_delete_failed", "error", err)
			return fmt.Errorf("delete persisted token: %w", err)
		}
		return nil
	}
	if err := m.store.Set(ctx, tokenstore.Key, token); err != nil {
		m.logger.Warn("session.login.store_write_failed", "error", err)
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loading:        m.loading,
		TokenExpiresAt: tokenExpiry(m.token),
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
		snap.IsAdmin = u.IsAdmin()
		snap.IsPremium = u.IsPremium()
	}
	return snap
}

// State is the authorization gate, recomputed on every call.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DeriveState(m.loading, m.user)
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unsubscribes.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subMu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	snap := m.Snapshot()

	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// transient reports failures where the API never answered.
func transient(err error) bool {
	return errors.Is(err, apiclient.ErrTransport) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
