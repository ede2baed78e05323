package handlers

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/anonboard/internal/auth"
	"github.com/hongminglow/anonboard/internal/http/respond"
	"github.com/hongminglow/anonboard/internal/models"
	"github.com/hongminglow/anonboard/internal/models/dto"
	"github.com/hongminglow/anonboard/internal/storage"
)

const otpTTL = 10 * time.Minute

// OTPSink delivers one-time codes. The dev stub has no mailer, so the default
// sink logs them.
type OTPSink func(email, code string)

// AuthHandler owns the /auth endpoints of the dev stub.
type AuthHandler struct {
	store   storage.AccountStore
	tokens  *auth.TokenManager
	sendOTP OTPSink
	genOTP  func() (string, error)
	now     func() time.Time
}

// Option customizes an AuthHandler.
type Option func(*AuthHandler)

// WithOTPSink overrides where verification and reset codes go.
func WithOTPSink(sink OTPSink) Option {
	return func(h *AuthHandler) {
		if sink != nil {
			h.sendOTP = sink
		}
	}
}

// WithOTPGenerator replaces the random six-digit code source.
func WithOTPGenerator(gen func() (string, error)) Option {
	return func(h *AuthHandler) {
		if gen != nil {
			h.genOTP = gen
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(h *AuthHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.AccountStore, tokens *auth.TokenManager, opts ...Option) *AuthHandler {
	h := &AuthHandler{
		store:  store,
		tokens: tokens,
		sendOTP: func(email, code string) {
			slog.Info("devserver.otp", "email", email, "code", code)
		},
		genOTP: newOTP,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/auth/signup", h.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-email", h.handleVerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-otp", h.handleResendOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", h.requireAccount(h.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/auth/forgot-password", h.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", h.handleResetPassword).Methods(http.MethodPost)
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Validate(req.Email, is.Email); err != nil {
		respond.Error(w, http.StatusBadRequest, "email: "+err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	account := models.Account{
		Email:        req.Email,
		Avatar:       req.Avatar,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		UserType:     models.UserTypeFree,
	}
	if !h.issueOTP(w, &account) {
		return
	}
	created, err := h.store.CreateAccount(r.Context(), account)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "An account with this email already exists")
		default:
			slog.Error("devserver.signup.create_failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	h.sendOTP(created.Email, created.OTP)
	respond.JSON(w, http.StatusCreated, dto.SignupResponse{Email: created.Email, VerificationRequired: true})
}

func (h *AuthHandler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	account, ok := h.checkOTP(w, r, req.Email, req.OTP)
	if !ok {
		return
	}
	account.Verified = true
	account.OTP = ""
	if !h.save(r.Context(), w, account) {
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Email verified successfully"})
}

func (h *AuthHandler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "No account found for this email")
		return
	}
	if account.Verified {
		respond.Error(w, http.StatusBadRequest, "Email is already verified")
		return
	}
	if !h.issueOTP(w, &account) {
		return
	}
	if !h.save(r.Context(), w, account) {
		return
	}
	h.sendOTP(account.Email, account.OTP)
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "A new code has been sent"})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("devserver.login.lookup_failed", "error", err)
		}
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if account.Banned(h.now()) {
		respond.Error(w, http.StatusForbidden, bannedMessage(account))
		return
	}
	if !account.Verified {
		respond.Error(w, http.StatusForbidden, "Please verify your email before logging in")
		return
	}
	token, err := h.tokens.Generate(account)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	profile := account.Profile()
	respond.JSON(w, http.StatusOK, dto.LoginResponse{Token: token, User: &profile})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request, account models.Account) {
	respond.JSON(w, http.StatusOK, account.Profile())
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	// Unknown emails get the same answer so the endpoint cannot be used to
	// enumerate accounts.
	if account, err := h.store.FindByEmail(r.Context(), req.Email); err == nil {
		if !h.issueOTP(w, &account) {
			return
		}
		if !h.save(r.Context(), w, account) {
			return
		}
		h.sendOTP(account.Email, account.OTP)
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "If the account exists, a reset code has been sent"})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Validate(req.NewPassword, validation.Length(6, 128)); err != nil {
		respond.Error(w, http.StatusBadRequest, "newPassword: "+err.Error())
		return
	}
	account, ok := h.checkOTP(w, r, req.Email, req.OTP)
	if !ok {
		return
	}
	passwordHash, err := hashPassword(req.NewPassword)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	account.PasswordHash = passwordHash
	account.OTP = ""
	if !h.save(r.Context(), w, account) {
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Password reset successfully"})
}

// accountHandler receives the account the bearer token was issued for.
type accountHandler func(w http.ResponseWriter, r *http.Request, account models.Account)

// requireAccount authenticates the bearer token and rejects banned accounts.
func (h *AuthHandler) requireAccount(next accountHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		id, err := h.tokens.Verify(raw)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		account, err := h.store.FindByID(r.Context(), id)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if account.Banned(h.now()) {
			respond.Error(w, http.StatusForbidden, bannedMessage(account))
			return
		}
		next(w, r, account)
	}
}

// issueOTP stores a fresh code on account. On failure it has already
// answered with a 500.
func (h *AuthHandler) issueOTP(w http.ResponseWriter, account *models.Account) bool {
	code, err := h.genOTP()
	if err != nil {
		slog.Error("devserver.otp.generate_failed", "account_email", account.Email, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to issue verification code")
		return false
	}
	account.OTP = code
	account.OTPExpiresAt = h.now().Add(otpTTL)
	return true
}

func (h *AuthHandler) checkOTP(w http.ResponseWriter, r *http.Request, email, otp string) (models.Account, bool) {
	account, err := h.store.FindByEmail(r.Context(), email)
	if err != nil || account.OTP == "" || account.OTP != strings.TrimSpace(otp) || h.now().After(account.OTPExpiresAt) {
		respond.Error(w, http.StatusBadRequest, "Invalid or expired OTP")
		return models.Account{}, false
	}
	return account, true
}

func (h *AuthHandler) save(ctx context.Context, w http.ResponseWriter, account models.Account) bool {
	if err := h.store.UpdateAccount(ctx, account); err != nil {
		slog.Error("devserver.account.update_failed", "account_id", account.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update account")
		return false
	}
	return true
}

// SeedInput describes a verified account created at startup.
type SeedInput struct {
	Email    string
	Password string
	Role     models.Role
	UserType models.UserType
}

// SeedAccount creates a verified account, bypassing signup.
func SeedAccount(ctx context.Context, store storage.AccountStore, in SeedInput) (models.Account, error) {
	passwordHash, err := hashPassword(in.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	userType := in.UserType
	if userType == "" {
		userType = models.UserTypeFree
	}
	return store.CreateAccount(ctx, models.Account{
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         models.ParseRole(string(in.Role)),
		UserType:     userType,
		Verified:     true,
	})
}

func bannedMessage(account models.Account) string {
	return "Your account has been banned: " + account.BanReason
}

func decode(w http.ResponseWriter, r *http.Request, req interface{ Validate() error }) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
