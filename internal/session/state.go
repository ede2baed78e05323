package session

import (
	"time"

	"github.com/hongminglow/anonboard/internal/models"
)

// LoadingState tracks whether the first identity resolution has finished.
type LoadingState int

const (
	Initializing LoadingState = iota
	Ready
)

func (s LoadingState) String() string {
	if s == Ready {
		return "READY"
	}
	return "INITIALIZING"
}

// AuthState is the authorization gate route guards branch on. It is derived
// from the loading state and the current user on every read.
type AuthState int

const (
	StateInitializing AuthState = iota
	StateUnauthenticated
	StateAuthenticated
	StateAuthenticatedAdmin
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateAuthenticatedAdmin:
		return "AUTHENTICATED_ADMIN"
	default:
		return "INITIALIZING"
	}
}

// Authenticated reports whether a user is present.
func (s AuthState) Authenticated() bool {
	return s == StateAuthenticated || s == StateAuthenticatedAdmin
}

// DeriveState maps the stored fields onto the gate.
func DeriveState(loading LoadingState, user *models.UserProfile) AuthState {
	switch {
	case loading == Initializing:
		return StateInitializing
	case user == nil:
		return StateUnauthenticated
	case user.IsAdmin():
		return StateAuthenticatedAdmin
	default:
		return StateAuthenticated
	}
}

// Snapshot is an immutable view of the session handed to readers and
// subscribers.
type Snapshot struct {
	User           *models.UserProfile
	Loading        LoadingState
	IsAdmin        bool
	IsPremium      bool
	TokenExpiresAt time.Time
}

// State recomputes the gate from the snapshot's fields.
func (s Snapshot) State() AuthState {
	return DeriveState(s.Loading, s.User)
}
