// Package guard decides, for a destination and the current authorization
// gate, whether to render, wait, redirect or show an access-denied state.
package guard

import (
	"github.com/hongminglow/anonboard/internal/session"
)

// Access classifies a destination.
type Access int

const (
	// PublicOnly destinations (landing, login) are for signed-out visitors.
	PublicOnly Access = iota
	// Protected destinations need any signed-in user.
	Protected
	// AdminOnly destinations need the admin role.
	AdminOnly
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case AdminOnly:
		return "admin"
	default:
		return "public"
	}
}

// Outcome is what the caller should do with a destination.
type Outcome int

const (
	Loading Outcome = iota
	Render
	Redirect
	AccessDenied
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case AccessDenied:
		return "access-denied"
	default:
		return "loading"
	}
}

// Default destinations used for redirects.
const (
	LoginPath = "/login"
	HomePath  = "/feed"
	RootPath  = "/"
)

// Decision is the guard's verdict. RedirectTo is set only for Redirect.
type Decision struct {
	Outcome    Outcome
	RedirectTo string
}

// Evaluate applies the guard contract. Nothing redirects while the session is
// initializing. Signed-out visitors on admin pages go to login, while
// signed-in non-admins see access denied in place: the first is a routing
// concern, the second a content concern.
func Evaluate(state session.AuthState, access Access) Decision {
	if state == session.StateInitializing {
		return Decision{Outcome: Loading}
	}

	switch access {
	case PublicOnly:
		if state.Authenticated() {
			return Decision{Outcome: Redirect, RedirectTo: HomePath}
		}
	case Protected:
		if !state.Authenticated() {
			return Decision{Outcome: Redirect, RedirectTo: LoginPath}
		}
	case AdminOnly:
		if !state.Authenticated() {
			return Decision{Outcome: Redirect, RedirectTo: LoginPath}
		}
		if state != session.StateAuthenticatedAdmin {
			return Decision{Outcome: AccessDenied}
		}
	}
	return Decision{Outcome: Render}
}
