package models

import "time"

// UserProfile is the identity snapshot returned by GET /auth/me.
type UserProfile struct {
	ID            int64     `json:"id"`
	AnonymousName string    `json:"anonymousName"`
	Email         string    `json:"email,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Role          Role      `json:"role"`
	Premium       bool      `json:"isPremium"`
	UserType      UserType  `json:"userType,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsPremium accepts either tier marker the API has used.
func (u *UserProfile) IsPremium() bool {
	return u != nil && (u.Premium || u.UserType == UserTypePremium)
}

// Account is the dev stub's record of a registered user.
type Account struct {
	ID            int64
	Email         string
	AnonymousName string
	Avatar        string
	PasswordHash  string
	Role          Role
	UserType      UserType
	Verified      bool
	OTP           string
	OTPExpiresAt  time.Time
	BannedUntil   *time.Time
	BanReason     string
	CreatedAt     time.Time
}

// Banned reports whether the account is banned at now. A nil expiry with a
// reason set is a permanent ban.
func (a Account) Banned(now time.Time) bool {
	if a.BanReason == "" {
		return false
	}
	return a.BannedUntil == nil || now.Before(*a.BannedUntil)
}

// Profile projects the account onto the client-facing shape.
func (a Account) Profile() UserProfile {
	return UserProfile{
		ID:            a.ID,
		AnonymousName: a.AnonymousName,
		Email:         a.Email,
		Avatar:        a.Avatar,
		Role:          a.Role,
		Premium:       a.UserType == UserTypePremium,
		UserType:      a.UserType,
		CreatedAt:     a.CreatedAt,
	}
}
