package models

// Role is the moderation level carried on a profile.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserType is the subscription tier marker.
type UserType string

const (
	UserTypeFree    UserType = "FREE"
	UserTypePremium UserType = "PREMIUM"
)

// ParseRole maps a raw role string onto a known role, defaulting to RoleUser.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}
