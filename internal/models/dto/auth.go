package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hongminglow/anonboard/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks presence; format is the server's concern.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type LoginResponse struct {
	Token string              `json:"token"`
	User  *models.UserProfile `json:"user,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupResponse acknowledges a pending, unverified account.
type SignupResponse struct {
	Email                string `json:"email"`
	VerificationRequired bool   `json:"verificationRequired"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate keeps the OTP check to presence so locale-formatted digits are not
// rejected before the server sees them.
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.OTP, validation.Required),
	)
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.OTP, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

// MessageResponse is the payload of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}
