package auth

import (
	"github.com/angelmondragon/mapas-backend/internal/users"
	"golang.org/x/text/language"
)

// LoginRequest captures the credentials sent to the login endpoint. Provider
// falls back to the configured default; the fake provider ignores Password.
type LoginRequest struct {
	Provider string `json:"provider,omitempty" validate:"omitempty,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=255"`

	SubsiteID *int64       `json:"-"`
	Locale    language.Tag `json:"-"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	Notified     int            `json:"notifications_created"`
}

// RegisterRequest is the payload for local account creation.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required"`
	ProfileName string `json:"name" validate:"required,max=255"`

	SubsiteID *int64 `json:"-"`
}
