package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// Child is a guardian's child profile. Game results and reports belong to the
// child, not to the guardian account.
type Child struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    *string    `json:"gender"`
	CreatedAt time.Time  `json:"created_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateChildRequest struct {
	Name      string  `json:"name"`
	BirthDate *string `json:"birth_date"`
	Gender    *string `json:"gender"`
}

// ReportPin gates report access behind a guardian-chosen PIN. Only the bcrypt
// hash is stored.
type ReportPin struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	PinHash   string     `json:"-"`
	EnabledAt *time.Time `json:"enabled_at"`
	CreatedAt time.Time  `json:"created_at"`
}
