package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")

// User models an identity in the platform's user store. Records are owned by
// the identity service; this API only ever reads them.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile is the optional 1:1 extension of a User carrying the display
// name. Service accounts legitimately have no profile.
type UserProfile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
