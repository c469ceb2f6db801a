package ports

import (
	"context"

	"github.com/openlearn/lms-api/internal/core/domain"
)

// UserRepository reads identities from the external user store.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProfileRepository reads the optional display-name profile for a user.
// FindByUserID returns domain.ErrUserNotFound when no profile row exists.
type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)
}
