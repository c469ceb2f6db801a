package ports

import (
	"context"

	"github.com/openlearn/lms-api/internal/core/domain"
)

// ApplicationRepository reads registered OAuth applications and their
// restricted-application markers.
type ApplicationRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Application, error)
	FindByClientID(ctx context.Context, clientID string) (*domain.Application, error)
	// IsRestricted reports whether the application carries a
	// RestrictedApplication marker. The marker is only ever read here.
	IsRestricted(ctx context.Context, applicationID string) (bool, error)
}

// TokenRepository persists issued access tokens. Save upserts by token string
// so the expiry-forcing transform may run more than once for the same token.
type TokenRepository interface {
	Save(ctx context.Context, token *domain.AccessToken) error
	FindByToken(ctx context.Context, token string) (*domain.AccessToken, error)
}
