package ports

import (
	"context"

	"github.com/openlearn/lms-api/internal/core/domain"
)

// IssueTokenInput carries one token-endpoint request.
type IssueTokenInput struct {
	GrantType    string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// IssueTokenResult is the body of a successful token-endpoint response.
// ExpiresIn is negative for tokens issued to restricted applications.
type IssueTokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Scopes      []string
}

// OAuthService implements the platform's token-issuance overrides on top of a
// plain OAuth2 password / client-credentials flow.
type OAuthService interface {
	// ValidateUser authenticates by username, falling back to resolving the
	// name as an email address. It fails closed: bad credentials yield
	// (nil, false, nil), never an error.
	ValidateUser(ctx context.Context, username, password string) (*domain.User, bool, error)

	// SaveBearerToken persists the token record, applying the pre-persist
	// expiry transform for restricted applications.
	SaveBearerToken(ctx context.Context, token *domain.AccessToken, app *domain.Application, grantType string) (forcedExpired bool, err error)

	IssueToken(ctx context.Context, in IssueTokenInput) (*IssueTokenResult, error)
}

// TokenService builds signed JWTs for a user.
type TokenService interface {
	// BuildToken returns an encoded JWT whose optional claims are gated by
	// scopes. expiresIn is in seconds; aud overrides the configured audience
	// when non-empty.
	BuildToken(ctx context.Context, user *domain.User, scopes []string, expiresIn int64, aud string) (string, error)

	// IDToken builds the legacy always-full payload signed with the named
	// client's secret (or secretOverride when non-empty).
	IDToken(ctx context.Context, user *domain.User, clientName, secretOverride string) (string, error)

	// AsymmetricToken builds the legacy payload signed with the service's
	// private RSA key, using clientID verbatim as the audience.
	AsymmetricToken(ctx context.Context, user *domain.User, clientID string) (string, error)
}
