package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// OAuthService implements token issuance with the platform's overrides:
// email-or-username login, client-credentials owner binding, and forced
// expiry of tokens issued to restricted applications.
type OAuthService struct {
	users    ports.UserRepository
	apps     ports.ApplicationRepository
	tokens   ports.TokenRepository
	tokenSvc ports.TokenService

	// expiresIn is the advertised access-token lifetime in seconds.
	expiresIn int64
	// autoExpireAuthCode keeps the deprecated global authorization-code
	// policy alive; the restricted-application marker is canonical.
	autoExpireAuthCode bool

	logger zerolog.Logger
	now    func() time.Time
}

func NewOAuthService(
	users ports.UserRepository,
	apps ports.ApplicationRepository,
	tokens ports.TokenRepository,
	tokenSvc ports.TokenService,
	expiresIn int64,
	autoExpireAuthCode bool,
	logger zerolog.Logger,
) *OAuthService {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return &OAuthService{
		users:              users,
		apps:               apps,
		tokens:             tokens,
		tokenSvc:           tokenSvc,
		expiresIn:          expiresIn,
		autoExpireAuthCode: autoExpireAuthCode,
		logger:             logger,
		now:                time.Now,
	}
}

// WithClock overrides the service clock. Intended for use in tests.
func (s *OAuthService) WithClock(now func() time.Time) *OAuthService {
	s.now = now
	return s
}

// ValidateUser authenticates by username first; when that fails it resolves
// username as an email address and retries once under the real username.
// Inactive users may authenticate. Bad credentials fail closed: the caller
// sees (nil, false, nil), never an error.
func (s *OAuthService) ValidateUser(ctx context.Context, username, password string) (*domain.User, bool, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err == nil && passwordMatches(user, password) {
		return user, true, nil
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	emailUser, err := s.users.FindByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}
	if passwordMatches(emailUser, password) {
		return emailUser, true, nil
	}
	return nil, false, nil
}

func passwordMatches(user *domain.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// SaveBearerToken persists the token record. Tokens issued via the
// client-credentials grant are bound to the application's owning user so the
// stored record never has an empty owner. The pre-persist transform runs
// before every save, so re-saving an already forced token is a no-op.
func (s *OAuthService) SaveBearerToken(ctx context.Context, token *domain.AccessToken, app *domain.Application, grantType string) (bool, error) {
	if grantType == domain.GrantClientCredentials && token.UserID == "" {
		token.UserID = app.UserID
	}

	forced, err := s.prePersist(ctx, token, app)
	if err != nil {
		return false, err
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		return false, fmt.Errorf("save access token: %w", err)
	}
	return forced, nil
}

// prePersist forces the stored expiry to the Unix epoch for tokens that must
// never be usable: those of restricted applications, plus — under the
// deprecated global switch — any authorization-code-grant application.
func (s *OAuthService) prePersist(ctx context.Context, token *domain.AccessToken, app *domain.Application) (bool, error) {
	restricted, err := s.apps.IsRestricted(ctx, app.ID)
	if err != nil {
		return false, fmt.Errorf("check restricted application: %w", err)
	}

	force := restricted ||
		(s.autoExpireAuthCode && app.GrantType == domain.GrantAuthorizationCode)
	if force {
		token.Expires = domain.Epoch
	}
	return force, nil
}

// IssueToken runs one token-endpoint request end to end: client
// authentication, grant handling, JWT encoding and persistence.
func (s *OAuthService) IssueToken(ctx context.Context, in ports.IssueTokenInput) (*ports.IssueTokenResult, error) {
	app, err := s.apps.FindByClientID(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	if app.ClientSecret != in.ClientSecret {
		return nil, domain.ErrInvalidCredentials
	}

	var user *domain.User
	switch in.GrantType {
	case domain.GrantPassword:
		var ok bool
		user, ok, err = s.ValidateUser(ctx, in.Username, in.Password)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrInvalidCredentials
		}
	case domain.GrantClientCredentials:
		user, err = s.users.FindByID(ctx, app.UserID)
		if err != nil {
			return nil, fmt.Errorf("find application owner: %w", err)
		}
	default:
		return nil, domain.ErrUnsupportedGrantType
	}

	encoded, err := s.tokenSvc.BuildToken(ctx, user, in.Scopes, s.expiresIn, "")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &domain.AccessToken{
		Token:         encoded,
		UserID:        user.ID,
		ApplicationID: app.ID,
		Scopes:        in.Scopes,
		Expires:       now.Add(time.Duration(s.expiresIn) * time.Second),
		CreatedAt:     now,
	}

	forced, err := s.SaveBearerToken(ctx, record, app, in.GrantType)
	if err != nil {
		return nil, err
	}

	expiresIn := s.expiresIn
	if forced {
		// Advertise a lifetime that ended at the epoch.
		expiresIn = -now.Unix()
		s.logger.Info().
			Str("client_id", app.ClientID).
			Str("grant_type", in.GrantType).
			Msg("issued pre-expired token for restricted application")
	} else {
		s.logger.Info().
			Str("client_id", app.ClientID).
			Str("grant_type", in.GrantType).
			Str("username", user.Username).
			Msg("access token issued")
	}

	return &ports.IssueTokenResult{
		AccessToken: encoded,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scopes:      in.Scopes,
	}, nil
}
