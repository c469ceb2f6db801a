package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// TokenSettings is the signing surface the token service reads. It mirrors
// the JWT section of the environment configuration.
type TokenSettings struct {
	Audience                 string
	Issuer                   string
	SecretKey                string
	Algorithm                string
	PrivateKeyPEM            string
	IDTokenExpirationSeconds int64
}

// TokenService builds signed JWTs. Claim field names are an external contract
// consumed by third-party clients and must not change.
type TokenService struct {
	settings TokenSettings
	apps     ports.ApplicationRepository
	profiles ports.ProfileRepository
	now      func() time.Time
}

func NewTokenService(settings TokenSettings, apps ports.ApplicationRepository, profiles ports.ProfileRepository) *TokenService {
	return &TokenService{
		settings: settings,
		apps:     apps,
		profiles: profiles,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Intended for use in tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// JwtBuilder assembles a claims payload for one user and delegates to the
// JWT encoding primitive. Optional claims are gated by the requested scopes.
type JwtBuilder struct {
	user       *domain.User
	asymmetric bool
	secret     string
	svc        *TokenService
}

// JwtOption tweaks how a JwtBuilder signs its tokens.
type JwtOption func(*JwtBuilder)

// Asymmetric makes the builder sign with the service's private RSA key
// instead of the symmetric secret.
func Asymmetric() JwtOption {
	return func(b *JwtBuilder) { b.asymmetric = true }
}

// WithSecret overrides the configured symmetric signing secret. Ignored when
// an asymmetric signature is requested. Kept only for clients that still
// require per-client secrets; avoid for new integrations.
func WithSecret(secret string) JwtOption {
	return func(b *JwtBuilder) { b.secret = secret }
}

// Builder returns a JwtBuilder for the given user.
func (s *TokenService) Builder(user *domain.User, opts ...JwtOption) *JwtBuilder {
	b := &JwtBuilder{user: user, svc: s}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildToken returns an encoded JWT carrying the base claim set plus any
// claims unlocked by scopes. expiresIn is in seconds; aud overrides the
// configured audience claim when non-empty.
func (b *JwtBuilder) BuildToken(ctx context.Context, scopes []string, expiresIn int64, aud string) (string, error) {
	if aud == "" {
		aud = b.svc.settings.Audience
	}

	now := b.svc.now().UTC()
	payload := jwt.MapClaims{
		"aud":                aud,
		"exp":                now.Unix() + expiresIn,
		"iat":                now.Unix(),
		"iss":                b.svc.settings.Issuer,
		"preferred_username": b.user.Username,
		"scopes":             scopes,
		"sub":                anonymousID(b.svc.settings.SecretKey, b.user.ID),
	}

	for _, scope := range scopes {
		switch scope {
		case "email":
			payload["email"] = b.user.Email
		case "profile":
			name, err := b.svc.profileName(ctx, b.user)
			if err != nil {
				return "", err
			}
			payload["name"] = name
			payload["administrator"] = b.user.IsStaff
		}
	}

	return b.encode(payload)
}

func (b *JwtBuilder) encode(payload jwt.MapClaims) (string, error) {
	if b.asymmetric {
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(b.svc.settings.PrivateKeyPEM))
		if err != nil {
			return "", fmt.Errorf("parse private RSA key: %w", err)
		}
		return jwt.NewWithClaims(jwt.SigningMethodRS512, payload).SignedString(key)
	}

	secret := b.secret
	if secret == "" {
		secret = b.svc.settings.SecretKey
	}
	method := jwt.GetSigningMethod(b.svc.settings.Algorithm)
	if method == nil {
		return "", fmt.Errorf("unsupported JWT algorithm %q", b.svc.settings.Algorithm)
	}
	return jwt.NewWithClaims(method, payload).SignedString([]byte(secret))
}

// BuildToken implements ports.TokenService with the default signing mode.
func (s *TokenService) BuildToken(ctx context.Context, user *domain.User, scopes []string, expiresIn int64, aud string) (string, error) {
	return s.Builder(user).BuildToken(ctx, scopes, expiresIn, aud)
}

// IDToken constructs a JWT for the OAuth client registered under clientName,
// signed with the client's secret (or secretOverride when non-empty). The
// payload always carries the full claim set: this predates scope gating and
// is kept for older clients.
func (s *TokenService) IDToken(ctx context.Context, user *domain.User, clientName, secretOverride string) (string, error) {
	app, err := s.apps.FindByName(ctx, clientName)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return "", fmt.Errorf("%w: no application named %q", domain.ErrClientNotConfigured, clientName)
		}
		return "", err
	}

	payload, err := s.legacyPayload(ctx, user, app.ClientID)
	if err != nil {
		return "", err
	}

	secret := secretOverride
	if secret == "" {
		secret = app.ClientSecret
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(secret))
}

// AsymmetricToken constructs a JWT signed with the service's private RSA key.
// clientID is used verbatim as the audience; no application lookup happens.
func (s *TokenService) AsymmetricToken(ctx context.Context, user *domain.User, clientID string) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.settings.PrivateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("parse private RSA key: %w", err)
	}

	payload, err := s.legacyPayload(ctx, user, clientID)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS512, payload).SignedString(key)
}

// legacyPayload is the pre-scope-gating claim set shared by IDToken and
// AsymmetricToken: base registered claims plus email, name and administrator,
// unconditionally.
func (s *TokenService) legacyPayload(ctx context.Context, user *domain.User, aud string) (jwt.MapClaims, error) {
	name, err := s.profileName(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return jwt.MapClaims{
		"preferred_username": user.Username,
		"name":               name,
		"email":              user.Email,
		"administrator":      user.IsStaff,
		"iss":                s.settings.Issuer,
		"exp":                now.Unix() + s.settings.IDTokenExpirationSeconds,
		"iat":                now.Unix(),
		"aud":                aud,
		"sub":                anonymousID(s.settings.SecretKey, user.ID),
	}, nil
}

// profileName resolves the user's display name. A missing profile is a valid
// state (service accounts) and degrades to nil rather than failing.
func (s *TokenService) profileName(ctx context.Context, user *domain.User) (any, error) {
	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile.Name, nil
}

// anonymousID derives the stable per-user pseudonymous subject identifier.
// For a fixed server secret the same user always maps to the same value.
func anonymousID(secret, userID string) string {
	h := md5.New()
	_, _ = io.WriteString(h, secret)
	_, _ = io.WriteString(h, userID)
	return hex.EncodeToString(h.Sum(nil))
}
