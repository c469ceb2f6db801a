package domain

import (
	"errors"
	"time"
)

// Grant types issued by the token endpoint. AuthorizationCode is recognised
// for the deprecated auto-expire policy but is not itself issued here.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantAuthorizationCode = "authorization-code"
)

var ErrApplicationNotFound = errors.New("oauth application not found")
var ErrClientNotConfigured = errors.New("oauth client is not configured")
var ErrUnsupportedGrantType = errors.New("unsupported grant type")

// Epoch is the timestamp forced onto the persisted expiry of tokens issued to
// restricted applications.
var Epoch = time.Unix(0, 0).UTC()

// Application is a registered OAuth2 API consumer.
type Application struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	GrantType    string    `json:"grant_type"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RestrictedApplication marks an Application as barred from using issued
// tokens for live API calls. It carries no attributes beyond the link:
// its presence alone makes every token the application receives pre-expired.
// Administrators create and delete these rows; token issuance only reads them.
type RestrictedApplication struct {
	ApplicationID string `json:"application_id"`
}

// AccessToken is a persisted bearer credential. Expires is the only field this
// service ever mutates, and only to force it into the past.
type AccessToken struct {
	Token         string    `json:"token"`
	UserID        string    `json:"user_id"`
	ApplicationID string    `json:"application_id"`
	Scopes        []string  `json:"scopes"`
	Expires       time.Time `json:"expires"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsExpired reports whether the token's persisted expiry has passed.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return !t.Expires.After(now)
}
