package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openlearn/lms-api/internal/core/domain"
)

var testSettings = TokenSettings{
	Audience:                 "lms-api",
	Issuer:                   "http://testserver/oauth2",
	SecretKey:                "top-secret",
	Algorithm:                "HS256",
	IDTokenExpirationSeconds: 30,
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func testRSAKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func decodeHS256(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		t.Fatalf("token failed to parse: %v", err)
	}
	return claims
}

func baseClaimKeys() map[string]struct{} {
	return map[string]struct{}{
		"aud": {}, "exp": {}, "iat": {}, "iss": {},
		"preferred_username": {}, "scopes": {}, "sub": {},
	}
}

func TestBuildToken_BaseClaimsOnly(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice", Email: "alice@example.com", IsStaff: true}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	token, err := svc.BuildToken(context.Background(), user, []string{"read", "write"}, 3600, "")
	if err != nil {
		t.Fatalf("BuildToken returned error: %v", err)
	}

	claims := decodeHS256(t, token, testSettings.SecretKey)
	base := baseClaimKeys()
	for k := range claims {
		if _, ok := base[k]; !ok {
			t.Fatalf("unexpected claim %q in payload without email/profile scopes", k)
		}
	}
	if claims["aud"] != "lms-api" || claims["iss"] != testSettings.Issuer {
		t.Fatalf("wrong registered claims: %+v", claims)
	}
	if claims["preferred_username"] != "alice" {
		t.Fatalf("wrong preferred_username: %v", claims["preferred_username"])
	}
	if _, found := claims["email"]; found {
		t.Fatalf("email claim leaked without email scope")
	}
	if _, found := claims["administrator"]; found {
		t.Fatalf("administrator claim leaked without profile scope")
	}

	exp := int64(claims["exp"].(float64))
	iat := int64(claims["iat"].(float64))
	if exp-iat != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", exp-iat)
	}
}

func TestBuildToken_EmailScopeAddsExactlyOneClaim(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice", Email: "alice@example.com"}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	bare, err := svc.BuildToken(context.Background(), user, []string{"read"}, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	withEmail, err := svc.BuildToken(context.Background(), user, []string{"read", "email"}, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}

	bareClaims := decodeHS256(t, bare, testSettings.SecretKey)
	emailClaims := decodeHS256(t, withEmail, testSettings.SecretKey)

	if len(emailClaims) != len(bareClaims)+1 {
		t.Fatalf("email scope must add exactly one claim: %d vs %d", len(emailClaims), len(bareClaims))
	}
	if emailClaims["email"] != "alice@example.com" {
		t.Fatalf("wrong email claim: %v", emailClaims["email"])
	}
}

func TestBuildToken_ProfileScope(t *testing.T) {
	staff := &domain.User{ID: "7", Username: "alice", IsStaff: true}
	profiles := newStubProfileRepo(&domain.UserProfile{UserID: "7", Name: "Alice Liddell"})
	svc := NewTokenService(testSettings, newStubAppRepo(), profiles).WithClock(fixedClock(t))

	token, err := svc.BuildToken(context.Background(), staff, []string{"profile"}, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	claims := decodeHS256(t, token, testSettings.SecretKey)
	if claims["name"] != "Alice Liddell" {
		t.Fatalf("wrong name claim: %v", claims["name"])
	}
	if claims["administrator"] != true {
		t.Fatalf("administrator should mirror the staff flag")
	}
}

func TestBuildToken_ProfileScope_NoProfileRecord(t *testing.T) {
	service := &domain.User{ID: "9", Username: "svc-worker", IsStaff: false}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	token, err := svc.BuildToken(context.Background(), service, []string{"profile"}, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	claims := decodeHS256(t, token, testSettings.SecretKey)
	name, present := claims["name"]
	if !present {
		t.Fatalf("name claim must be present (and null) for profile scope")
	}
	if name != nil {
		t.Fatalf("expected null name for user without profile, got %v", name)
	}
	if claims["administrator"] != false {
		t.Fatalf("administrator should be false for non-staff")
	}
}

func TestBuildToken_AudienceOverrideAndSecretPrecedence(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice"}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	token, err := svc.Builder(user, WithSecret("client-secret")).BuildToken(context.Background(), nil, 60, "partner-app")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	claims := decodeHS256(t, token, "client-secret")
	if claims["aud"] != "partner-app" {
		t.Fatalf("audience override not applied: %v", claims["aud"])
	}
}

func TestBuildToken_SubStableAcrossCalls(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice"}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	first, err := svc.BuildToken(context.Background(), user, nil, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	second, err := svc.BuildToken(context.Background(), user, nil, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}

	a := decodeHS256(t, first, testSettings.SecretKey)
	b := decodeHS256(t, second, testSettings.SecretKey)
	if a["sub"] == "" || a["sub"] != b["sub"] {
		t.Fatalf("sub must be stable for the same user: %v vs %v", a["sub"], b["sub"])
	}

	other := &domain.User{ID: "8", Username: "bob"}
	third, err := svc.BuildToken(context.Background(), other, nil, 60, "")
	if err != nil {
		t.Fatalf("BuildToken: %v", err)
	}
	c := decodeHS256(t, third, testSettings.SecretKey)
	if c["sub"] == a["sub"] {
		t.Fatalf("different users must not share a sub")
	}
}

func TestBuildToken_Asymmetric_BadKeyMaterialFails(t *testing.T) {
	settings := testSettings
	settings.PrivateKeyPEM = "not a pem"
	user := &domain.User{ID: "7", Username: "alice"}
	svc := NewTokenService(settings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	if _, err := svc.Builder(user, Asymmetric()).BuildToken(context.Background(), nil, 60, ""); err == nil {
		t.Fatalf("expected error for malformed private key")
	}
}

func TestIDToken_DeterministicUnderFixedClock(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice", Email: "alice@example.com", IsStaff: true}
	apps := newStubAppRepo(&domain.Application{
		ID: "app1", Name: "analytics", ClientID: "analytics-client", ClientSecret: "analytics-secret",
	})
	profiles := newStubProfileRepo(&domain.UserProfile{UserID: "7", Name: "Alice Liddell"})
	svc := NewTokenService(testSettings, apps, profiles).WithClock(fixedClock(t))

	first, err := svc.IDToken(context.Background(), user, "analytics", "")
	if err != nil {
		t.Fatalf("IDToken: %v", err)
	}
	second, err := svc.IDToken(context.Background(), user, "analytics", "")
	if err != nil {
		t.Fatalf("IDToken: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs and clock must encode identically")
	}

	claims := decodeHS256(t, first, "analytics-secret")
	if claims["aud"] != "analytics-client" {
		t.Fatalf("audience must be the named client's ID: %v", claims["aud"])
	}
	if claims["email"] != "alice@example.com" || claims["name"] != "Alice Liddell" || claims["administrator"] != true {
		t.Fatalf("legacy payload must always carry full claims: %+v", claims)
	}
	exp := int64(claims["exp"].(float64))
	iat := int64(claims["iat"].(float64))
	if exp-iat != testSettings.IDTokenExpirationSeconds {
		t.Fatalf("expected %ds lifetime, got %d", testSettings.IDTokenExpirationSeconds, exp-iat)
	}
}

func TestIDToken_SecretOverride(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice"}
	apps := newStubAppRepo(&domain.Application{
		ID: "app1", Name: "analytics", ClientID: "analytics-client", ClientSecret: "analytics-secret",
	})
	svc := NewTokenService(testSettings, apps, newStubProfileRepo()).WithClock(fixedClock(t))

	token, err := svc.IDToken(context.Background(), user, "analytics", "override-secret")
	if err != nil {
		t.Fatalf("IDToken: %v", err)
	}
	decodeHS256(t, token, "override-secret")
}

func TestIDToken_UnknownClientIsConfigurationError(t *testing.T) {
	user := &domain.User{ID: "7", Username: "alice"}
	svc := NewTokenService(testSettings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	if _, err := svc.IDToken(context.Background(), user, "ghost", ""); err == nil {
		t.Fatalf("expected configuration error for unknown client")
	}
}

func TestAsymmetricToken(t *testing.T) {
	settings := testSettings
	settings.PrivateKeyPEM = testRSAKeyPEM(t)

	user := &domain.User{ID: "7", Username: "alice", Email: "alice@example.com"}
	svc := NewTokenService(settings, newStubAppRepo(), newStubProfileRepo()).WithClock(fixedClock(t))

	token, err := svc.AsymmetricToken(context.Background(), user, "partner-client")
	if err != nil {
		t.Fatalf("AsymmetricToken: %v", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(settings.PrivateKeyPEM))
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tk *jwt.Token) (interface{}, error) {
		if tk.Method.Alg() != jwt.SigningMethodRS512.Alg() {
			t.Fatalf("expected RS512, got %s", tk.Method.Alg())
		}
		return &key.PublicKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		t.Fatalf("token failed to verify: %v", err)
	}
	if claims["aud"] != "partner-client" {
		t.Fatalf("audience must be the caller-supplied client id: %v", claims["aud"])
	}
}
