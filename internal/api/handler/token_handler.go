package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openlearn/lms-api/internal/api/metrics"
	"github.com/openlearn/lms-api/internal/core/domain"
	"github.com/openlearn/lms-api/internal/core/ports"
)

// TokenHandler exposes the OAuth2 token endpoint.
type TokenHandler struct {
	oauthService ports.OAuthService
}

func NewTokenHandler(oauthService ports.OAuthService) *TokenHandler {
	return &TokenHandler{oauthService: oauthService}
}

type accessTokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type" validate:"required"`
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	ClientID     string `form:"client_id" json:"client_id" validate:"required"`
	ClientSecret string `form:"client_secret" json:"client_secret" validate:"required"`
	// Scope is the space-delimited OAuth2 scope parameter.
	Scope string `form:"scope" json:"scope"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// Issue handles POST /oauth2/access_token.
//
// @Summary      Issue an OAuth2 access token
// @Tags         oauth2
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        grant_type     formData  string  true   "password or client_credentials"
// @Param        username       formData  string  false  "Username or email (password grant)"
// @Param        password       formData  string  false  "Password (password grant)"
// @Param        client_id      formData  string  true   "OAuth client id"
// @Param        client_secret  formData  string  true   "OAuth client secret"
// @Param        scope          formData  string  false  "Space-delimited scopes"
// @Success      200  {object}  accessTokenResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /oauth2/access_token [post]
func (h *TokenHandler) Issue(c echo.Context) error {
	var req accessTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	result, err := h.oauthService.IssueToken(c.Request().Context(), ports.IssueTokenInput{
		GrantType:    req.GrantType,
		Username:     req.Username,
		Password:     req.Password,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Scopes:       splitScopes(req.Scope),
	})
	if err != nil {
		metrics.TokensIssuedTotal.WithLabelValues(req.GrantType, "denied").Inc()
		switch err {
		case domain.ErrInvalidCredentials:
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_grant"})
		case domain.ErrUnsupportedGrantType:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		}
		return err
	}

	outcome := "issued"
	if result.ExpiresIn <= 0 {
		outcome = "pre_expired"
	}
	metrics.TokensIssuedTotal.WithLabelValues(req.GrantType, outcome).Inc()

	return c.JSON(http.StatusOK, accessTokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
		Scope:       strings.Join(result.Scopes, " "),
	})
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
