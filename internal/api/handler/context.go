package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxIdentity extracts the identity claims injected by the Auth middleware
// and performs a fast-fail check before any service call: a non-empty
// username proves the middleware ran.
func ctxIdentity(c echo.Context) (username string, staff bool, err error) {
	username, _ = c.Get("username").(string)
	if username == "" {
		return "", false, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	staff, _ = c.Get("administrator").(bool)
	return username, staff, nil
}
