package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StaffOnly rejects requests whose token does not carry the administrator
// claim. Per-course staff access is checked deeper in the service layer; this
// gate is for endpoints that are global-staff only.
func StaffOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			admin, _ := c.Get("administrator").(bool)
			if !admin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
