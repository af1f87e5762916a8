package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sessionContextKey = "stayrank_session_id"

// requireSession validates the Bearer session token and stashes the
// session ID in the request context.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
		}

		sessionID, err := parseSession(strings.TrimSpace(token))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
		}

		c.Set(sessionContextKey, sessionID)
		return next(c)
	}
}

func sessionFromContext(c echo.Context) uuid.UUID {
	if id, ok := c.Get(sessionContextKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
