package httpapi

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/lisan/internal/auth"
)

const (
	userHeader       = "X-Lisan-User"
	userCookie       = "lisan_user"
	userContextKey   = "lisan.user"
	adminTokenHeader = "X-Admin-Token"

	userCookieMaxAge = 365 * 24 * time.Hour
)

var userIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{7,63}$`)

// identifyUser attaches the anonymous user id from the header or cookie, issuing
// a new one when neither carries a usable id.
func (s *Server) identifyUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, found := userIDFromRequest(c)
			if !found {
				userID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     userCookie,
					Value:    userID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(userCookieMaxAge.Seconds()),
				})
			}
			c.Response().Header().Set(userHeader, userID)
			c.Set(userContextKey, userID)
			return next(c)
		}
	}
}

func userIDFromRequest(c echo.Context) (string, bool) {
	if id := auth.NormalizeUserID(c.Request().Header.Get(userHeader)); userIDPattern.MatchString(id) {
		return id, true
	}
	cookie, err := c.Cookie(userCookie)
	if err != nil || cookie == nil {
		return "", false
	}
	if id := auth.NormalizeUserID(cookie.Value); userIDPattern.MatchString(id) {
		return id, true
	}
	return "", false
}

func currentUser(c echo.Context) string {
	userID, _ := c.Get(userContextKey).(string)
	return userID
}

func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AdminTokenHash == "" {
				return failNotFound(c, "Admin API is disabled")
			}
			token := strings.TrimSpace(c.Request().Header.Get(adminTokenHeader))
			if !auth.VerifyToken(token, s.opts.AdminTokenHash) {
				return fail(c, http.StatusUnauthorized, "Invalid admin token", nil)
			}
			return next(c)
		}
	}
}
