package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/session"
)

// UserResolver looks up the user owning a CMS token.
type UserResolver interface {
	Me(ctx context.Context, token string) (*models.User, error)
}

// Session loads the signed session cookie into the context. A cookie that
// fails verification is cleared and the request continues anonymously.
func Session(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Load(c)
		switch {
		case err == nil:
			c.Set(KeySession, s)
		case errors.Is(err, http.ErrNoCookie):
		default:
			slog.Debug("discarding session cookie", "error", err)
			m.Clear(c)
		}
		c.Next()
	}
}

// RequireUser rejects JSON requests without a user.
//
// Supports two credentials:
//
//	session cookie (loaded by Session)
//	Authorization: Bearer <cms jwt>
//
// A bearer token is resolved through users, and the resulting identity is
// stored as a session for the rest of the chain.
func RequireUser(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) != nil {
			c.Next()
			return
		}

		token := extractBearer(c)
		if token == "" {
			abortUnauthorized(c, "missing credentials: log in or provide Authorization: Bearer <token>")
			return
		}

		user, err := users.Me(c.Request.Context(), token)
		if err != nil {
			appErr := models.AsAppError(err)
			if appErr.Code == models.ErrCodeUnauthorized {
				abortUnauthorized(c, "invalid token")
				return
			}
			c.AbortWithStatusJSON(http.StatusBadGateway, models.APIResponse{
				Success: false,
				Error:   appErr.ToDetail(),
			})
			return
		}

		c.Set(KeySession, &session.Session{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			JWT:      token,
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}

// extractBearer returns the token of an Authorization: Bearer header.
func extractBearer(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
