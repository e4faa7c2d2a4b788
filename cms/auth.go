package cms

import (
	"context"
	"errors"
	"net/http"

	"github.com/use-agent/imageboard/models"
)

// Login authenticates identifier (email or username) and password against
// the CMS local provider.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.AuthResult, error) {
	var res models.AuthResult
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/api/auth/local", Options{Body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register creates a CMS account. The CMS replies with a JWT for the new user
// when email confirmation is disabled.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	var res models.AuthResult
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/api/auth/local/register", Options{Body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.NewAppError(models.ErrCodeUnauthorized, "missing token", nil)
	}
	var u models.User
	opts := Options{AuthToken: token, NoServiceToken: true}
	if err := c.Do(ctx, http.MethodGet, "/api/users/me", opts, &u); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && (appErr.Status == http.StatusUnauthorized || appErr.Status == http.StatusForbidden) {
			return nil, &models.AppError{Code: models.ErrCodeUnauthorized, Status: appErr.Status, Message: "invalid token", Err: err}
		}
		return nil, err
	}
	if u.ID == 0 {
		return nil, models.NewAppError(models.ErrCodeUnauthorized, "invalid token", nil)
	}
	return &u, nil
}
