package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/session"
)

// Authenticator is the CMS local-auth surface used by the login forms.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*models.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*models.AuthResult, error)
}

// LoginPage returns a handler for GET /:locale/login.
func LoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderLogin(c, http.StatusOK, models.LoginForm{}, "")
	}
}

// Login returns a handler for POST /:locale/login.
func Login(auth Authenticator, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form models.LoginForm
		if err := c.ShouldBind(&form); err != nil {
			renderLogin(c, http.StatusBadRequest, form, validationKey(err, map[string]string{
				"required": "Auth.Errors.required",
			}, "Auth.Errors.required"))
			return
		}
		form.Identifier = strings.TrimSpace(form.Identifier)

		res, err := auth.Login(c.Request.Context(), form.Identifier, form.Password)
		if err != nil {
			slog.Info("login failed", "error", err)
			renderLogin(c, http.StatusUnauthorized, form, "Auth.Errors.failed")
			return
		}
		if err := sessions.Save(c, sessions.New(res)); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, safeNext(c.Query("next"), localePath(c, "/posts")))
	}
}

// RegisterPage returns a handler for GET /:locale/register.
func RegisterPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderRegister(c, http.StatusOK, models.RegisterForm{}, "")
	}
}

// Register returns a handler for POST /:locale/register.
//
// A successful registration is followed by a login with the same
// credentials; if that fails the user is sent to the login page.
func Register(auth Authenticator, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form models.RegisterForm
		if err := c.ShouldBind(&form); err != nil {
			form.Normalize()
			renderRegister(c, http.StatusBadRequest, form, validationKey(err, map[string]string{
				"required": "Auth.Errors.required",
				"email":    "Auth.Errors.invalidEmail",
				"min":      "Auth.Errors.passwordTooShort",
			}, "Auth.Errors.required"))
			return
		}
		form.Normalize()
		ctx := c.Request.Context()

		if _, err := auth.Register(ctx, form.Username, form.Email, form.Password); err != nil {
			slog.Info("registration failed", "error", err)
			renderRegister(c, http.StatusBadRequest, form, "Auth.Errors.registrationFailed")
			return
		}

		res, err := auth.Login(ctx, form.Email, form.Password)
		if err != nil {
			slog.Warn("login after registration failed", "error", err)
			c.Redirect(http.StatusSeeOther, localePath(c, "/login"))
			return
		}
		if err := sessions.Save(c, sessions.New(res)); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, localePath(c, "/posts"))
	}
}

// Logout returns a handler for POST /:locale/logout.
func Logout(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.Clear(c)
		c.Redirect(http.StatusSeeOther, localePath(c, ""))
	}
}

func renderLogin(c *gin.Context, status int, form models.LoginForm, errKey string) {
	t := middleware.TranslatorFrom(c)
	form.Password = ""
	data := gin.H{
		"Nav":   "login",
		"Title": t.T("Auth.Login.title"),
		"Form":  form,
		"Next":  safeNext(c.Query("next"), ""),
	}
	if errKey != "" {
		data["Error"] = t.T(errKey)
	}
	render(c, status, "login", data)
}

func renderRegister(c *gin.Context, status int, form models.RegisterForm, errKey string) {
	t := middleware.TranslatorFrom(c)
	form.Password = ""
	data := gin.H{
		"Nav":   "register",
		"Title": t.T("Auth.Register.title"),
		"Form":  form,
	}
	if errKey != "" {
		data["Error"] = t.T(errKey)
	}
	render(c, status, "register", data)
}
