package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/models"
)

// Root returns a handler for GET / that redirects to the negotiated locale.
func Root(cat *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, middleware.LocalizedURL(c, cat))
	}
}

// NotFound handles unmatched routes.
//
// A GET whose first segment is not a locale is redirected under the
// negotiated locale, mirroring the locale-prefixed routing of every page.
// API paths get the JSON envelope; everything else the not-found page.
func NotFound(cat *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")

		if first == "api" {
			respondError(c, models.NewAppError(models.ErrCodeNotFound, "route not found", nil))
			return
		}

		if !cat.IsLocale(first) {
			if middleware.Localizable(c.Request.Method, path) {
				c.Redirect(http.StatusTemporaryRedirect, middleware.LocalizedURL(c, cat))
				return
			}
			first = cat.Negotiate(c.GetHeader("Accept-Language"))
		}
		middleware.SetLocale(c, cat, first)
		renderNotFound(c)
	}
}
