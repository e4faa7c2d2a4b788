package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/i18n"
)

// Locale resolves the :locale path segment. A segment that is not a
// supported locale is treated as part of the path and the request is
// redirected under the negotiated locale.
func Locale(cat *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := c.Param("locale")
		if !cat.IsLocale(locale) {
			if Localizable(c.Request.Method, c.Request.URL.Path) {
				c.Redirect(http.StatusTemporaryRedirect, LocalizedURL(c, cat))
			} else {
				c.Status(http.StatusNotFound)
			}
			c.Abort()
			return
		}
		SetLocale(c, cat, locale)
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// LocalizedURL prefixes the request path (and query) with the locale
// negotiated from Accept-Language.
func LocalizedURL(c *gin.Context, cat *i18n.Catalog) string {
	locale := cat.Negotiate(c.GetHeader("Accept-Language"))
	target := "/" + locale
	if path := strings.TrimRight(c.Request.URL.Path, "/"); path != "" {
		target += path
	}
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	return target
}

// Localizable reports whether a path without a locale prefix should be
// redirected under one: page navigations only, never the API, static assets
// or files.
func Localizable(method, path string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch first {
	case "api", "static", "metrics":
		return false
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return !strings.Contains(last, ".")
}
