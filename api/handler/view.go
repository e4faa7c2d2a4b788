package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/session"
)

// Language is one entry of the language switcher.
type Language struct {
	Code   string
	Name   string
	Href   string
	Active bool
}

// render executes a page template with the data every layout needs.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	t := middleware.TranslatorFrom(c)
	data["I18n"] = t
	data["Locale"] = t.Locale
	data["Session"] = middleware.SessionFrom(c)
	data["Path"] = c.Request.URL.Path
	data["Languages"] = languages(t, c.Request.URL)
	data["RequestID"] = c.GetString(middleware.KeyRequestID)
	if _, ok := data["Nav"]; !ok {
		data["Nav"] = ""
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = t.T("Nav.brand")
	}
	c.HTML(status, name, data)
}

func languages(t *i18n.Translator, u *url.URL) []Language {
	path, query := u.Path, u.RawQuery
	out := make([]Language, 0, len(t.Locales()))
	for _, code := range t.Locales() {
		href := t.Path(path, code)
		if query != "" {
			href += "?" + query
		}
		out = append(out, Language{
			Code:   code,
			Name:   i18n.Name(code),
			Href:   href,
			Active: code == t.Locale,
		})
	}
	return out
}

// renderError shows the localized error page for err. A missing resource
// gets the not-found page.
func renderError(c *gin.Context, err error) {
	appErr := toAppError(err)
	status := mapErrorToStatus(appErr)
	if status == http.StatusNotFound {
		renderNotFound(c)
		return
	}
	slog.Error("page request failed",
		"path", c.Request.URL.Path,
		"code", appErr.Code,
		"error", err,
		"request_id", c.GetString(middleware.KeyRequestID),
	)
	_ = c.Error(err)
	t := middleware.TranslatorFrom(c)
	render(c, status, "error", gin.H{
		"Title":   t.T("Common.error"),
		"Message": t.T("Common.error"),
	})
}

func renderNotFound(c *gin.Context) {
	t := middleware.TranslatorFrom(c)
	render(c, http.StatusNotFound, "not_found", gin.H{
		"Title": t.T("Common.notFound"),
	})
}

// currentSession returns the session of c or nil.
func currentSession(c *gin.Context) *session.Session {
	return middleware.SessionFrom(c)
}

// localePath builds "/<locale><suffix>".
func localePath(c *gin.Context, suffix string) string {
	return "/" + middleware.LocaleFrom(c) + suffix
}

// loginRedirect sends an anonymous user to the login page, returning here
// afterwards.
func loginRedirect(c *gin.Context) {
	next := c.Request.URL.Path
	if c.Request.Method != http.MethodGet {
		next = localePath(c, "/posts")
	}
	c.Redirect(http.StatusSeeOther, localePath(c, "/login")+"?next="+url.QueryEscape(next))
}

// safeNext accepts only local absolute paths as a post-login target.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// RateLimited renders the page shown when a form mutation is throttled.
func RateLimited(c *gin.Context) {
	t := middleware.TranslatorFrom(c)
	render(c, http.StatusTooManyRequests, "error", gin.H{
		"Title":   t.T("Common.error"),
		"Message": t.T("Common.rateLimited"),
	})
}
