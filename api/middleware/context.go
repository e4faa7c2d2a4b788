package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/session"
)

// Context keys set by the middleware in this package.
const (
	KeyRequestID  = "request_id"
	KeySession    = "session"
	KeyLocale     = "locale"
	KeyTranslator = "i18n"
)

// SessionFrom returns the session attached to c, or nil when anonymous.
func SessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(KeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// LocaleFrom returns the resolved locale of c, or "" before Locale ran.
func LocaleFrom(c *gin.Context) string {
	return c.GetString(KeyLocale)
}

// TranslatorFrom returns the translator bound to the request locale.
func TranslatorFrom(c *gin.Context) *i18n.Translator {
	v, ok := c.Get(KeyTranslator)
	if !ok {
		return nil
	}
	t, _ := v.(*i18n.Translator)
	return t
}

// SetLocale binds locale and its translator to c.
func SetLocale(c *gin.Context, cat *i18n.Catalog, locale string) *i18n.Translator {
	t := cat.For(locale)
	c.Set(KeyLocale, t.Locale)
	c.Set(KeyTranslator, t)
	return t
}
