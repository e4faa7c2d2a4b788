// Package i18n holds the message catalogs and locale helpers. Every page is
// served under a locale prefix ("/ko/posts"); catalogs are embedded YAML files
// whose nested keys are addressed with dots ("Auth.Login.title").
package i18n

import (
	"embed"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/imageboard/config"
)

//go:embed messages/*.yaml
var catalogFS embed.FS

// fallbackLocale is consulted when a key is missing from the requested locale.
const fallbackLocale = "en"

// Catalog resolves messages and locale decisions for the configured locales.
type Catalog struct {
	messages  map[string]map[string]string
	supported []string
	def       string
	loc       *time.Location
	matcher   language.Matcher
	order     []string // matcher index -> locale
}

// New loads the embedded catalogs of every known locale.
func New(cfg config.I18nConfig) (*Catalog, error) {
	c := &Catalog{
		messages:  make(map[string]map[string]string, len(config.KnownLocales)),
		supported: append([]string(nil), cfg.SupportedLocales...),
		def:       cfg.DefaultLocale,
	}
	if len(c.supported) == 0 {
		c.supported = append([]string(nil), config.KnownLocales...)
	}
	if c.def == "" || !contains(c.supported, c.def) {
		c.def = c.supported[0]
	}

	for _, locale := range config.KnownLocales {
		data, err := catalogFS.ReadFile("messages/" + locale + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s catalog: %w", locale, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("i18n: parse %s catalog: %w", locale, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[locale] = flat
	}

	tz := cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("i18n: load time zone %q: %w", tz, err)
	}
	c.loc = loc

	// The default locale goes first so that an unmatched header resolves to it.
	c.order = append([]string{c.def}, without(c.supported, c.def)...)
	tags := make([]language.Tag, 0, len(c.order))
	for _, l := range c.order {
		tags = append(tags, language.Make(l))
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// T returns the message for key in locale, falling back to English and then
// to the key itself.
func (c *Catalog) T(locale, key string) string {
	if msg, ok := c.messages[locale][key]; ok {
		return msg
	}
	if msg, ok := c.messages[fallbackLocale][key]; ok {
		return msg
	}
	return key
}

// Has reports whether locale (or the fallback) defines key.
func (c *Catalog) Has(locale, key string) bool {
	if _, ok := c.messages[locale][key]; ok {
		return true
	}
	_, ok := c.messages[fallbackLocale][key]
	return ok
}

// Default returns the default locale.
func (c *Catalog) Default() string { return c.def }

// Supported returns the supported locales in configured order.
func (c *Catalog) Supported() []string {
	return append([]string(nil), c.supported...)
}

// IsLocale reports whether s is a supported locale.
func (c *Catalog) IsLocale(s string) bool {
	return contains(c.supported, s)
}

// Resolve returns raw when it is supported, else the default locale.
func (c *Catalog) Resolve(raw string) string {
	if c.IsLocale(raw) {
		return raw
	}
	return c.def
}

// Negotiate picks the best supported locale for an Accept-Language header.
func (c *Catalog) Negotiate(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return c.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.def
	}
	_, index, confidence := c.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(c.order) {
		return c.def
	}
	return c.order[index]
}

// ReplaceLocaleInPath swaps the locale segment of path for next, or prefixes
// next when path has no locale segment.
func (c *Catalog) ReplaceLocaleInPath(path, next string) string {
	segments := strings.Split(path, "/")
	if len(segments) > 1 && contains(config.KnownLocales, segments[1]) {
		segments[1] = next
		return strings.Join(segments, "/")
	}
	if strings.HasPrefix(path, "/") {
		return "/" + next + path
	}
	return "/" + next + "/" + path
}

// For returns a Translator bound to locale.
func (c *Catalog) For(locale string) *Translator {
	return &Translator{Locale: c.Resolve(locale), catalog: c}
}

// Translator is a Catalog bound to one locale; templates receive it as .I18n.
type Translator struct {
	Locale  string
	catalog *Catalog
}

// T returns the message for key.
func (t *Translator) T(key string) string { return t.catalog.T(t.Locale, key) }

// Date formats an ISO timestamp as a medium date.
func (t *Translator) Date(value string) string { return t.catalog.FormatDate(value, t.Locale) }

// DateTime formats an ISO timestamp as a medium date with a short time.
func (t *Translator) DateTime(value string) string {
	return t.catalog.FormatDateTime(value, t.Locale)
}

// Path returns path with its locale segment replaced by locale.
func (t *Translator) Path(path, locale string) string {
	return t.catalog.ReplaceLocaleInPath(path, locale)
}

// Locales returns the supported locales.
func (t *Translator) Locales() []string { return t.catalog.Supported() }

var nativeNames = map[string]string{
	"ko": "한국어",
	"en": "English",
	"ja": "日本語",
}

// Name returns the native name of locale, used by the language switcher.
func Name(locale string) string {
	if n, ok := nativeNames[locale]; ok {
		return n
	}
	return locale
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
