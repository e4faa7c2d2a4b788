// Package cleaner prepares post bodies: pasted HTML is sanitized and stored
// as Markdown, and plain-text excerpts are derived for page metadata.
package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ExcerptLength is the rune budget of the meta description excerpt.
const ExcerptLength = 120

var (
	htmlTag    = regexp.MustCompile(`(?i)<(p|div|br|span|a|img|ul|ol|li|h[1-6]|strong|em|b|i|u|blockquote|pre|code|table|tr|td|script|style|iframe)\b[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// LooksLikeHTML reports whether body contains common HTML elements.
func LooksLikeHTML(body string) bool {
	return htmlTag.MatchString(body)
}

// ToPlain normalizes a submitted post body. HTML is sanitized and converted to
// Markdown; anything else is only trimmed.
func ToPlain(body string) (string, error) {
	body = strings.TrimSpace(body)
	if !LooksLikeHTML(body) {
		return body, nil
	}
	clean, err := Sanitize(body)
	if err != nil {
		return "", err
	}
	md, err := ToMarkdown(defaultConverter, clean, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// Text returns the visible text of body with whitespace collapsed.
func Text(body string) string {
	if !LooksLikeHTML(body) {
		return strings.TrimSpace(whitespace.ReplaceAllString(body, " "))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(body)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(whitespace.ReplaceAllString(doc.Text(), " "))
}

// Excerpt returns at most n runes of the visible text of body.
func Excerpt(body string, n int) string {
	text := Text(body)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n]))
}
