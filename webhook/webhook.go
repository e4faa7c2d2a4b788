// Package webhook receives CMS webhooks. The CMS calls back when entries are
// created, updated, published or deleted; post and media events drop the
// cached feeds so the next page view sees the change.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>".
const SignatureHeader = "X-Webhook-Signature"

var (
	// ErrDisabled is returned when no secret is configured.
	ErrDisabled = errors.New("webhook: receiver disabled")
	// ErrUnauthorized is returned when neither the signature nor the token match.
	ErrUnauthorized = errors.New("webhook: invalid signature")
)

// Event is the payload the CMS posts to webhook endpoints.
type Event struct {
	Event     string          `json:"event"` // e.g. "entry.create", "entry.update", "media.delete"
	Model     string          `json:"model"`
	UID       string          `json:"uid"`
	CreatedAt string          `json:"createdAt"`
	Entry     json.RawMessage `json:"entry"`
	Media     json.RawMessage `json:"media,omitempty"`
}

// AffectsFeed reports whether the event may change a cached feed.
func (e *Event) AffectsFeed() bool {
	if strings.HasPrefix(e.Event, "media.") {
		return true
	}
	return e.Model == "post" || e.UID == "api::post.post"
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts either a valid signature header or an Authorization header
// equal to the secret (optionally as a Bearer token), which is how the CMS
// admin panel lets webhooks carry a static header.
func Verify(secret string, body []byte, signature, authorization string) error {
	if secret == "" {
		return ErrDisabled
	}
	if signature != "" && hmac.Equal([]byte(signature), []byte(Sign(secret, body))) {
		return nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorization), "Bearer "))
	if token != "" && hmac.Equal([]byte(token), []byte(secret)) {
		return nil
	}
	return ErrUnauthorized
}

// Parse decodes an event body.
func Parse(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("webhook: decode event: %w", err)
	}
	if e.Event == "" {
		return nil, errors.New("webhook: event name is missing")
	}
	return &e, nil
}

// Invalidator drops cached data.
type Invalidator interface {
	Invalidate()
}

// Receiver verifies events and invalidates the feed cache.
type Receiver struct {
	secret string
	cache  Invalidator
}

// NewReceiver creates a Receiver. An empty secret disables it.
func NewReceiver(secret string, cache Invalidator) *Receiver {
	return &Receiver{secret: secret, cache: cache}
}

// Enabled reports whether a secret is configured.
func (r *Receiver) Enabled() bool { return r.secret != "" }

// Handle verifies and applies one webhook delivery.
func (r *Receiver) Handle(body []byte, signature, authorization string) (*Event, error) {
	if err := Verify(r.secret, body, signature, authorization); err != nil {
		return nil, err
	}
	event, err := Parse(body)
	if err != nil {
		return nil, err
	}

	invalidated := false
	if event.AffectsFeed() && r.cache != nil {
		r.cache.Invalidate()
		invalidated = true
	}
	slog.Info("cms webhook received",
		"event", event.Event,
		"model", event.Model,
		"invalidated", invalidated,
	)
	return event, nil
}
