// Package session keeps the logged-in user in a signed cookie. The cookie
// value is base64url(JSON payload) + "." + base64url(HMAC-SHA256(payload)).
// The payload carries the CMS JWT so that mutations can be forwarded to the
// CMS on the user's behalf.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/models"
)

var (
	// ErrMalformed is returned for values that are not a signed payload.
	ErrMalformed = errors.New("session: malformed cookie")
	// ErrSignature is returned when the signature does not match.
	ErrSignature = errors.New("session: invalid signature")
	// ErrExpired is returned for sessions past their expiry.
	ErrExpired = errors.New("session: expired")
)

// Session is the signed cookie payload.
type Session struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	JWT      string `json:"jwt"`
	Expires  int64  `json:"exp"` // unix seconds
}

// User returns the session's user.
func (s *Session) User() *models.User {
	return &models.User{ID: s.UserID, Username: s.Username, Email: s.Email}
}

// Label is the name shown in the navigation: username, else email.
func (s *Session) Label() string {
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}

// Manager signs, verifies and stores sessions.
type Manager struct {
	secret []byte
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a Manager from cfg.
func NewManager(cfg config.SessionConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.Secret),
		cookie: cfg.CookieName,
		ttl:    cfg.TTL,
		secure: cfg.Secure,
		now:    time.Now,
	}
}

// New builds a session for a successful CMS login.
func (m *Manager) New(auth *models.AuthResult) *Session {
	s := &Session{
		JWT:     auth.JWT,
		Expires: m.now().Add(m.ttl).Unix(),
	}
	if auth.User != nil {
		s.UserID = auth.User.ID
		s.Username = auth.User.Username
		s.Email = auth.User.Email
	}
	return s
}

// Encode serializes and signs s.
func (m *Manager) Encode(s *Session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + m.sign(body), nil
}

// Decode verifies value and returns its session.
func (m *Manager) Decode(value string) (*Session, error) {
	body, sig, ok := strings.Cut(value, ".")
	if !ok || body == "" || sig == "" {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(body))) {
		return nil, ErrSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrMalformed
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, ErrMalformed
	}
	if s.Expires <= m.now().Unix() {
		return nil, ErrExpired
	}
	if s.JWT == "" {
		return nil, ErrMalformed
	}
	return &s, nil
}

func (m *Manager) sign(body string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Save writes s as the session cookie.
func (m *Manager) Save(c *gin.Context, s *Session) error {
	value, err := m.Encode(s)
	if err != nil {
		return err
	}
	maxAge := int(time.Until(time.Unix(s.Expires, 0)).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie, value, maxAge, "/", "", m.secure, true)
	return nil
}

// Load reads and verifies the session cookie of the request.
func (m *Manager) Load(c *gin.Context) (*Session, error) {
	value, err := c.Cookie(m.cookie)
	if err != nil {
		return nil, err
	}
	return m.Decode(value)
}

// Clear removes the session cookie.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie, "", -1, "/", "", m.secure, true)
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.cookie }
