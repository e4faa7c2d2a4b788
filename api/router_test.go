package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/cache"
	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/session"
	"github.com/use-agent/imageboard/web"
	"github.com/use-agent/imageboard/webhook"
)

const webhookSecret = "whsec"

type upstream struct {
	mu     sync.Mutex
	routes map[string]string
	status map[string]int
	seen   []string
}

func (u *upstream) set(route string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[route] = body
	u.status[route] = status
}

func (u *upstream) called(route string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.seen {
		if s == route {
			return true
		}
	}
	return false
}

type fixture struct {
	router   *gin.Engine
	cms      *upstream
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &upstream{routes: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		up.mu.Lock()
		up.seen = append(up.seen, route)
		body, ok := up.routes[route]
		status := up.status[route]
		up.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"status":404}}`)
			return
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		CMS:       config.CMSConfig{URL: srv.URL, PublicURL: "http://media.local", Timeout: 5 * time.Second, CommentRelationPrefix: "api::post.post:"},
		Session:   config.SessionConfig{Secret: "test-secret", CookieName: "sid", TTL: time.Hour},
		I18n:      config.I18nConfig{DefaultLocale: "ko", SupportedLocales: config.KnownLocales, TimeZone: "UTC"},
		Upload:    config.UploadConfig{MaxBytes: 1 << 20, AllowedTypes: []string{"image/png"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Cache:     config.CacheConfig{TTL: time.Minute, MaxEntries: 8},
		Metrics:   config.MetricsConfig{Enabled: true},
		Webhook:   config.WebhookConfig{Secret: webhookSecret},
	}

	client := cms.New(cfg.CMS, nil)
	feed := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	t.Cleanup(feed.Close)
	cat, err := i18n.New(cfg.I18n)
	require.NoError(t, err)
	renderer, err := web.New()
	require.NoError(t, err)
	sessions := session.NewManager(cfg.Session)

	r := NewRouter(Deps{
		Config:   cfg,
		Board:    board.New(client, feed, cfg.CMS, cfg.Upload),
		CMS:      client,
		Catalog:  cat,
		Sessions: sessions,
		Webhook:  webhook.NewReceiver(cfg.Webhook.Secret, feed),
		Render:   renderer,
		Static:   web.Static(),
		Started:  time.Now(),
	})
	return &fixture{router: r, cms: up, sessions: sessions}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(t *testing.T, req *http.Request) {
	t.Helper()
	s := f.sessions.New(&models.AuthResult{JWT: "user-jwt", User: &models.User{ID: 7, Username: "alice"}})
	value, err := f.sessions.Encode(s)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "sid", Value: value})
}

func form(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

const feedReply = `{"data":[{"documentId":"doc-1","title":"Sunset","locale":"en","image":{"id":4,"url":"/u/sunset.png"}}],"meta":{}}`

func TestRootRedirectsToNegotiatedLocale(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	w := f.do(req)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/ja", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "/ko", w.Header().Get("Location"))
}

func TestUnprefixedPathsRedirect(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/posts?x=1", nil)
	req.Header.Set("Accept-Language", "en")
	w := f.do(req)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/en/posts?x=1", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/posts/doc-1", nil))
	assert.Equal(t, "/ko/posts/doc-1", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsPage(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/posts", http.StatusOK, feedReply)

	w := f.do(httptest.NewRequest(http.MethodGet, "/en/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Sunset")
	assert.Contains(t, body, `href="/en/posts/doc-1"`)
	assert.Contains(t, body, "http://media.local/u/sunset.png")
	assert.Contains(t, body, `href="/ja/posts"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "en", w.Header().Get("Content-Language"))
}

func TestPostsPageShowsLoadError(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/posts", http.StatusInternalServerError, `{}`)

	w := f.do(httptest.NewRequest(http.MethodGet, "/en/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load posts.")
}

func TestPostDetailNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/en/posts/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func TestPostDetailWithComments(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/posts/doc-1", http.StatusOK, `{"data":{"documentId":"doc-1","title":"Sunset","content":"Warm evening","image":{"id":4,"url":"/u/a.png"}}}`)
	f.cms.set("GET /api/comments/api::post.post:doc-1", http.StatusOK,
		`{"data":[{"id":2,"content":"nice","author":{"id":9,"name":"bob"}}],"meta":{"pagination":{"page":1,"pageSize":10,"pageCount":3}}}`)

	req := httptest.NewRequest(http.MethodGet, "/en/posts/doc-1?err=forbidden", nil)
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Warm evening")
	assert.Contains(t, body, `<meta name="description" content="Warm evening">`)
	assert.Contains(t, body, "nice")
	assert.Contains(t, body, "You can only change your own comments.")
	assert.Contains(t, body, "?cpage=2#comments")
}

func TestLoginSetsSession(t *testing.T) {
	f := newFixture(t)
	f.cms.set("POST /api/auth/local", http.StatusOK, `{"jwt":"user-jwt","user":{"id":7,"username":"alice","email":"a@x.io"}}`)

	w := f.do(form("/en/login?next=/en/posts/doc-1", url.Values{"identifier": {"alice"}, "password": {"secret1"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/posts/doc-1", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	s, err := f.sessions.Decode(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.UserID)
	assert.Equal(t, "user-jwt", s.JWT)
}

func TestLoginFailureRerendersForm(t *testing.T) {
	f := newFixture(t)
	f.cms.set("POST /api/auth/local", http.StatusBadRequest, `{"error":{"message":"Invalid identifier or password"}}`)

	w := f.do(form("/en/login?next=//evil.example", url.Values{"identifier": {"alice"}, "password": {"bad"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials.")

	w = f.do(form("/en/login", url.Values{"identifier": {"alice"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(form("/en/register", url.Values{"username": {"bob"}, "email": {"not-an-email"}, "password": {"secret1"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Enter a valid email address.")

	w = f.do(form("/en/register", url.Values{"username": {"bob"}, "email": {"b@x.io"}, "password": {"123"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Use at least 6 characters.")
	assert.False(t, f.cms.called("POST /api/auth/local/register"))
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	f.cms.set("POST /api/auth/local/register", http.StatusOK, `{"jwt":"j","user":{"id":3}}`)
	f.cms.set("POST /api/auth/local", http.StatusOK, `{"jwt":"j2","user":{"id":3,"username":"bob"}}`)

	w := f.do(form("/en/register", url.Values{"username": {"bob"}, "email": {"b@x.io"}, "password": {"secret1"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/posts", w.Header().Get("Location"))
	assert.True(t, f.cms.called("POST /api/auth/local"))
	require.Len(t, w.Result().Cookies(), 1)
}

func TestNewPostRequiresLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/en/posts/new", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/login?next=%2Fen%2Fposts%2Fnew", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/en/posts/new", nil)
	f.login(t, req)
	w = f.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Write a post")
}

func TestCreatePostWithoutImage(t *testing.T) {
	f := newFixture(t)

	req := form("/en/posts", url.Values{"title": {"t"}, "content": {"c"}})
	f.login(t, req)
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Add at least one image.")
	assert.False(t, f.cms.called("POST /api/posts"))
}

func TestCommentFormRedirects(t *testing.T) {
	f := newFixture(t)

	w := f.do(form("/en/posts/doc-1/comments", url.Values{"content": {"hi"}}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/en/posts/doc-1?err=signin#comments", w.Header().Get("Location"))

	req := form("/en/posts/doc-1/comments", url.Values{"content": {"   "}, "cpage": {"3"}})
	f.login(t, req)
	w = f.do(req)
	assert.Equal(t, "/en/posts/doc-1?cpage=3&err=required#comments", w.Header().Get("Location"))

	f.cms.set("POST /api/comments/api::post.post:doc-1", http.StatusOK, `{"id":5,"content":"hi"}`)
	req = form("/en/posts/doc-1/comments", url.Values{"content": {"hi"}, "threadOf": {"2"}})
	f.login(t, req)
	w = f.do(req)
	assert.Equal(t, "/en/posts/doc-1#comments", w.Header().Get("Location"))
}

func TestDeleteCommentForbidden(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/comments/api::post.post:doc-1", http.StatusOK, `[{"id":2,"content":"x","author":{"id":9}}]`)

	req := form("/en/posts/doc-1/comments/2/delete", url.Values{})
	f.login(t, req)
	w := f.do(req)
	assert.Equal(t, "/en/posts/doc-1?err=forbidden#comments", w.Header().Get("Location"))
	assert.False(t, f.cms.called("DELETE /api/comments/api::post.post:doc-1/comment/2"))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAPIListPosts(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/posts", http.StatusOK, feedReply)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts?locale=en", nil))
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, true, out["success"])
	assert.Len(t, out["data"], 1)
}

func TestAPIGetPostNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["success"])
}

func TestAPIListComments(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/comments/api::post.post:doc-1", http.StatusOK,
		`[{"id":1,"content":"root"},{"id":2,"content":"child","threadOf":1}]`)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/doc-1/comments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	roots := out["data"].([]any)
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].(map[string]any)["children"], 1)
	meta := out["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["count"])
	assert.Equal(t, false, meta["hasMore"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/doc-1/comments?pageSize=1000", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPICommentWritesRequireUser(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/doc-1/comments", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.cms.set("GET /api/users/me", http.StatusOK, `{"id":7,"username":"alice"}`)
	f.cms.set("POST /api/comments/api::post.post:doc-1", http.StatusOK, `{"data":{"id":11,"content":"hi"}}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/posts/doc-1/comments", strings.NewReader(`{"content":"hi","threadOf":3}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-jwt")
	w = f.do(req)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(11), data["id"])
	assert.Equal(t, float64(3), data["threadOf"])
}

func TestAPIDeleteComment(t *testing.T) {
	f := newFixture(t)
	f.cms.set("GET /api/comments/api::post.post:doc-1", http.StatusOK,
		`[{"id":1,"content":"mine","authorId":7},{"id":2,"content":"reply","threadOf":1}]`)
	f.cms.set("PUT /api/comments/api::post.post:doc-1/comment/1", http.StatusOK, `{"id":1,"content":"[deleted]"}`)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/posts/doc-1/comments/1", nil)
	f.login(t, req)
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "soft", data["action"])
}

func TestWebhookInvalidatesFeed(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"entry.update","model":"post"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(string(body)))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(webhookSecret, body))
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]any)["invalidated"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/cms", strings.NewReader(string(body)))
	req.Header.Set(webhook.SignatureHeader, "sha256=00")
	w = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var h models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "unreachable", h.CMS)

	f.cms.set("GET /_health", http.StatusNoContent, "")
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "healthy", h.Status)
}

func TestStaticAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "imageboard_http_requests_total")
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}
