package board

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/imageboard/cache"
	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/thread"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type call struct {
	method string
	path   string
	query  string
	body   string
}

// fakeCMS routes "METHOD /path" to canned replies and records every call.
type fakeCMS struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]func(r *http.Request) (int, string)
}

func (f *fakeCMS) handle(method, path string, fn func(r *http.Request) (int, string)) {
	f.routes[method+" "+path] = fn
}

func (f *fakeCMS) reply(method, path string, status int, body string) {
	f.handle(method, path, func(*http.Request) (int, string) { return status, body })
}

func (f *fakeCMS) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func (f *fakeCMS) last(method, path string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method && f.calls[i].path == path {
			return f.calls[i], true
		}
	}
	return call{}, false
}

func newService(t *testing.T) (*Service, *fakeCMS) {
	t.Helper()
	f := &fakeCMS{routes: map[string]func(*http.Request) (int, string){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		fn, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"no route"}`)
			return
		}
		status, reply := fn(r)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	cmsCfg := config.CMSConfig{URL: srv.URL, PublicURL: "http://media.local", Timeout: 5 * time.Second, CommentRelationPrefix: "api::post.post:"}
	feed := cache.New(8, time.Minute)
	t.Cleanup(feed.Close)
	svc := New(cms.New(cmsCfg, nil), feed, cmsCfg, config.UploadConfig{
		MaxBytes:     1 << 20,
		AllowedTypes: []string{"image/png", "image/jpeg"},
	})
	return svc, f
}

func upload(name string, data []byte) Upload {
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

var actor = Actor{UserID: 7, Token: "jwt"}

func TestFeed_CachesPerLocale(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodGet, "/api/posts", http.StatusOK,
		`{"data":[{"documentId":"a","title":"A","image":{"url":"/u/a.png"}},{"title":"broken"}],"meta":{}}`)

	posts, err := svc.Feed(context.Background(), "ko")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "http://media.local/u/a.png", posts[0].Images[0].URL)

	_, err = svc.Feed(context.Background(), "ko")
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(http.MethodGet, "/api/posts"))

	slides, err := svc.Slides(context.Background(), "ko")
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, "/ko/posts/a", slides[0].Href)

	svc.InvalidateFeed()
	_, err = svc.Feed(context.Background(), "ko")
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(http.MethodGet, "/api/posts"))
	assert.Equal(t, int64(2), svc.CacheStats().Hits)
}

func TestPost_NotFound(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodGet, "/api/posts/missing", http.StatusNotFound, `{"error":{}}`)
	f.reply(http.MethodGet, "/api/posts/empty", http.StatusOK, `{"data":null}`)

	_, err := svc.Post(context.Background(), "missing", "en")
	assert.True(t, models.IsNotFound(err))
	_, err = svc.Post(context.Background(), "empty", "en")
	assert.True(t, models.IsNotFound(err))
}

func TestCreatePost_UploadsThenCreates(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodPost, "/api/upload", http.StatusOK, `[{"id": 31, "url": "/u/new.png"}]`)
	f.reply(http.MethodPost, "/api/posts", http.StatusOK, `{"data":{"id":1,"documentId":"doc-1"}}`)

	id, err := svc.CreatePost(context.Background(), Draft{
		Title:       " Hello ",
		Content:     "<p>Body <script>x()</script></p>",
		Locale:      "en",
		KeepImageID: 12,
		Uploads:     []Upload{upload("new.png", pngBytes)},
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	up, ok := f.last(http.MethodPost, "/api/upload")
	require.True(t, ok)
	assert.Contains(t, up.body, `name="files"; filename="new.png"`)

	created, ok := f.last(http.MethodPost, "/api/posts")
	require.True(t, ok)
	assert.JSONEq(t, `{"data":{"title":"Hello","content":"Body","locale":"en","images":[12,31]}}`, created.body)
	assert.Equal(t, "locale=en", created.query)
}

func TestCreatePost_Validation(t *testing.T) {
	svc, f := newService(t)

	_, err := svc.CreatePost(context.Background(), Draft{Title: "t", Content: "c", Uploads: []Upload{upload("a.png", pngBytes)}}, Actor{})
	assert.True(t, errors.As(err, new(*models.AppError)))

	_, err = svc.CreatePost(context.Background(), Draft{Title: "t", Content: "c"}, actor)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = svc.CreatePost(context.Background(), Draft{Title: "t", Content: "c",
		Uploads: []Upload{upload("a.png", pngBytes), upload("b.png", pngBytes)}}, actor)
	assert.ErrorIs(t, err, ErrTooManyImages)

	_, err = svc.CreatePost(context.Background(), Draft{Title: "t", Content: "c",
		Uploads: []Upload{upload("a.txt", []byte("plain text, not an image"))}}, actor)
	assert.ErrorIs(t, err, ErrFileType)

	big := append(append([]byte(nil), pngBytes...), bytes.Repeat([]byte{0}, 2<<20)...)
	_, err = svc.CreatePost(context.Background(), Draft{Title: "t", Content: "c",
		Uploads: []Upload{upload("big.png", big)}}, actor)
	assert.ErrorIs(t, err, ErrFileSize)

	_, err = svc.CreatePost(context.Background(), Draft{Title: "  ", Content: "c", KeepImageID: 1}, actor)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeInvalidInput, appErr.Code)

	assert.Zero(t, f.count(http.MethodPost, "/api/posts"))
}

func TestUpdatePost_FallsBackToGivenID(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodPut, "/api/posts/doc-9", http.StatusOK, `{"data":{"id":9}}`)

	id, err := svc.UpdatePost(context.Background(), "doc-9", Draft{Title: "t", Content: "c", KeepImageID: 4}, actor)
	require.NoError(t, err)
	assert.Equal(t, "doc-9", id)
	assert.Zero(t, f.count(http.MethodPost, "/api/upload"))
}

func TestDeletePost(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodDelete, "/api/posts/doc-2", http.StatusNoContent, "")
	require.NoError(t, svc.DeletePost(context.Background(), "doc-2", actor))
	assert.Error(t, svc.DeletePost(context.Background(), "doc-2", Actor{}))
}

const relPath = "/api/comments/api::post.post:doc"

func TestLoadThread_CumulativePages(t *testing.T) {
	svc, f := newService(t)
	f.handle(http.MethodGet, relPath, func(r *http.Request) (int, string) {
		switch r.URL.Query().Get("pagination[page]") {
		case "1":
			return http.StatusOK, `{"data":[{"id":3,"content":"c3","children":[{"id":4,"content":"r4"}]},{"id":2,"content":"[deleted]"}],
				"meta":{"pagination":{"page":1,"pageSize":2,"pageCount":2,"total":4}}}`
		default:
			return http.StatusOK, `{"data":[{"id":1,"content":"c1"},{"id":5,"threadOf":2,"content":"reply to deleted"}],
				"meta":{"pagination":{"page":2,"pageSize":2,"pageCount":2,"total":4}}}`
		}
	})

	first, err := svc.LoadThread(context.Background(), svc.Relation("doc"), 1, 2, "en")
	require.NoError(t, err)
	assert.True(t, first.HasMore)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 2, first.Count, "soft-deleted comment without replies is hidden")

	all, err := svc.LoadThread(context.Background(), svc.Relation("doc"), 5, 2, "en")
	require.NoError(t, err)
	assert.False(t, all.HasMore)
	assert.Equal(t, 2, all.Page)
	assert.Equal(t, 5, all.Count)
	require.Len(t, all.Roots, 3)
	assert.Equal(t, int64(3), all.Roots[0].ID)
	assert.Equal(t, int64(2), all.Roots[1].ID)
	assert.Equal(t, int64(5), all.Roots[1].Children[0].ID)
	assert.Equal(t, int64(4), all.Roots[0].Children[0].ID)
}

func TestLoadThread_BareArray(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodGet, relPath, http.StatusOK, `[{"id":"1","content":"x"}]`)

	th, err := svc.LoadThread(context.Background(), svc.Relation("doc"), 1, 10, "")
	require.NoError(t, err)
	assert.False(t, th.HasMore)
	assert.Equal(t, 1, th.Count)
}

func TestAddComment_KeepsParent(t *testing.T) {
	svc, f := newService(t)
	f.reply(http.MethodPost, relPath, http.StatusOK, `{"data":{"id":11,"content":"hi"}}`)

	parent := int64(3)
	c, err := svc.AddComment(context.Background(), svc.Relation("doc"), " hi ", &parent, "ko", actor)
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.ID)
	require.NotNil(t, c.ThreadOf)
	assert.Equal(t, int64(3), *c.ThreadOf)

	sent, _ := f.last(http.MethodPost, relPath)
	assert.JSONEq(t, `{"content":"hi","threadOf":3,"locale":"ko"}`, sent.body)

	_, err = svc.AddComment(context.Background(), svc.Relation("doc"), "   ", nil, "ko", actor)
	assert.Error(t, err)
}

func threadWith(f *fakeCMS) {
	f.reply(http.MethodGet, relPath, http.StatusOK,
		`[{"id":1,"content":"parent","authorId":7,"children":[{"id":2,"content":"child","author":{"id":8}}]},{"id":3,"content":"solo","author":{"id":7}}]`)
}

func TestDeleteComment_SoftWhenReplied(t *testing.T) {
	svc, f := newService(t)
	threadWith(f)
	f.reply(http.MethodPut, relPath+"/comment/1", http.StatusOK, `{"id":1,"content":"[deleted]"}`)

	action, err := svc.DeleteComment(context.Background(), svc.Relation("doc"), 1, "", actor)
	require.NoError(t, err)
	assert.Equal(t, thread.SoftDelete, action)

	sent, _ := f.last(http.MethodPut, relPath+"/comment/1")
	assert.JSONEq(t, `{"content":"[deleted]"}`, sent.body)
	assert.Zero(t, f.count(http.MethodDelete, relPath+"/comment/1"))
}

func TestDeleteComment_HardWhenLeaf(t *testing.T) {
	svc, f := newService(t)
	threadWith(f)
	f.reply(http.MethodDelete, relPath+"/comment/3", http.StatusOK, `{}`)

	action, err := svc.DeleteComment(context.Background(), svc.Relation("doc"), 3, "", actor)
	require.NoError(t, err)
	assert.Equal(t, thread.HardDelete, action)

	sent, _ := f.last(http.MethodDelete, relPath+"/comment/3")
	assert.Equal(t, "authorId=7", sent.query)
}

func TestDeleteComment_Ownership(t *testing.T) {
	svc, f := newService(t)
	threadWith(f)

	_, err := svc.DeleteComment(context.Background(), svc.Relation("doc"), 2, "", actor)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeForbidden, appErr.Code)

	_, err = svc.DeleteComment(context.Background(), svc.Relation("doc"), 99, "", actor)
	assert.True(t, models.IsNotFound(err))
}

func TestEditComment(t *testing.T) {
	svc, f := newService(t)
	threadWith(f)
	f.reply(http.MethodPut, relPath+"/comment/3", http.StatusOK, `{"data":{"id":3,"content":"edited"}}`)

	c, err := svc.EditComment(context.Background(), svc.Relation("doc"), 3, "edited", "", actor)
	require.NoError(t, err)
	assert.Equal(t, "edited", c.Content)
	require.NotNil(t, c.Author, "author survives a reply that omits it")
	assert.Equal(t, int64(7), c.Author.ID)

	_, err = svc.EditComment(context.Background(), svc.Relation("doc"), 2, "nope", "", actor)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), models.ErrCodeForbidden))
}
