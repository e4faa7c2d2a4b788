package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/cleaner"
	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/session"
)

// multipartOverhead is allowed on top of the image size limit for the text
// fields of a post form.
const multipartOverhead = 1 << 20

// Home returns a handler for GET /:locale.
//
// Shows the hero slider built from the feed. A CMS failure is logged and
// rendered as an error line instead of failing the page.
func Home(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := middleware.TranslatorFrom(c)
		data := gin.H{"Nav": "home"}

		slides, err := b.Slides(c.Request.Context(), t.Locale)
		if err != nil {
			slog.Error("failed to load slides", "locale", t.Locale, "error", err)
			data["Error"] = t.T("Posts.loadError")
		}
		data["Slides"] = slides
		render(c, http.StatusOK, "home", data)
	}
}

// Posts returns a handler for GET /:locale/posts.
func Posts(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := middleware.TranslatorFrom(c)
		data := gin.H{"Nav": "posts", "Title": t.T("Posts.title")}

		posts, err := b.Feed(c.Request.Context(), t.Locale)
		if err != nil {
			slog.Error("failed to load posts", "locale", t.Locale, "error", err)
			data["Error"] = t.T("Posts.loadError")
		}
		data["Posts"] = posts
		render(c, http.StatusOK, "posts", data)
	}
}

// PostDetail returns a handler for GET /:locale/posts/:id.
//
// The comment section loads pages 1..cpage so "load more" is a plain link.
// A failing comment load degrades to an error line under the post.
func PostDetail(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := middleware.TranslatorFrom(c)
		ctx := c.Request.Context()

		post, err := b.Post(ctx, c.Param("id"), t.Locale)
		if err != nil {
			renderError(c, err)
			return
		}

		cpage := boundedInt(c.Query("cpage"), 1, 1, maxCommentPages)
		data := gin.H{
			"Nav":         "posts",
			"Title":       post.Title,
			"Description": cleaner.Excerpt(post.Content, cleaner.ExcerptLength),
			"Post":        post,
			"Cover":       post.Cover(),
			"Gallery":     post.Gallery(),
			"CommentPage": cpage,
		}
		if key, ok := flashKey(c.Query("err")); ok {
			data["Flash"] = t.T(key)
		}

		th, err := b.LoadThread(ctx, b.Relation(post.ID), cpage, board.CommentPageSize, t.Locale)
		if err != nil {
			slog.Warn("failed to load comments", "post", post.ID, "error", err)
			data["CommentsError"] = t.T("Comments.loadError")
		} else {
			data["Thread"] = th
			data["NextPage"] = th.Page + 1
		}
		render(c, http.StatusOK, "post", data)
	}
}

// NewPost returns a handler for GET /:locale/posts/new.
func NewPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			loginRedirect(c)
			return
		}
		renderPostForm(c, http.StatusOK, nil, models.PostForm{}, "")
	}
}

// CreatePost returns a handler for POST /:locale/posts.
//
// Flow: bind form → upload image → create post → redirect to its page.
func CreatePost(b *board.Service, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			loginRedirect(c)
			return
		}

		form, draft, key := bindDraft(c, maxBytes)
		if key != "" {
			renderPostForm(c, http.StatusBadRequest, nil, form, key)
			return
		}
		draft.Locale = middleware.LocaleFrom(c)

		id, err := b.CreatePost(c.Request.Context(), draft, actorOf(s))
		if err != nil {
			if errors.Is(err, board.ErrNoDocumentID) {
				c.Redirect(http.StatusSeeOther, localePath(c, "/posts"))
				return
			}
			if isUnauthorized(err) {
				loginRedirect(c)
				return
			}
			slog.Warn("create post failed", "error", err)
			renderPostForm(c, statusFor(err), nil, form, postFormKey(err))
			return
		}
		c.Redirect(http.StatusSeeOther, localePath(c, "/posts/"+id))
	}
}

// EditPost returns a handler for GET /:locale/posts/:id/edit. Only the
// cover image is offered for keeping.
func EditPost(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			loginRedirect(c)
			return
		}
		post, err := b.Post(c.Request.Context(), c.Param("id"), middleware.LocaleFrom(c))
		if err != nil {
			renderError(c, err)
			return
		}

		form := models.PostForm{Title: post.Title, Content: post.Content}
		if cover := post.Cover(); cover != nil && cover.ID != nil {
			form.KeepImageID = *cover.ID
		}
		renderPostForm(c, http.StatusOK, post, form, "")
	}
}

// UpdatePost returns a handler for POST /:locale/posts/:id. The post keeps
// its own locale; the route locale is used only when it has none.
func UpdatePost(b *board.Service, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			loginRedirect(c)
			return
		}
		ctx := c.Request.Context()
		locale := middleware.LocaleFrom(c)

		post, err := b.Post(ctx, c.Param("id"), locale)
		if err != nil {
			renderError(c, err)
			return
		}

		form, draft, key := bindDraft(c, maxBytes)
		if key != "" {
			renderPostForm(c, http.StatusBadRequest, post, form, key)
			return
		}
		draft.Locale = post.Locale
		if draft.Locale == "" {
			draft.Locale = locale
		}

		id, err := b.UpdatePost(ctx, post.ID, draft, actorOf(s))
		if err != nil {
			if isUnauthorized(err) {
				loginRedirect(c)
				return
			}
			slog.Warn("update post failed", "post", post.ID, "error", err)
			renderPostForm(c, statusFor(err), post, form, postFormKey(err))
			return
		}
		c.Redirect(http.StatusSeeOther, localePath(c, "/posts/"+id))
	}
}

// DeletePost returns a handler for POST /:locale/posts/:id/delete.
func DeletePost(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			loginRedirect(c)
			return
		}
		id := c.Param("id")
		if err := b.DeletePost(c.Request.Context(), id, actorOf(s)); err != nil {
			slog.Warn("delete post failed", "post", id, "error", err)
			flash := "post-delete"
			if isForbidden(err) {
				flash = "post-forbidden"
			}
			c.Redirect(http.StatusSeeOther, localePath(c, "/posts/"+id)+"?err="+flash)
			return
		}
		c.Redirect(http.StatusSeeOther, localePath(c, "/posts"))
	}
}

// bindDraft binds the multipart post form. It returns a message key when
// the form itself is invalid.
func bindDraft(c *gin.Context, maxBytes int64) (models.PostForm, board.Draft, string) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	var form models.PostForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, board.Draft{}, "PostForm.validation.fileSize"
		}
		form.Normalize()
		return form, board.Draft{}, validationKey(err, map[string]string{
			"required": "PostForm.validation.required",
		}, "PostForm.unknownError")
	}
	form.Normalize()
	if form.Title == "" || form.Content == "" {
		return form, board.Draft{}, "PostForm.validation.required"
	}

	draft := board.Draft{
		Title:       form.Title,
		Content:     form.Content,
		KeepImageID: form.KeepImageID,
	}
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["image"] {
			if fh.Size == 0 && fh.Filename == "" {
				continue
			}
			draft.Uploads = append(draft.Uploads, board.FromFileHeader(fh))
		}
	}
	return form, draft, ""
}

func renderPostForm(c *gin.Context, status int, post *models.Post, form models.PostForm, errKey string) {
	t := middleware.TranslatorFrom(c)
	data := gin.H{
		"Nav":  "posts",
		"Form": form,
	}
	if post == nil {
		data["Title"] = t.T("PostForm.createTitle")
		data["Action"] = localePath(c, "/posts")
		data["Submit"] = t.T("PostForm.submitCreate")
		data["Cancel"] = localePath(c, "/posts")
	} else {
		data["Title"] = t.T("PostForm.editTitle")
		data["Action"] = localePath(c, "/posts/"+post.ID)
		data["Submit"] = t.T("PostForm.submitUpdate")
		data["Cancel"] = localePath(c, "/posts/"+post.ID)
		data["Existing"] = post.Cover()
	}
	if errKey != "" {
		data["Error"] = t.T(errKey)
	}
	render(c, status, "post_form", data)
}

// statusFor is the status of a re-rendered form after a failed write.
func statusFor(err error) int {
	status := mapErrorToStatus(toAppError(err))
	if status >= http.StatusInternalServerError {
		return http.StatusBadGateway
	}
	return status
}

func actorOf(s *session.Session) board.Actor {
	return board.Actor{UserID: s.UserID, Token: s.JWT}
}

// boundedInt parses raw, returning def when it is not an integer and
// clamping it to [lo, hi].
func boundedInt(raw string, def, lo, hi int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
