package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/models"
)

// maxCommentPages bounds ?cpage so one page view cannot fan out unbounded.
const maxCommentPages = 20

// flashMessages whitelists the ?err= codes a redirect may carry.
var flashMessages = map[string]string{
	"signin":         "Comments.signinRequired",
	"required":       "Comments.contentRequired",
	"submit":         "Comments.submitError",
	"update":         "Comments.updateError",
	"delete":         "Comments.deleteError",
	"forbidden":      "Comments.forbidden",
	"post-delete":    "Posts.deleteError",
	"post-forbidden": "Posts.forbidden",
}

func flashKey(code string) (string, bool) {
	key, ok := flashMessages[code]
	return key, ok
}

// backToComments redirects to the comment section of the post, keeping the
// number of loaded pages. flash is a flashMessages code or "".
func backToComments(c *gin.Context, flash string) {
	target := localePath(c, "/posts/"+c.Param("id"))
	q := ""
	if cpage := boundedInt(c.PostForm("cpage"), 1, 1, maxCommentPages); cpage > 1 {
		q = "cpage=" + strconv.Itoa(cpage)
	}
	if flash != "" {
		if q != "" {
			q += "&"
		}
		q += "err=" + flash
	}
	if q != "" {
		target += "?" + q
	}
	c.Redirect(http.StatusSeeOther, target+"#comments")
}

// AddComment returns a handler for POST /:locale/posts/:id/comments. A
// threadOf field makes it a reply.
func AddComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			backToComments(c, "signin")
			return
		}

		var form models.CommentForm
		if err := c.ShouldBind(&form); err != nil {
			backToComments(c, validationKey(err, map[string]string{"required": "required"}, "submit"))
			return
		}
		form.Normalize()
		if form.Content == "" {
			backToComments(c, "required")
			return
		}

		_, err := b.AddComment(c.Request.Context(), b.Relation(c.Param("id")), form.Content, form.ThreadOf, middleware.LocaleFrom(c), actorOf(s))
		if err != nil {
			slog.Warn("add comment failed", "post", c.Param("id"), "error", err)
			backToComments(c, commentFlash(err, "submit"))
			return
		}
		backToComments(c, "")
	}
}

// EditComment returns a handler for POST /:locale/posts/:id/comments/:cid/edit.
func EditComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			backToComments(c, "signin")
			return
		}
		id, ok := commentID(c)
		if !ok {
			backToComments(c, "update")
			return
		}

		content := c.PostForm("content")
		_, err := b.EditComment(c.Request.Context(), b.Relation(c.Param("id")), id, content, middleware.LocaleFrom(c), actorOf(s))
		if err != nil {
			slog.Warn("edit comment failed", "comment", id, "error", err)
			backToComments(c, commentFlash(err, "update"))
			return
		}
		backToComments(c, "")
	}
}

// DeleteComment returns a handler for POST /:locale/posts/:id/comments/:cid/delete.
func DeleteComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			backToComments(c, "signin")
			return
		}
		id, ok := commentID(c)
		if !ok {
			backToComments(c, "delete")
			return
		}

		action, err := b.DeleteComment(c.Request.Context(), b.Relation(c.Param("id")), id, middleware.LocaleFrom(c), actorOf(s))
		if err != nil {
			slog.Warn("delete comment failed", "comment", id, "error", err)
			backToComments(c, commentFlash(err, "delete"))
			return
		}
		slog.Info("comment deleted", "comment", id, "action", action.String())
		backToComments(c, "")
	}
}

func commentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("cid"), 10, 64)
	return id, err == nil && id > 0
}

// commentFlash picks the flash code for a failed comment write.
func commentFlash(err error, fallback string) string {
	switch {
	case isUnauthorized(err):
		return "signin"
	case isForbidden(err):
		return "forbidden"
	case mapErrorToStatus(toAppError(err)) == http.StatusBadRequest:
		return "required"
	}
	return fallback
}
