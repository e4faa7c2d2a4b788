package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/models"
)

// commentQuery is the query string of GET /api/v1/posts/:id/comments.
type commentQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1,max=20"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	Locale   string `form:"locale"`
}

// commentBody is the JSON body of comment writes.
type commentBody struct {
	Content  string `json:"content" binding:"required"`
	ThreadOf *int64 `json:"threadOf,omitempty" binding:"omitempty,min=1"`
}

// APIListPosts returns a handler for GET /api/v1/posts?locale=.
func APIListPosts(b *board.Service, cat *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := b.Feed(c.Request.Context(), cat.Resolve(c.Query("locale")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Data:    posts,
			Meta:    gin.H{"count": len(posts)},
		})
	}
}

// APIGetPost returns a handler for GET /api/v1/posts/:id.
func APIGetPost(b *board.Service, cat *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := b.Post(c.Request.Context(), c.Param("id"), cat.Resolve(c.Query("locale")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: post})
	}
}

// APIListComments returns a handler for GET /api/v1/posts/:id/comments.
//
// Pages 1..page are merged into one forest, the same view the post page
// renders.
func APIListComments(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q commentQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if q.Page == 0 {
			q.Page = 1
		}
		if q.PageSize == 0 {
			q.PageSize = board.CommentPageSize
		}

		th, err := b.LoadThread(c.Request.Context(), b.Relation(c.Param("id")), q.Page, q.PageSize, q.Locale)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Data:    th.Roots,
			Meta:    models.CommentsMeta{Page: th.Page, Count: th.Count, HasMore: th.HasMore},
		})
	}
}

// APICreateComment returns a handler for POST /api/v1/posts/:id/comments.
func APICreateComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body commentBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		s := middleware.SessionFrom(c)
		comment, err := b.AddComment(c.Request.Context(), b.Relation(c.Param("id")), body.Content, body.ThreadOf, c.Query("locale"), actorOf(s))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.APIResponse{Success: true, Data: comment})
	}
}

// APIUpdateComment returns a handler for PUT /api/v1/posts/:id/comments/:cid.
func APIUpdateComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := commentID(c)
		if !ok {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, "invalid comment id", nil))
			return
		}
		var body commentBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		s := middleware.SessionFrom(c)
		comment, err := b.EditComment(c.Request.Context(), b.Relation(c.Param("id")), id, body.Content, c.Query("locale"), actorOf(s))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: comment})
	}
}

// APIDeleteComment returns a handler for DELETE /api/v1/posts/:id/comments/:cid.
// The reply says whether the comment was soft or hard deleted.
func APIDeleteComment(b *board.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := commentID(c)
		if !ok {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, "invalid comment id", nil))
			return
		}

		s := middleware.SessionFrom(c)
		action, err := b.DeleteComment(c.Request.Context(), b.Relation(c.Param("id")), id, c.Query("locale"), actorOf(s))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Data:    gin.H{"id": id, "action": action.String()},
		})
	}
}
