package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/imageboard/api/handler"
	"github.com/use-agent/imageboard/api/middleware"
	"github.com/use-agent/imageboard/board"
	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/i18n"
	"github.com/use-agent/imageboard/session"
	"github.com/use-agent/imageboard/webhook"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Board    *board.Service
	CMS      *cms.Client
	Catalog  *i18n.Catalog
	Sessions *session.Manager
	Webhook  *webhook.Receiver
	Render   render.HTMLRender
	Static   http.FileSystem
	Started  time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → RequestLog → Metrics → Session
//	Pages:   Locale; RateLimit on form posts
//	API:     RequireUser + RateLimit on comment writes
//
// Health, metrics and the webhook sit outside auth so probes and the CMS
// always reach them.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLog())
	r.Use(middleware.Metrics())
	r.Use(middleware.Session(d.Sessions))

	r.HTMLRender = d.Render
	if d.Static != nil {
		r.StaticFS("/static", d.Static)
	}
	if d.Config.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	maxUpload := d.Config.Upload.MaxBytes

	// JSON API.
	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Board, d.Started))
	v1.POST("/webhooks/cms", handler.Webhook(d.Webhook))
	v1.GET("/posts", handler.APIListPosts(d.Board, d.Catalog))
	v1.GET("/posts/:id", handler.APIGetPost(d.Board, d.Catalog))
	v1.GET("/posts/:id/comments", handler.APIListComments(d.Board))

	protected := v1.Group("")
	protected.Use(middleware.RequireUser(d.CMS))
	protected.Use(middleware.RateLimit(d.Config.RateLimit, nil))
	protected.POST("/posts/:id/comments", handler.APICreateComment(d.Board))
	protected.PUT("/posts/:id/comments/:cid", handler.APIUpdateComment(d.Board))
	protected.DELETE("/posts/:id/comments/:cid", handler.APIDeleteComment(d.Board))

	// Localized pages.
	r.GET("/", handler.Root(d.Catalog))

	pages := r.Group("/:locale")
	pages.Use(middleware.Locale(d.Catalog))
	pages.GET("", handler.Home(d.Board))
	pages.GET("/posts", handler.Posts(d.Board))
	pages.GET("/posts/new", handler.NewPost())
	pages.GET("/posts/:id", handler.PostDetail(d.Board))
	pages.GET("/posts/:id/edit", handler.EditPost(d.Board))
	pages.GET("/login", handler.LoginPage())
	pages.GET("/register", handler.RegisterPage())

	forms := pages.Group("")
	forms.Use(middleware.RateLimit(d.Config.RateLimit, handler.RateLimited))
	forms.POST("/posts", handler.CreatePost(d.Board, maxUpload))
	forms.POST("/posts/:id", handler.UpdatePost(d.Board, maxUpload))
	forms.POST("/posts/:id/delete", handler.DeletePost(d.Board))
	forms.POST("/posts/:id/comments", handler.AddComment(d.Board))
	forms.POST("/posts/:id/comments/:cid/edit", handler.EditComment(d.Board))
	forms.POST("/posts/:id/comments/:cid/delete", handler.DeleteComment(d.Board))
	forms.POST("/login", handler.Login(d.CMS, d.Sessions))
	forms.POST("/register", handler.Register(d.CMS, d.Sessions))
	forms.POST("/logout", handler.Logout(d.Sessions))

	r.NoRoute(handler.NotFound(d.Catalog))

	return r
}
