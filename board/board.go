// Package board orchestrates the image board on top of the CMS: the cached
// post feed, post writes with their image uploads, and comment threads.
package board

import (
	"context"
	"errors"
	"net/http"

	"github.com/use-agent/imageboard/cache"
	"github.com/use-agent/imageboard/cms"
	"github.com/use-agent/imageboard/config"
	"github.com/use-agent/imageboard/models"
)

// Validation failures of a post draft. Handlers map them to form messages.
var (
	ErrNoImage       = errors.New("board: at least one image is required")
	ErrTooManyImages = errors.New("board: only one new image can be uploaded")
	ErrFileType      = errors.New("board: unsupported image type")
	ErrFileSize      = errors.New("board: image too large")
	ErrNoDocumentID  = errors.New("board: CMS reply carried no documentId")
)

// Actor is the authenticated user on whose behalf a write is made.
type Actor struct {
	UserID int64
	Token  string
}

// Service is safe for concurrent use.
type Service struct {
	cms            *cms.Client
	feed           *cache.Cache
	mediaBase      string
	relationPrefix string
	upload         config.UploadConfig
}

// New creates a Service. feed may be nil to disable caching.
func New(client *cms.Client, feed *cache.Cache, cmsCfg config.CMSConfig, uploadCfg config.UploadConfig) *Service {
	return &Service{
		cms:            client,
		feed:           feed,
		mediaBase:      cmsCfg.PublicURL,
		relationPrefix: cmsCfg.CommentRelationPrefix,
		upload:         uploadCfg,
	}
}

// Ping reports whether the CMS is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.cms.Ping(ctx)
}

// CacheStats reports the feed cache counters.
func (s *Service) CacheStats() models.CacheStats {
	if s.feed == nil {
		return models.CacheStats{}
	}
	return s.feed.Stats()
}

// InvalidateFeed drops every cached feed.
func (s *Service) InvalidateFeed() {
	if s.feed != nil {
		s.feed.Invalidate()
	}
}

// Relation returns the comment thread address of a post.
func (s *Service) Relation(postID string) string {
	return s.relationPrefix + postID
}

func unauthorized() error {
	return &models.AppError{Code: models.ErrCodeUnauthorized, Status: http.StatusUnauthorized, Message: "login required"}
}

func forbidden(msg string) error {
	return &models.AppError{Code: models.ErrCodeForbidden, Status: http.StatusForbidden, Message: msg}
}
