package board

import (
	"context"
	"strings"

	"github.com/use-agent/imageboard/cache"
	"github.com/use-agent/imageboard/cleaner"
	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/normalize"
)

// Feed returns the normalized posts of locale, served from the cache when
// fresh.
func (s *Service) Feed(ctx context.Context, locale string) ([]models.Post, error) {
	key := cache.Key(locale)
	if s.feed != nil {
		if posts, ok := s.feed.Get(key); ok {
			return posts, nil
		}
	}

	res, err := s.cms.ListPosts(ctx, locale)
	if err != nil {
		return nil, err
	}
	posts := normalize.Posts(res.Items, s.mediaBase)
	if s.feed != nil {
		s.feed.Set(key, posts)
	}
	return posts, nil
}

// Slides returns the home page hero slides for locale.
func (s *Service) Slides(ctx context.Context, locale string) ([]models.Slide, error) {
	posts, err := s.Feed(ctx, locale)
	if err != nil {
		return nil, err
	}
	return normalize.Slides(posts, locale), nil
}

// Post fetches and normalizes one post. A reply that cannot be normalized is
// reported as not found.
func (s *Service) Post(ctx context.Context, id, locale string) (*models.Post, error) {
	raw, err := s.cms.GetPost(ctx, id, locale)
	if err != nil {
		return nil, err
	}
	p, ok := normalize.Post(raw, s.mediaBase)
	if !ok {
		return nil, models.NewAppError(models.ErrCodeNotFound, "post not found", nil)
	}
	return &p, nil
}

// Draft is a submitted create or edit form.
type Draft struct {
	Title   string
	Content string
	Locale  string

	// KeepImageID is the existing image kept by the author, or zero.
	KeepImageID int64

	Uploads []Upload
}

// CreatePost uploads the draft's image, creates the post and returns its
// documentId.
func (s *Service) CreatePost(ctx context.Context, d Draft, actor Actor) (string, error) {
	in, err := s.prepare(ctx, d, actor)
	if err != nil {
		return "", err
	}
	raw, err := s.cms.CreatePost(ctx, in, actor.Token)
	if err != nil {
		return "", err
	}
	s.InvalidateFeed()

	id := normalize.DocumentID(raw)
	if id == "" {
		return "", ErrNoDocumentID
	}
	return id, nil
}

// UpdatePost uploads the draft's image and updates post id. It returns the
// documentId to redirect to.
func (s *Service) UpdatePost(ctx context.Context, id string, d Draft, actor Actor) (string, error) {
	in, err := s.prepare(ctx, d, actor)
	if err != nil {
		return "", err
	}
	raw, err := s.cms.UpdatePost(ctx, id, in, actor.Token)
	if err != nil {
		return "", err
	}
	s.InvalidateFeed()

	if doc := normalize.DocumentID(raw); doc != "" {
		return doc, nil
	}
	return id, nil
}

// DeletePost deletes post id.
func (s *Service) DeletePost(ctx context.Context, id string, actor Actor) error {
	if actor.Token == "" {
		return unauthorized()
	}
	if err := s.cms.DeletePost(ctx, id, actor.Token); err != nil {
		return err
	}
	s.InvalidateFeed()
	return nil
}

// prepare validates the draft, uploads the new image and builds the CMS
// payload. Image ids are [kept existing image, first uploaded image].
func (s *Service) prepare(ctx context.Context, d Draft, actor Actor) (models.PostInput, error) {
	if actor.Token == "" {
		return models.PostInput{}, unauthorized()
	}

	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" || strings.TrimSpace(d.Content) == "" {
		return models.PostInput{}, models.NewAppError(models.ErrCodeInvalidInput, "title and content are required", nil)
	}

	kept := 0
	if d.KeepImageID > 0 {
		kept = 1
	}
	if kept+len(d.Uploads) == 0 {
		return models.PostInput{}, ErrNoImage
	}
	if len(d.Uploads) > 1 {
		return models.PostInput{}, ErrTooManyImages
	}

	content, err := cleaner.ToPlain(d.Content)
	if err != nil {
		return models.PostInput{}, models.NewAppError(models.ErrCodeInvalidInput, "could not read post content", err)
	}

	ids := make([]int64, 0, 2)
	if d.KeepImageID > 0 {
		ids = append(ids, d.KeepImageID)
	}
	if len(d.Uploads) > 0 {
		media, err := s.uploadImages(ctx, d.Uploads, actor.Token)
		if err != nil {
			return models.PostInput{}, err
		}
		if len(media) > 0 && media[0].ID != 0 {
			ids = append(ids, media[0].ID)
		}
	}

	return models.PostInput{
		Title:    d.Title,
		Content:  content,
		Locale:   d.Locale,
		ImageIDs: ids,
	}, nil
}
