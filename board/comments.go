package board

import (
	"context"
	"strings"

	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/thread"
)

const (
	// CommentPageSize is the page size of the comment thread on post pages.
	CommentPageSize = 10

	// maxThreadPages bounds how many pages a full thread scan may load.
	maxThreadPages = 20
	scanPageSize   = 100
)

// Thread is the visible forest of a comment thread.
type Thread struct {
	Roots []*models.Comment

	// Comments is the merged flat list the forest was built from.
	Comments []models.Comment

	// Count is the number of visible comments.
	Count   int
	Page    int
	HasMore bool
}

// LoadThread loads pages 1..pages of relation with pageSize comments each and
// rebuilds the forest.
func (s *Service) LoadThread(ctx context.Context, relation string, pages, pageSize int, locale string) (*Thread, error) {
	if pages < 1 {
		pages = 1
	}
	if pageSize < 1 {
		pageSize = CommentPageSize
	}

	var (
		merged  []models.Comment
		hasMore bool
		page    int
	)
	for page = 1; page <= pages; page++ {
		items, more, err := s.commentPage(ctx, relation, page, pageSize, locale)
		if err != nil {
			return nil, err
		}
		merged = thread.Upsert(merged, items)
		hasMore = more
		if !more {
			break
		}
	}
	if page > pages {
		page = pages
	}

	visible := thread.Visible(merged)
	return &Thread{
		Roots:    thread.BuildTree(visible),
		Comments: merged,
		Count:    len(visible),
		Page:     page,
		HasMore:  hasMore,
	}, nil
}

// commentPage fetches one page and reports whether more pages follow: by
// pagination when the CMS sends it, else by a full page.
func (s *Service) commentPage(ctx context.Context, relation string, page, pageSize int, locale string) ([]models.Comment, bool, error) {
	res, err := s.cms.ListComments(ctx, relation, page, pageSize, locale)
	if err != nil {
		return nil, false, err
	}
	items := thread.Flatten(res.Items, nil)

	if p := res.Pagination; p != nil {
		current, count := p.Page, p.PageCount
		if current == 0 {
			current = 1
		}
		if count == 0 {
			count = 1
		}
		return items, current < count, nil
	}
	return items, len(items) >= pageSize, nil
}

// allComments loads the whole thread (bounded) for ownership and reply
// checks.
func (s *Service) allComments(ctx context.Context, relation, locale string) ([]models.Comment, error) {
	var merged []models.Comment
	for page := 1; page <= maxThreadPages; page++ {
		items, more, err := s.commentPage(ctx, relation, page, scanPageSize, locale)
		if err != nil {
			return nil, err
		}
		merged = thread.Upsert(merged, items)
		if !more {
			break
		}
	}
	return merged, nil
}

// AddComment posts a comment, or a reply when parent is set. The returned
// comment carries parent even when the CMS omits threadOf.
func (s *Service) AddComment(ctx context.Context, relation, content string, parent *int64, locale string, actor Actor) (*models.Comment, error) {
	if actor.Token == "" {
		return nil, unauthorized()
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewAppError(models.ErrCodeInvalidInput, "content is required", nil)
	}

	raw, err := s.cms.CreateComment(ctx, relation, models.CommentInput{Content: content, ThreadOf: parent}, actor.Token, locale)
	if err != nil {
		return nil, err
	}
	c, ok := thread.Normalize(raw)
	if !ok {
		return nil, models.NewAppError(models.ErrCodeCMS, "unexpected comment reply", nil)
	}
	if c.ThreadOf == nil && parent != nil {
		p := *parent
		c.ThreadOf = &p
	}
	return &c, nil
}

// EditComment replaces the content of a comment owned by actor.
func (s *Service) EditComment(ctx context.Context, relation string, id int64, content, locale string, actor Actor) (*models.Comment, error) {
	if actor.Token == "" {
		return nil, unauthorized()
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewAppError(models.ErrCodeInvalidInput, "content is required", nil)
	}

	all, err := s.allComments(ctx, relation, locale)
	if err != nil {
		return nil, err
	}
	existing, err := owned(all, id, actor)
	if err != nil {
		return nil, err
	}
	if thread.IsSoftDeleted(existing) {
		return nil, forbidden("comment was deleted")
	}

	raw, err := s.cms.UpdateComment(ctx, relation, id, content, actor.Token)
	if err != nil {
		return nil, err
	}
	updated, ok := thread.Normalize(raw)
	if !ok {
		updated = *existing
		updated.Content = content
	}
	merged := thread.Upsert([]models.Comment{*existing}, []models.Comment{updated})
	return &merged[0], nil
}

// DeleteComment removes a comment owned by actor. A comment with replies is
// soft deleted so the replies stay attached; otherwise it is hard deleted.
func (s *Service) DeleteComment(ctx context.Context, relation string, id int64, locale string, actor Actor) (thread.Action, error) {
	if actor.Token == "" {
		return thread.HardDelete, unauthorized()
	}
	all, err := s.allComments(ctx, relation, locale)
	if err != nil {
		return thread.HardDelete, err
	}
	if _, err := owned(all, id, actor); err != nil {
		return thread.HardDelete, err
	}

	action := thread.DeleteAction(all, id)
	switch action {
	case thread.SoftDelete:
		_, err = s.cms.UpdateComment(ctx, relation, id, thread.SoftDeletePlaceholder, actor.Token)
	default:
		err = s.cms.DeleteComment(ctx, relation, id, actor.Token, actor.UserID)
	}
	return action, err
}

func owned(all []models.Comment, id int64, actor Actor) (*models.Comment, error) {
	c, ok := thread.Find(all, id)
	if !ok {
		return nil, models.NewAppError(models.ErrCodeNotFound, "comment not found", nil)
	}
	if !thread.IsOwner(c, actor.UserID) {
		return nil, forbidden("not the comment author")
	}
	return c, nil
}
