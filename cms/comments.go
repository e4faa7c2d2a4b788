package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/use-agent/imageboard/models"
)

// CommentPage is one page of raw comments. Pagination is nil when the CMS
// replied with a bare array.
type CommentPage struct {
	Items      []json.RawMessage
	Pagination *models.Pagination
}

func commentsPath(relation string) string {
	return "/api/comments/" + url.PathEscape(relation)
}

// ListComments fetches a page of the thread attached to relation.
func (c *Client) ListComments(ctx context.Context, relation string, page, pageSize int, locale string) (*CommentPage, error) {
	params := url.Values{}
	params.Set("pagination[page]", strconv.Itoa(page))
	params.Set("pagination[pageSize]", strconv.Itoa(pageSize))
	if locale != "" {
		params.Set("locale", locale)
	}

	var raw json.RawMessage
	opts := Options{Locale: locale, NoServiceToken: true}
	if err := c.Do(ctx, http.MethodGet, commentsPath(relation)+"?"+params.Encode(), opts, &raw); err != nil {
		return nil, err
	}

	out := &CommentPage{}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return out, nil
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &out.Items); err != nil {
			return nil, models.NewAppError(models.ErrCodeCMS, "failed to decode comments", err)
		}
	default:
		var env listEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, models.NewAppError(models.ErrCodeCMS, "failed to decode comments", err)
		}
		out.Items = env.Data
		out.Pagination = env.Meta.Pagination
	}
	return out, nil
}

// CreateComment posts a comment (or a reply when in.ThreadOf is set). The
// comments plugin expects the locale in the body, not in the query string.
func (c *Client) CreateComment(ctx context.Context, relation string, in models.CommentInput, token, locale string) (json.RawMessage, error) {
	if locale != "" {
		in.Locale = locale
	}
	var raw json.RawMessage
	opts := Options{Body: in, Locale: locale, AuthToken: token, NoServiceToken: true}
	if err := c.Do(ctx, http.MethodPost, commentsPath(relation), opts, &raw); err != nil {
		return nil, err
	}
	return unwrapData(raw), nil
}

// UpdateComment replaces the content of a comment.
func (c *Client) UpdateComment(ctx context.Context, relation string, id int64, content, token string) (json.RawMessage, error) {
	path := commentsPath(relation) + "/comment/" + strconv.FormatInt(id, 10)

	var raw json.RawMessage
	opts := Options{Body: map[string]string{"content": content}, AuthToken: token, NoServiceToken: true}
	if err := c.Do(ctx, http.MethodPut, path, opts, &raw); err != nil {
		return nil, err
	}
	return unwrapData(raw), nil
}

// DeleteComment hard-deletes a comment. authorID is forwarded as the
// authorId query parameter when non-zero.
func (c *Client) DeleteComment(ctx context.Context, relation string, id int64, token string, authorID int64) error {
	path := commentsPath(relation) + "/comment/" + strconv.FormatInt(id, 10)
	if authorID != 0 {
		path += "?authorId=" + url.QueryEscape(strconv.FormatInt(authorID, 10))
	}
	return c.Do(ctx, http.MethodDelete, path, Options{AuthToken: token, NoServiceToken: true}, nil)
}
