package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/use-agent/imageboard/models"
)

// ListResult is a page of raw list items plus pagination metadata.
type ListResult struct {
	Items []json.RawMessage
	Meta  models.ListMeta
}

type listEnvelope struct {
	Data []json.RawMessage `json:"data"`
	Meta models.ListMeta   `json:"meta"`
}

// localeParam returns locale, or "all" when none is given.
func localeParam(locale string) string {
	if locale == "" {
		return "all"
	}
	return locale
}

// ListPosts fetches the post feed for locale with all relations populated.
// Items are left raw; the normalize package turns them into models.Post.
func (c *Client) ListPosts(ctx context.Context, locale string) (*ListResult, error) {
	path := "/api/posts?populate=*&locale=" + url.QueryEscape(localeParam(locale))

	var env listEnvelope
	if err := c.Do(ctx, http.MethodGet, path, Options{Locale: locale}, &env); err != nil {
		return nil, err
	}
	return &ListResult{Items: env.Data, Meta: env.Meta}, nil
}

// GetPost fetches a single post by documentId (or legacy id). The whole reply
// is returned so callers can normalize either envelope shape.
func (c *Client) GetPost(ctx context.Context, id, locale string) (json.RawMessage, error) {
	if id == "" {
		return nil, models.NewAppError(models.ErrCodeInvalidInput, "post id is required", nil)
	}
	path := "/api/posts/" + url.PathEscape(id) + "?populate=*&locale=" + url.QueryEscape(localeParam(locale))

	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, Options{Locale: locale}, &raw); err != nil {
		if models.IsNotFound(err) {
			return nil, &models.AppError{Code: models.ErrCodeNotFound, Status: http.StatusNotFound, Message: "post not found", Err: err}
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &models.AppError{Code: models.ErrCodeNotFound, Status: http.StatusNotFound, Message: "post not found"}
	}
	return raw, nil
}

// CreatePost creates a post on behalf of the user owning token.
func (c *Client) CreatePost(ctx context.Context, in models.PostInput, token string) (json.RawMessage, error) {
	path := "/api/posts"
	if in.Locale != "" {
		path += "?locale=" + url.QueryEscape(in.Locale)
	}
	return c.writePost(ctx, http.MethodPost, path, in, token)
}

// UpdatePost replaces the editable fields of the post identified by documentID.
func (c *Client) UpdatePost(ctx context.Context, documentID string, in models.PostInput, token string) (json.RawMessage, error) {
	if documentID == "" {
		return nil, models.NewAppError(models.ErrCodeInvalidInput, "post id is required", nil)
	}
	path := "/api/posts/" + url.PathEscape(documentID)
	if in.Locale != "" {
		path += "?locale=" + url.QueryEscape(in.Locale)
	}
	return c.writePost(ctx, http.MethodPut, path, in, token)
}

func (c *Client) writePost(ctx context.Context, method, path string, in models.PostInput, token string) (json.RawMessage, error) {
	if in.ImageIDs == nil {
		in.ImageIDs = []int64{}
	}
	var raw json.RawMessage
	opts := Options{
		Body:      map[string]any{"data": in},
		Locale:    in.Locale,
		AuthToken: token,
	}
	if err := c.Do(ctx, method, path, opts, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DeletePost deletes the post identified by documentID.
func (c *Client) DeletePost(ctx context.Context, documentID, token string) error {
	if documentID == "" {
		return models.NewAppError(models.ErrCodeInvalidInput, "post id is required", nil)
	}
	return c.Do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(documentID), Options{AuthToken: token}, nil)
}
