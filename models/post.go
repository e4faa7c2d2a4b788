package models

// ImageFormat is one of the resized renditions the CMS generates for an upload
// (thumbnail, small, medium, large, xlarge).
type ImageFormat struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Image is a normalized media entry attached to a post.
type Image struct {
	// ID is the CMS media id; needed to keep the image when a post is edited.
	ID      *int64                 `json:"id,omitempty"`
	URL     string                 `json:"url"`
	Alt     string                 `json:"alt,omitempty"`
	Width   int                    `json:"width,omitempty"`
	Height  int                    `json:"height,omitempty"`
	Formats map[string]ImageFormat `json:"formats,omitempty"`
}

// Post is the normalized representation of a CMS post entry, independent of
// whether the CMS replied with a flat or an attributes-nested shape.
type Post struct {
	// ID is the documentId, or the stringified legacy numeric id.
	ID string `json:"id"`

	// DocumentID is empty when the CMS only supplied a legacy numeric id.
	DocumentID string  `json:"documentId,omitempty"`
	LegacyID   *int64  `json:"legacyId,omitempty"`
	Title      string  `json:"title"`
	Content    string  `json:"content,omitempty"`
	Locale     string  `json:"locale,omitempty"`
	Slug       string  `json:"slug,omitempty"`
	Images     []Image `json:"images"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// Cover returns the first image of the post, or nil.
func (p *Post) Cover() *Image {
	if len(p.Images) == 0 {
		return nil
	}
	return &p.Images[0]
}

// Gallery returns the images after the cover.
func (p *Post) Gallery() []Image {
	if len(p.Images) < 2 {
		return nil
	}
	return p.Images[1:]
}

// PostInput is the payload written to the CMS on create/update.
type PostInput struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Locale   string  `json:"locale,omitempty"`
	ImageIDs []int64 `json:"images"`
}

// Slide is one entry of the home page hero slider.
type Slide struct {
	ID       string
	Title    string
	ImageURL string
	Alt      string
	Href     string
}

// Media is an uploaded file as returned by the CMS upload endpoint.
type Media struct {
	ID              int64                  `json:"id"`
	URL             string                 `json:"url"`
	Name            string                 `json:"name,omitempty"`
	Mime            string                 `json:"mime,omitempty"`
	AlternativeText string                 `json:"alternativeText,omitempty"`
	Caption         string                 `json:"caption,omitempty"`
	Width           int                    `json:"width,omitempty"`
	Height          int                    `json:"height,omitempty"`
	Formats         map[string]ImageFormat `json:"formats,omitempty"`
}

// Pagination mirrors the CMS list pagination metadata.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// ListMeta is the meta object of a CMS list response.
type ListMeta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}
