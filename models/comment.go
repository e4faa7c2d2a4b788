package models

// CommentAuthor is the embedded author object of a comment.
type CommentAuthor struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Comment is a normalized comment. ThreadOf is nil for top-level comments.
type Comment struct {
	ID        int64          `json:"id"`
	Content   string         `json:"content"`
	Deleted   bool           `json:"deleted,omitempty"`
	Removed   bool           `json:"removed,omitempty"`
	Blocked   bool           `json:"blocked,omitempty"`
	AuthorID  int64          `json:"authorId,omitempty"`
	Author    *CommentAuthor `json:"author,omitempty"`
	ThreadOf  *int64         `json:"threadOf"`
	CreatedAt string         `json:"createdAt,omitempty"`
	Children  []*Comment     `json:"children,omitempty"`
}

// CommentInput is the payload for creating a comment or reply.
type CommentInput struct {
	Content  string `json:"content"`
	ThreadOf *int64 `json:"threadOf,omitempty"`
	Locale   string `json:"locale,omitempty"`
}
