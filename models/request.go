package models

import "strings"

// PostForm is the payload of the create/edit post form.
type PostForm struct {
	// Title of the post. Required.
	Title string `form:"title" json:"title" binding:"required"`

	// Content is the post body. Required.
	Content string `form:"content" json:"content" binding:"required"`

	// KeepImageID is the media id of the existing image the author kept.
	// Zero means the existing image was removed (or there was none).
	KeepImageID int64 `form:"keepImageId" json:"keepImageId,omitempty"`
}

// Normalize trims surrounding whitespace.
func (f *PostForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
}

// LoginForm is the payload of the login form.
type LoginForm struct {
	// Identifier is an email or a username.
	Identifier string `form:"identifier" json:"identifier" binding:"required"`
	Password   string `form:"password" json:"password" binding:"required"`
}

// RegisterForm is the payload of the registration form.
type RegisterForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=6"`
}

// Normalize trims surrounding whitespace from the identity fields.
func (f *RegisterForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// CommentForm is the payload for creating a comment, a reply, or editing one.
type CommentForm struct {
	Content  string `form:"content" json:"content" binding:"required"`
	ThreadOf *int64 `form:"threadOf" json:"threadOf,omitempty" binding:"omitempty,min=1"`
}

// Normalize trims the comment body and drops an empty parent reference.
func (f *CommentForm) Normalize() {
	f.Content = strings.TrimSpace(f.Content)
	if f.ThreadOf != nil && *f.ThreadOf <= 0 {
		f.ThreadOf = nil
	}
}
