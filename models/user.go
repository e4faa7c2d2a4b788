package models

// User is the CMS user attached to a session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResult is the reply of the CMS local auth endpoints.
type AuthResult struct {
	JWT  string `json:"jwt"`
	User *User  `json:"user"`
}
