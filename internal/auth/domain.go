package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is returned to the SPA after login and by /me.
type Identity struct {
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
	CSRFToken   string   `json:"csrf_token"`
}
