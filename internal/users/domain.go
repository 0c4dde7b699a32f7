package users

import "time"

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries a new account.
type CreateInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// UpdateInput carries admin changes; nil fields stay as they are.
type UpdateInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin staff"`
	IsActive *bool   `json:"is_active"`
}

// ProfileInput is a user's change to their own account.
type ProfileInput struct {
	FullName        string `json:"full_name" validate:"max=120"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

// record is a stored row including the password hash.
type record struct {
	User
	PasswordHash string
}
