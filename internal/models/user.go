package models

import "time"

// User is a Pantry account
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// UpdateUserRequest is the payload for PATCH /api/user/me
type UpdateUserRequest struct {
	Name string `json:"name" binding:"max=120"`
}
