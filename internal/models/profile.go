package models

import (
	"time"
)

// Profile is one-to-one with an authenticated user; ID is the auth UID.
type Profile struct {
	ID        string    `json:"id"`
	Username  *string   `json:"username,omitempty"`
	FullName  *string   `json:"fullName,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
