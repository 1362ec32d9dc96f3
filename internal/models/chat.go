package models

import "time"

// ChatMessage is one archived turn of an assistant session.
type ChatMessage struct {
	Role      string    `firestore:"role" json:"role"`
	Content   string    `firestore:"content,omitempty" json:"content,omitempty"`
	Thinking  string    `firestore:"thinking,omitempty" json:"thinking,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	// Encrypted marks Content and Thinking as KMS ciphertext.
	Encrypted bool `firestore:"encrypted,omitempty" json:"-"`
}
