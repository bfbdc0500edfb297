package models

import "time"

// Identity is an authentication record. Credentials and verification state
// only — everything the application renders lives on the Profile document.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	DisplayName   string    `json:"display_name"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

// SessionView is one tick of the session stream. Loading is true only
// during the initial resolve after an identity transition; a nil profile
// with Loading false means logged out.
type SessionView struct {
	Profile *Profile `json:"profile"`
	Loading bool     `json:"loading"`
}
