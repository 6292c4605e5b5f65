package model

import "time"

// User represents a registered account.
//
// WHY TWO PASSWORD FIELDS?
// Accounts are stored with a bcrypt hash (PasswordHash). Files written by
// older versions of the app stored the password in clear text under
// "password". LegacyPassword lets us read those records; the first
// successful login replaces it with a hash and clears it.
//
// Both fields are excluded from API responses: handlers only ever return
// PublicUser.
type User struct {
	ID             string    `json:"id,omitempty"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"passwordHash,omitempty"`
	LegacyPassword string    `json:"password,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
}

// PublicUser is the subset of a User that is safe to send to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Public returns the client-safe view of the user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}
