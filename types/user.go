package types

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, generated on insert.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen at registration.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the salted bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
