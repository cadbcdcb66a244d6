package domain

import (
	"errors"
	"time"
)

// User is the core account entity. Password holds the encoded Argon2id hash,
// never the cleartext.
type User struct {
	ID        string
	Name      string
	Email     string
	Password  string
	Enabled   bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Password == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// Active reports whether the user may authenticate.
func (u *User) Active() bool {
	return u.Enabled && !u.Deleted
}
