/*
Package user contains the account and character records of the development backend.

It defines the server-side representation of a game account and of the characters it
owns, and an in-memory Store that enforces the same uniqueness rules as the game
database: usernames and emails are unique across accounts, character names are unique
per account.
*/
package user

import "time"

// ValidClasses lists the character classes the backend accepts. Anything else is
// stored as DefaultClass.
var ValidClasses = []string{"warrior", "mage", "archer", "healer", "priest"}

// DefaultClass is the class assigned when none or an unknown one is requested.
const DefaultClass = "warrior"

// Account represents a registered player account.
type Account struct {
	// ID is the numeric account identifier embedded in tokens as user_id.
	ID int `json:"user_id"`

	// Username is the unique login name.
	Username string `json:"username"`

	// Email is the unique contact address.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the password; never serialized.
	PasswordHash string `json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Character is a character row as the backend returns it.
type Character struct {
	ID        int       `json:"character_id"`
	UserID    int       `json:"-"`
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	Level     int       `json:"level"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Health    int       `json:"health"`
	Mana      int       `json:"mana"`
	CreatedAt time.Time `json:"created_at"`
}
