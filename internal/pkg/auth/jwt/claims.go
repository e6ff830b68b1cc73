package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of the bearer tokens issued to game accounts.
// The user_id and username claims match what the game backend signs.
type Payload struct {
	jwt.StandardClaims

	// UserID is the numeric account identifier.
	UserID int `json:"user_id"`

	// Username is the account's login name.
	Username string `json:"username"`
}
