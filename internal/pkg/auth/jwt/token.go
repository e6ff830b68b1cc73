package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// UserIdentityExpiration is the lifetime of an account token.
	UserIdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "MMO-DevServer"
)

// ErrNotJWT is returned by PeekClaims for tokens that are not three-part JWTs.
var ErrNotJWT = errors.New("token is not a JWT")

// GenerateToken creates and signs a new JWT Token string based on the provided Payload struct.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the JWT Token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}

// PeekClaims decodes the claims of a token without verifying its signature.
// The game client never holds the signing secret; it only uses this to show
// who the token belongs to and when it expires.
func PeekClaims(tokenString string) (*Payload, error) {
	claims := &Payload{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}

	return claims, nil
}

// Expiry returns the token's expiry, and false when the claim is absent.
func (p *Payload) Expiry() (time.Time, bool) {
	if p.StandardClaims.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(p.StandardClaims.ExpiresAt, 0), true
}
