package domain

import "github.com/golang-jwt/jwt/v5"

// Claims are carried by access tokens. Users live in the chat platform, so
// the subject is an opaque user id.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
