package usecase

import (
	"context"
	"time"
)

// AuthUsecase issues and validates access tokens and manages push devices.
type AuthUsecase interface {
	// IssueToken signs an access token for userID valid for ttl (config default when zero)
	IssueToken(userID string, ttl time.Duration) (string, error)

	// ValidateToken returns the user id carried by a valid token
	ValidateToken(token string) (string, error)

	RegisterDevice(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterDevice(ctx context.Context, userID, token string) error

	// DeviceTokens lists the push tokens of userID
	DeviceTokens(ctx context.Context, userID string) ([]string, error)

	// PruneTokens removes tokens the push service rejected
	PruneTokens(ctx context.Context, tokens []string) error
}
