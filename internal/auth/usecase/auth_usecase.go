package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const authComponent = "auth"

var ErrInvalidToken = errors.New("invalid or expired token")

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	devices repository.DeviceTokenRepository
	config  *config.Config
	now     func() time.Time
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(devices repository.DeviceTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		devices: devices,
		config:  cfg,
		now:     time.Now,
	}
}

func (u *authUsecase) IssueToken(userID string, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperr.Validation(authComponent, "user id is required")
	}
	if ttl <= 0 {
		ttl = u.config.JWTAccessExpiry
	}
	now := u.now()
	claims := authdomain.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	var claims authdomain.Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (u *authUsecase) RegisterDevice(ctx context.Context, userID, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation(authComponent, "token is required")
	}
	if err := u.devices.SaveToken(ctx, userID, token, deviceInfo); err != nil {
		return apperr.Wrap(apperr.ErrTransient, authComponent, "register device", "", err)
	}
	return nil
}

func (u *authUsecase) UnregisterDevice(ctx context.Context, userID, token string) error {
	n, err := u.devices.DeleteToken(ctx, userID, token)
	if err != nil {
		return apperr.Wrap(apperr.ErrTransient, authComponent, "unregister device", "", err)
	}
	if n == 0 {
		return apperr.Wrap(apperr.ErrNotFound, authComponent, "unregister device", "device token not found", nil)
	}
	return nil
}

func (u *authUsecase) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := u.devices.TokensForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load device tokens: %w", err)
	}
	tokens := make([]string, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, row.Token)
	}
	return tokens, nil
}

func (u *authUsecase) PruneTokens(ctx context.Context, tokens []string) error {
	return u.devices.DeleteTokens(ctx, tokens)
}
