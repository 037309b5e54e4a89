package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, usecase.AuthUsecase) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	auth := usecase.NewAuthUsecase(repository.NewDeviceTokenRepository(db), &config.Config{JWTSecret: "s", JWTAccessExpiry: time.Hour})

	r := gin.New()
	r.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})
	r.POST("/hook", WebhookSecretMiddleware("shh"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/closed", WebhookSecretMiddleware(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	handler := NewDeviceHandler(auth)
	devices := r.Group("/devices", AuthMiddleware(auth))
	devices.POST("", handler.RegisterDevice)
	devices.DELETE("/:token", handler.UnregisterDevice)
	return r, auth
}

func TestAuthMiddleware(t *testing.T) {
	r, auth := newRouter(t)
	token, err := auth.IssueToken("U42", 0)
	require.NoError(t, err)

	for header, want := range map[string]int{
		"":                 http.StatusUnauthorized,
		"Token abc":        http.StatusUnauthorized,
		"Bearer not-a-jwt": http.StatusUnauthorized,
		"Bearer " + token:  http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, header)
		if want == http.StatusOK {
			assert.JSONEq(t, `{"userID":"U42"}`, w.Body.String())
		}
	}
}

func TestWebhookSecretMiddleware(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Webhook-Secret", "shh")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Webhook-Secret", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/closed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
