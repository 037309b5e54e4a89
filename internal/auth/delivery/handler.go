package delivery

import (
	"net/http"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/httputil"

	"github.com/gin-gonic/gin"
)

// DeviceHandler handles push registration requests
type DeviceHandler struct {
	authUsecase usecase.AuthUsecase
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(authUsecase usecase.AuthUsecase) *DeviceHandler {
	return &DeviceHandler{authUsecase: authUsecase}
}

// RegisterDeviceRequest represents the request body for registering a device
type RegisterDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

// RegisterDevice stores a push token for the caller
// POST /api/devices
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.authUsecase.RegisterDevice(c.Request.Context(), httputil.UserID(c), req.Token, req.DeviceInfo); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "device registered"})
}

// UnregisterDevice removes one of the caller's push tokens
// DELETE /api/devices/:token
func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	if err := h.authUsecase.UnregisterDevice(c.Request.Context(), httputil.UserID(c), c.Param("token")); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device removed"})
}
