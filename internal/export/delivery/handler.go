package delivery

import (
	"net/http"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/httputil"

	"github.com/gin-gonic/gin"
)

// ExportHandler handles export configs and export runs
type ExportHandler struct {
	exportUsecase usecase.ExportUsecase
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exportUsecase usecase.ExportUsecase) *ExportHandler {
	return &ExportHandler{exportUsecase: exportUsecase}
}

// ExportRequest represents the request body for an export run
type ExportRequest struct {
	ConfigID   string   `json:"configId" binding:"required"`
	InsightIDs []string `json:"insightIds" binding:"required,min=1"`
}

// Export pushes insights through a config
// POST /api/exports
func (h *ExportHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.exportUsecase.ExportInsights(c.Request.Context(), httputil.UserID(c), req.ConfigID, req.InsightIDs)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetConfigs lists the caller's export configs
// GET /api/exports/configs
func (h *ExportHandler) GetConfigs(c *gin.Context) {
	configs, err := h.exportUsecase.ListConfigs(c.Request.Context(), httputil.UserID(c))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// CreateConfig creates an export config
// POST /api/exports/configs
func (h *ExportHandler) CreateConfig(c *gin.Context) {
	var input usecase.ConfigInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.exportUsecase.CreateConfig(c.Request.Context(), httputil.UserID(c), input)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// UpdateConfig replaces an export config
// PUT /api/exports/configs/:id
func (h *ExportHandler) UpdateConfig(c *gin.Context) {
	var input usecase.ConfigInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.exportUsecase.UpdateConfig(c.Request.Context(), httputil.UserID(c), c.Param("id"), input)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// DeleteConfig deletes an export config
// DELETE /api/exports/configs/:id
func (h *ExportHandler) DeleteConfig(c *gin.Context) {
	if err := h.exportUsecase.DeleteConfig(c.Request.Context(), httputil.UserID(c), c.Param("id")); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "export config deleted"})
}
