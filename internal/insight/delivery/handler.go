package delivery

import (
	"net/http"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/httputil"

	"github.com/gin-gonic/gin"
)

// InsightHandler handles insight queries
type InsightHandler struct {
	insightUsecase usecase.InsightUsecase
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(insightUsecase usecase.InsightUsecase) *InsightHandler {
	return &InsightHandler{insightUsecase: insightUsecase}
}

// GetTranscriptInsights lists the active insights of a transcript
// GET /api/transcripts/:id/insights
func (h *InsightHandler) GetTranscriptInsights(c *gin.Context) {
	insights, err := h.insightUsecase.ListForTranscript(c.Request.Context(), httputil.UserID(c), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"insights": insights,
		"total":    len(insights),
	})
}

// Search runs a semantic query over the caller's insights
// GET /api/insights/search?q=slow+exports&limit=10
func (h *InsightHandler) Search(c *gin.Context) {
	results, err := h.insightUsecase.Search(c.Request.Context(), httputil.UserID(c), c.Query("q"), httputil.QueryInt(c, "limit", 10))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
