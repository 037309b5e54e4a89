package delivery

import (
	"net/http"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/httputil"

	"github.com/gin-gonic/gin"
)

// TranscriptHandler handles transcript-related HTTP requests
type TranscriptHandler struct {
	ingestion   usecase.IngestionUsecase
	transcripts usecase.TranscriptUsecase
}

// NewTranscriptHandler creates a new TranscriptHandler
func NewTranscriptHandler(ingestion usecase.IngestionUsecase, transcripts usecase.TranscriptUsecase) *TranscriptHandler {
	return &TranscriptHandler{ingestion: ingestion, transcripts: transcripts}
}

// IngestRequest represents the request body for submitting a transcript
type IngestRequest struct {
	Title             string                 `json:"title"`
	Content           string                 `json:"content"`
	Origin            string                 `json:"origin"`
	OwnerUserID       string                 `json:"ownerUserId"`
	ChannelID         string                 `json:"channelId"`
	Language          string                 `json:"language"`
	DurationSeconds   *int                   `json:"durationSeconds"`
	ParticipantCount  *int                   `json:"participantCount"`
	ExternalMeetingID string                 `json:"externalMeetingId"`
	CallbackURL       string                 `json:"callbackUrl"`
	Metadata          map[string]interface{} `json:"metadata"`
}

func (r IngestRequest) toUsecase() usecase.IngestRequest {
	return usecase.IngestRequest{
		Title:             r.Title,
		Content:           r.Content,
		Origin:            r.Origin,
		OwnerUserID:       r.OwnerUserID,
		ChannelID:         r.ChannelID,
		Language:          r.Language,
		DurationSeconds:   r.DurationSeconds,
		ParticipantCount:  r.ParticipantCount,
		ExternalMeetingID: r.ExternalMeetingID,
		CallbackURL:       r.CallbackURL,
		Metadata:          r.Metadata,
	}
}

// Ingest submits content on behalf of the authenticated user
// POST /api/transcripts
func (h *TranscriptHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := httputil.UserID(c)
	if req.OwnerUserID != "" && req.OwnerUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot ingest on behalf of another user"})
		return
	}
	req.OwnerUserID = userID
	h.ingest(c, req.toUsecase())
}

// IngestWebhook accepts content from a trusted integration
// POST /api/webhooks/transcripts
func (h *TranscriptHandler) IngestWebhook(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.toUsecase()
	in.Origin = string(domain.OriginInboundWebhook)
	h.ingest(c, in)
}

func (h *TranscriptHandler) ingest(c *gin.Context, req usecase.IngestRequest) {
	result, err := h.ingestion.Ingest(c.Request.Context(), req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// GetTranscripts lists the caller's transcripts
// GET /api/transcripts?status=completed&limit=50&offset=0
func (h *TranscriptHandler) GetTranscripts(c *gin.Context) {
	limit := httputil.QueryInt(c, "limit", 50)
	offset := httputil.QueryInt(c, "offset", 0)

	transcripts, total, err := h.transcripts.ListTranscripts(c.Request.Context(), httputil.UserID(c), c.Query("status"), limit, offset)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transcripts": transcripts,
		"total":       total,
	})
}

// GetTranscriptByID returns one transcript
// GET /api/transcripts/:id
func (h *TranscriptHandler) GetTranscriptByID(c *gin.Context) {
	transcript, err := h.transcripts.GetTranscript(c.Request.Context(), httputil.UserID(c), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, transcript)
}

// GetActivities returns the transcript timeline
// GET /api/transcripts/:id/activities
func (h *TranscriptHandler) GetActivities(c *gin.Context) {
	activities, err := h.transcripts.ListActivities(c.Request.Context(), httputil.UserID(c), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// Reanalyze restarts analysis
// POST /api/transcripts/:id/reanalyze
func (h *TranscriptHandler) Reanalyze(c *gin.Context) {
	result, err := h.transcripts.Reanalyze(c.Request.Context(), httputil.UserID(c), c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

// Archive archives a transcript and its insights
// POST /api/transcripts/:id/archive
func (h *TranscriptHandler) Archive(c *gin.Context) {
	if err := h.transcripts.Archive(c.Request.Context(), httputil.UserID(c), c.Param("id")); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transcript archived"})
}
