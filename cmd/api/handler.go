package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	authDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/delivery"
	authUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	exportDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/delivery"
	exportUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/usecase"
	insightDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/delivery"
	insightUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/usecase"
	transcriptDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/delivery"
	transcriptUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"

	"github.com/gin-gonic/gin"
)

// Usecases are the application services exposed over HTTP.
type Usecases struct {
	Auth        authUsecase.AuthUsecase
	Ingestion   transcriptUsecase.IngestionUsecase
	Transcripts transcriptUsecase.TranscriptUsecase
	Insights    insightUsecase.InsightUsecase
	Exports     exportUsecase.ExportUsecase
}

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	routes      Routes
	config      *config.Config
	logger      *slog.Logger
	server      *http.Server
}

func NewHandler(uc Usecases, settings *RuntimeSettings, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		authUsecase: uc.Auth,
		routes: Routes{
			Transcripts: transcriptDelivery.NewTranscriptHandler(uc.Ingestion, uc.Transcripts),
			Insights:    insightDelivery.NewInsightHandler(uc.Insights),
			Exports:     exportDelivery.NewExportHandler(uc.Exports),
			Devices:     authDelivery.NewDeviceHandler(uc.Auth),
			Settings:    settings,
		},
		config: cfg,
		logger: logger.With("component", "http"),
		server: &http.Server{ReadHeaderTimeout: 10 * time.Second},
	}
}

// Engine builds the gin engine with middleware and routes.
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(h.config.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Webhook-Secret")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.config.InboundWebhookSecret, h.routes)
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if userID := c.GetString("userID"); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed", attrs...)
			return
		}
		h.logger.Debug("request served", attrs...)
	}
}

// Start serves HTTP on addr until Shutdown is called.
func (h *Handler) Start(addr string) error {
	h.server.Addr = addr
	h.server.Handler = h.Engine()
	h.logger.Info("server starting", "addr", addr)
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}
