package api

import (
	"net/http"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/delivery"
	authUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	exportDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/delivery"
	insightDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/delivery"
	transcriptDelivery "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/delivery"

	"github.com/gin-gonic/gin"
)

// Routes groups the handlers mounted under /api.
type Routes struct {
	Transcripts *transcriptDelivery.TranscriptHandler
	Insights    *insightDelivery.InsightHandler
	Exports     *exportDelivery.ExportHandler
	Devices     *delivery.DeviceHandler
	Settings    *RuntimeSettings
}

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, webhookSecret string, h Routes) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Trusted integrations authenticate with a shared secret
		webhooks := api.Group("/webhooks")
		webhooks.Use(delivery.WebhookSecretMiddleware(webhookSecret))
		{
			webhooks.POST("/transcripts", h.Transcripts.IngestWebhook)
		}

		// Transcript routes (protected)
		transcripts := api.Group("/transcripts")
		transcripts.Use(delivery.AuthMiddleware(authUsecase))
		{
			transcripts.POST("", h.Transcripts.Ingest)
			transcripts.GET("", h.Transcripts.GetTranscripts)
			transcripts.GET("/:id", h.Transcripts.GetTranscriptByID)
			transcripts.GET("/:id/activities", h.Transcripts.GetActivities)
			transcripts.GET("/:id/insights", h.Insights.GetTranscriptInsights)
			transcripts.POST("/:id/reanalyze", h.Transcripts.Reanalyze)
			transcripts.POST("/:id/archive", h.Transcripts.Archive)
		}

		// Insight routes (protected)
		insights := api.Group("/insights")
		insights.Use(delivery.AuthMiddleware(authUsecase))
		{
			insights.GET("/search", h.Insights.Search)
		}

		// Export routes (protected)
		exports := api.Group("/exports")
		exports.Use(delivery.AuthMiddleware(authUsecase))
		{
			exports.POST("", h.Exports.Export)
			exports.GET("/configs", h.Exports.GetConfigs)
			exports.POST("/configs", h.Exports.CreateConfig)
			exports.PUT("/configs/:id", h.Exports.UpdateConfig)
			exports.DELETE("/configs/:id", h.Exports.DeleteConfig)
		}

		// Push device routes (protected)
		devices := api.Group("/devices")
		devices.Use(delivery.AuthMiddleware(authUsecase))
		{
			devices.POST("", h.Devices.RegisterDevice)
			devices.DELETE("/:token", h.Devices.UnregisterDevice)
		}

		// Settings routes (protected) - Runtime extraction configuration
		if h.Settings != nil {
			settings := api.Group("/settings")
			settings.Use(delivery.AuthMiddleware(authUsecase))
			{
				settings.GET("/ollama", h.Settings.GetOllamaSettings)
				settings.PUT("/ollama", h.Settings.UpdateOllamaSettings)
				settings.POST("/ollama/test", h.Settings.TestOllamaConnection)
			}
		}
	}
}
