package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emergency-service/internal/config"
	"emergency-service/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Emergencies
		api.POST("/emergencies", h.TriggerEmergency)
		api.GET("/emergencies/active", h.ListActiveEmergencies)
		api.GET("/emergencies/stream", h.StreamEmergencies)
		api.GET("/emergencies/:id", h.GetEmergency)
		api.POST("/emergencies/:id/clear", h.ClearEmergency)
		api.PUT("/emergencies/:id/status", h.UpdateEmergencyStatus)
		api.POST("/emergencies/:id/confirmations", h.ConfirmEmergency)

		// Responder directory
		api.GET("/responders/emails", h.GetResponderEmails)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
