package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"emergency-service/internal/emergency"
	"emergency-service/internal/events"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
)

type Handler struct {
	svc    *emergency.Service
	hub    *events.Hub
	logger *logging.Logger
}

func NewHandler(svc *emergency.Service, hub *events.Hub, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, logger: logger}
}

// TriggerRequest is the trigger payload. Recipients may be supplied
// explicitly (tests, replays); when absent the responder directory is
// resolved.
type TriggerRequest struct {
	models.EmergencyInput
	Recipients []string `json:"recipients"`
}

func (h *Handler) TriggerEmergency(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid trigger request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	recipients := req.Recipients
	if recipients == nil {
		var err error
		recipients, err = h.svc.ResponderEmails(c.Request.Context())
		if err != nil {
			// The emergency record is the priority; proceed without
			// notification rather than refuse the trigger.
			h.logger.Warnf("Responder resolution failed, triggering with no recipients: %v", err)
			recipients = nil
		}
	}

	res, err := h.svc.Trigger(c.Request.Context(), req.EmergencyInput, recipients)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetEmergency(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) ListActiveEmergencies(c *gin.Context) {
	list, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Infof("Retrieved %d active emergencies", len(list))
	c.JSON(http.StatusOK, list)
}

// ActorRequest identifies who performs a privileged operation.
type ActorRequest struct {
	Actor string `json:"actor" binding:"required"`
}

func (h *Handler) ClearEmergency(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	res, err := h.svc.Clear(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StatusRequest carries a status transition.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
	Actor  string `json:"actor" binding:"required"`
}

func (h *Handler) UpdateEmergencyStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	res, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmRequest carries a responder acknowledgement.
type ConfirmRequest struct {
	ResponderID    string `json:"responder_id" binding:"required"`
	ResponderEmail string `json:"responder_email"`
}

func (h *Handler) ConfirmEmergency(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), c.Param("id"), req.ResponderID, req.ResponderEmail)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetResponderEmails(c *gin.Context) {
	emails, err := h.svc.ResponderEmails(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Infof("Resolved %d responder emails", len(emails))
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// writeError maps the error taxonomy onto HTTP statuses with an actionable
// message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, emergency.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, emergency.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, emergency.ErrInvalidState), errors.Is(err, emergency.ErrAlreadyConfirmed):
		status = http.StatusConflict
	case errors.Is(err, emergency.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, emergency.ErrDirectoryUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, emergency.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		h.logger.Errorf("Request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
