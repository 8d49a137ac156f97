package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/service"
)

// AlarmHandler handles notification endpoints
type AlarmHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAlarmHandler creates a new AlarmHandler
func NewAlarmHandler(services *service.Services, log zerolog.Logger) *AlarmHandler {
	return &AlarmHandler{
		services: services,
		log:      log.With().Str("handler", "alarm").Logger(),
	}
}

// Visit handles GET /v1/alarms. Listing marks the notifications as seen.
func (h *AlarmHandler) Visit(c *gin.Context) {
	alarms, err := h.services.Alarm.Visit(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarms": alarms, "count": len(alarms)})
}

// Flags handles GET /v1/alarms/flags
func (h *AlarmHandler) Flags(c *gin.Context) {
	flags, err := h.services.Alarm.Flags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flags)
}

// Create handles POST /v1/alarms
func (h *AlarmHandler) Create(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	alarm, err := h.services.Alarm.Create(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, alarm)
}

// Delete handles DELETE /v1/alarms/:id
func (h *AlarmHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.Alarm.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
