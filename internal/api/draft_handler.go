package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/service"
)

// DraftHandler handles the editor to publish flow
type DraftHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(services *service.Services, log zerolog.Logger) *DraftHandler {
	return &DraftHandler{
		services: services,
		log:      log.With().Str("handler", "draft").Logger(),
	}
}

// Get handles GET /v1/drafts
func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.services.Draft.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Update handles PATCH /v1/drafts
func (h *DraftHandler) Update(c *gin.Context) {
	var edit models.DraftEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	draft, err := h.services.Draft.Update(c.Request.Context(), &edit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Submit handles POST /v1/drafts/submit
func (h *DraftHandler) Submit(c *gin.Context) {
	var req struct {
		IngestID string `json:"ingest_id"`
		models.SubmitRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.IngestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ingest_id is required"})
		return
	}
	draft, err := h.services.Draft.Submit(c.Request.Context(), c.GetString(sessionKey), req.IngestID, &req.SubmitRequest)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Generate handles POST /v1/drafts/generate
func (h *DraftHandler) Generate(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	// An empty body falls back to the submitted subject
	_ = c.ShouldBindJSON(&req)

	draft, err := h.services.Draft.Generate(c.Request.Context(), c.GetString(sessionKey), req.Topic)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Publish handles POST /v1/drafts/publish
func (h *DraftHandler) Publish(c *gin.Context) {
	var req models.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	article, err := h.services.Draft.Publish(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}
