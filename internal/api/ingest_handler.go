package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/config"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/service"
)

// IngestHandler handles editor ingest session endpoints
type IngestHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "ingest").Logger(),
	}
}

type descriptorsRequest struct {
	Files []ingest.Descriptor `json:"files"`
}

// Open handles POST /v1/ingest/sessions
func (h *IngestHandler) Open(c *gin.Context) {
	id, err := h.services.Ingest.Open(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Close handles DELETE /v1/ingest/sessions/:id. It is the page teardown.
func (h *IngestHandler) Close(c *gin.Context) {
	if err := h.services.Ingest.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddFiles handles POST /v1/ingest/sessions/:id/files
// Accepts multipart "files" with optional index-aligned "lastModified" values (unix ms)
func (h *IngestHandler) AddFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form with files is required"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
		return
	}
	lastModified := form.Value["lastModified"]

	files := make([]ingest.UploadedFile, 0, len(headers))
	for i, header := range headers {
		if header.Size > h.cfg.Ingest.MaxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file %s too large, max size is %d MB", header.Filename, h.cfg.Ingest.MaxUploadSize/(1024*1024)),
			})
			return
		}

		f, err := header.Open()
		if err != nil {
			h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to open uploaded file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to read uploaded file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}

		var modified int64
		if i < len(lastModified) {
			modified, _ = strconv.ParseInt(lastModified[i], 10, 64)
		}
		files = append(files, ingest.UploadedFile{
			Name:         header.Filename,
			Size:         header.Size,
			Type:         header.Header.Get("Content-Type"),
			LastModified: modified,
			Data:         data,
		})
	}

	res, err := h.services.Ingest.AddFiles(c.Request.Context(), c.Param("id"), files)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Preload handles POST /v1/ingest/sessions/:id/preload
func (h *IngestHandler) Preload(c *gin.Context) {
	var req descriptorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.services.Ingest.Preload(c.Request.Context(), c.Param("id"), req.Files)
	h.respondFetch(c, res, err)
}

// Replace handles POST /v1/ingest/sessions/:id/replace
func (h *IngestHandler) Replace(c *gin.Context) {
	var req descriptorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.services.Ingest.Replace(c.Request.Context(), c.Param("id"), req.Files)
	h.respondFetch(c, res, err)
}

// respondFetch reports fetch failures as 502 together with what did ingest
func (h *IngestHandler) respondFetch(c *gin.Context, res ingest.Result, err error) {
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	var invalid *service.InvalidError
	if errors.As(err, &invalid) || errors.Is(err, ingest.ErrSessionNotFound) || errors.Is(err, ingest.ErrSessionClosed) {
		respondError(c, h.log, err)
		return
	}

	h.log.Error().Err(err).Str("ingest_session", c.Param("id")).Msg("Preload fetch failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": res})
}

// ToggleExpansion handles POST /v1/ingest/sessions/:id/expansion
func (h *IngestHandler) ToggleExpansion(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	expanded, err := h.services.Ingest.ToggleExpansion(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "expanded": expanded})
}

// Preview handles GET /v1/ingest/sessions/:id/preview
func (h *IngestHandler) Preview(c *gin.Context) {
	snap, err := h.services.Ingest.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// VisibleRows handles GET /v1/ingest/sessions/:id/rows?name=
func (h *IngestHandler) VisibleRows(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	rows, err := h.services.Ingest.VisibleRows(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if rows == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "rows": rows, "count": len(rows)})
}

// Reset handles POST /v1/ingest/sessions/:id/reset
func (h *IngestHandler) Reset(c *gin.Context) {
	if err := h.services.Ingest.Reset(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Blob handles GET /v1/blobs/:ref
func (h *IngestHandler) Blob(c *gin.Context) {
	blob, ok := h.services.Ingest.Blob(c.Request.Context(), c.Param("ref"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "reference not found or released"})
		return
	}
	// The type comes from the uploader; never let it run as a document here
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	if !inlineImage(blob.Type) {
		c.Header("Content-Disposition", "attachment")
	}
	c.Data(http.StatusOK, blob.Type, blob.Data)
}

// inlineImage reports whether a type is a raster image safe to render inline.
// SVG can carry script and is served as an attachment.
func inlineImage(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/avif":
		return true
	}
	return false
}
