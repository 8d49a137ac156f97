package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/service"
)

// respondError maps service errors onto status codes
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var invalid *service.InvalidError

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": invalid.Errors})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ingest.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ingest session not found"})
	case errors.Is(err, ingest.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": "ingest session closed"})
	case errors.Is(err, service.ErrAlreadyRequested):
		c.JSON(http.StatusConflict, gin.H{"error": "draft generation already requested"})
	case errors.Is(err, generator.ErrGeneration):
		log.Error().Err(err).Msg("Draft generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "draft generation failed, please retry"})
	case errors.Is(err, kv.ErrQuotaExceeded):
		log.Error().Err(err).Msg("Storage quota exceeded")
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": "storage quota exceeded, change was not saved"})
	case errors.Is(err, repository.ErrWriteFailed):
		log.Error().Err(err).Msg("Store write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save, change was not saved"})
	default:
		log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// idParam parses a numeric path parameter, answering 400 when malformed
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be numeric"})
		return 0, false
	}
	return id, true
}
