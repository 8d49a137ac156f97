// Package generator calls the remote draft-generation endpoint.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/models"
)

// ErrGeneration wraps every failed generation call.
var ErrGeneration = errors.New("draft generation failed")

// Generator produces a draft from a topic and an optional data file.
type Generator interface {
	GenerateDraft(ctx context.Context, topic string, file *models.FilePayload) (*models.DraftResult, error)
}

// Client posts multipart requests to the generation endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a generator client.
func NewClient(url string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "generator").Logger(),
	}
}

// GenerateDraft sends topic and file as multipart fields "topic" and "file"
// and decodes the JSON draft.
func (c *Client) GenerateDraft(ctx context.Context, topic string, file *models.FilePayload) (*models.DraftResult, error) {
	body, contentType, err := encodeRequest(topic, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result models.DraftResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %w", ErrGeneration, err)
	}

	c.log.Info().
		Str("topic", topic).
		Int("content_len", len(result.Content)).
		Dur("duration", time.Since(start)).
		Msg("Draft generated")

	return &result, nil
}

func encodeRequest(topic string, file *models.FilePayload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("topic", topic); err != nil {
		return nil, "", err
	}
	if file != nil {
		part, err := w.CreateFormFile("file", file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
