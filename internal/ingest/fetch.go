package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var percentEncoded = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// Fetcher retrieves a remote file for preload.
type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor) (UploadedFile, error)
}

// HTTPFetcher fetches descriptors over plain HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	now      func() time.Time
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout and body limit.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Fetch downloads d and wraps it as an UploadedFile. HTML responses are
// rejected both by content type and by sniffing the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, d Descriptor) (UploadedFile, error) {
	target := encodeURL(d.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("invalid url %s: %w", d.URL, err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := f.client.Do(req)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("failed to fetch %s: %w", d.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadedFile{}, fmt.Errorf("HTTP %d for %s", resp.StatusCode, d.URL)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrHTMLResponse, d.URL)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("failed to read %s: %w", d.URL, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return UploadedFile{}, fmt.Errorf("%s exceeds %d bytes", d.URL, f.maxBytes)
	}
	if looksLikeHTML(data) {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrHTMLResponse, d.URL)
	}

	name := d.Name
	if name == "" {
		name = "file"
	}
	mimeType := d.Type
	if mimeType == "" {
		mimeType = normaliseMIME(contentType)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return UploadedFile{
		Name:         name,
		Size:         int64(len(data)),
		Type:         mimeType,
		LastModified: f.now().UnixMilli(),
		Data:         data,
	}, nil
}

// encodeURL percent-encodes a URL unless it already carries escapes, so
// non-ASCII file names survive the request.
func encodeURL(raw string) string {
	if percentEncoded.MatchString(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.String()
}
