// Package ingest classifies uploaded match-data files, decodes them into
// preview entries and keeps the per-editor-session preview state.
package ingest

import (
	"errors"
	"strconv"
)

// Kind is the classification of an uploaded file, resolved once at ingestion.
type Kind string

const (
	KindImage        Kind = "image"
	KindCSV          Kind = "csv"
	KindSpreadsheet  Kind = "spreadsheet"
	KindUnrecognized Kind = "unrecognized"
)

// EntryKind tags a PreviewEntry.
type EntryKind string

const (
	EntryImage   EntryKind = "image"
	EntryTabular EntryKind = "tabular"
)

// Severity of a Notice.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

var (
	// ErrSessionClosed is returned when work arrives for a torn-down session.
	ErrSessionClosed = errors.New("ingest session closed")
	// ErrSessionNotFound is returned by the Manager for unknown ids.
	ErrSessionNotFound = errors.New("ingest session not found")
	// ErrHTMLResponse marks a CSV or fetched body that is actually an HTML page.
	ErrHTMLResponse = errors.New("received HTML instead of data file")
)

// UploadedFile is one raw file as handed over by the client.
type UploadedFile struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"` // unix ms
	Data         []byte `json:"-"`
}

// uploadKey is the (name, size, lastModified) identity of an upload.
func (f UploadedFile) uploadKey() string {
	return f.Name + "|" + strconv.FormatInt(f.Size, 10) + "|" + strconv.FormatInt(f.LastModified, 10)
}

// PreviewEntry is either an image reference or decoded table rows.
type PreviewEntry struct {
	Kind EntryKind  `json:"kind"`
	Name string     `json:"name"`
	Src  string     `json:"src,omitempty"`
	Rows [][]string `json:"rows,omitempty"`
}

// identity is the dedup key: the name, or the image reference when unnamed.
func (e PreviewEntry) identity() string {
	if e.Name == "" && e.Kind == EntryImage {
		return e.Src
	}
	return e.Name
}

// Notice is a user-visible, non-fatal condition raised while ingesting.
type Notice struct {
	File     string `json:"file"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Result reports what one AddFiles call did.
type Result struct {
	Added     int      `json:"added"`
	Skipped   int      `json:"skipped"`
	Uploads   int      `json:"uploads"`
	Notices   []Notice `json:"notices,omitempty"`
	Discarded bool     `json:"discarded,omitempty"`
	Ignored   bool     `json:"ignored,omitempty"`
}

// Descriptor names a remote file to preload.
type Descriptor struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Snapshot is a copy of the preview state.
type Snapshot struct {
	Images   []PreviewEntry  `json:"images"`
	Tables   []PreviewEntry  `json:"tables"`
	Expanded map[string]bool `json:"expanded"`
	Uploads  []UploadSummary `json:"uploads"`
}

// UploadSummary describes an upload without its bytes.
type UploadSummary struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
}

// VisibleRows returns the rows of the named table as rendered: the first
// limit rows when collapsed, all rows when expanded. Unknown names yield nil.
func (s Snapshot) VisibleRows(name string, limit int) [][]string {
	for _, t := range s.Tables {
		if t.Name != name {
			continue
		}
		if s.Expanded[name] || len(t.Rows) <= limit {
			return t.Rows
		}
		return t.Rows[:limit]
	}
	return nil
}
