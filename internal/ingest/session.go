package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sports-newsroom-api/internal/metrics"
)

// DefaultPreviewRows is how many rows a collapsed table shows.
const DefaultPreviewRows = 10

// Options tune a Session.
type Options struct {
	DecodeWorkers int
	PreviewRows   int
	// IdleTTL is how long a Manager keeps an unused session; 0 keeps it until closed
	IdleTTL time.Duration
}

// Session is the preview state of one editor page. All state changes happen
// under mu; decoding and fetching run outside it.
type Session struct {
	id      string
	opts    Options
	refs    *RefRegistry
	fetcher Fetcher
	metrics *metrics.Metrics
	log     zerolog.Logger

	preloaded atomic.Bool

	mu         sync.Mutex
	closed     bool
	images     []PreviewEntry
	tables     []PreviewEntry
	seenImage  map[string]bool
	seenTable  map[string]bool
	expanded   map[string]bool
	uploads    []UploadedFile
	uploadKeys map[string]bool
	owned      []string // live references issued for this session
}

// NewSession creates an empty session. refs is shared with whoever serves the references.
func NewSession(id string, opts Options, refs *RefRegistry, fetcher Fetcher, m *metrics.Metrics, log zerolog.Logger) *Session {
	if opts.DecodeWorkers < 1 {
		opts.DecodeWorkers = 1
	}
	if opts.PreviewRows < 1 {
		opts.PreviewRows = DefaultPreviewRows
	}
	s := &Session{
		id:      id,
		opts:    opts,
		refs:    refs,
		fetcher: fetcher,
		metrics: m,
		log:     log.With().Str("ingest_session", id).Logger(),
	}
	s.resetLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// decoded is the outcome of one file's decode, produced off-lock.
type decoded struct {
	kind   Kind
	entry  *PreviewEntry
	notice *Notice
}

// AddFiles classifies and decodes a batch concurrently, then merges the whole
// batch into the preview state at once. Entries whose identity key is already
// present are dropped. Per-file failures come back as notices.
func (s *Session) AddFiles(ctx context.Context, files []UploadedFile) (Result, error) {
	if len(files) == 0 {
		return Result{}, nil
	}
	if s.isClosed() {
		return Result{Discarded: true}, ErrSessionClosed
	}

	results := make([]decoded, len(files))
	var g errgroup.Group
	g.SetLimit(s.opts.DecodeWorkers)
	for i := range files {
		i := i
		g.Go(func() error {
			results[i] = s.decode(ctx, files[i])
			return nil
		})
	}
	g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The page may have been torn down while decoding
	if s.closed {
		for _, r := range results {
			if r.entry != nil && r.entry.Kind == EntryImage {
				s.refs.Revoke(r.entry.Src)
			}
		}
		s.log.Debug().Int("files", len(files)).Msg("Discarded batch for closed session")
		return Result{Discarded: true}, ErrSessionClosed
	}

	var res Result
	for _, r := range results {
		if r.notice != nil {
			res.Notices = append(res.Notices, *r.notice)
		}
		if r.entry == nil {
			continue
		}
		if s.mergeLocked(*r.entry) {
			res.Added++
		} else {
			res.Skipped++
		}
	}

	for _, f := range files {
		key := f.uploadKey()
		if s.uploadKeys[key] {
			continue
		}
		s.uploadKeys[key] = true
		s.uploads = append(s.uploads, f)
	}
	res.Uploads = len(s.uploads)

	s.log.Info().
		Int("files", len(files)).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("notices", len(res.Notices)).
		Msg("Files ingested")

	return res, nil
}

func (s *Session) decode(ctx context.Context, f UploadedFile) decoded {
	kind := Classify(f)
	s.metrics.FileIngested(string(kind))

	if err := ctx.Err(); err != nil {
		return decoded{kind: kind, notice: s.warn(f.Name, kind, err)}
	}

	switch kind {
	case KindImage:
		ref := s.refs.Issue(f.Type, f.Data)
		return decoded{kind: kind, entry: &PreviewEntry{Kind: EntryImage, Name: f.Name, Src: ref}}
	case KindCSV, KindSpreadsheet:
		rows, err := DecodeTable(kind, f)
		if err != nil {
			return decoded{kind: kind, notice: s.warn(f.Name, kind, err)}
		}
		return decoded{kind: kind, entry: &PreviewEntry{Kind: EntryTabular, Name: f.Name, Rows: rows}}
	default:
		return decoded{kind: kind}
	}
}

func (s *Session) warn(name string, kind Kind, err error) *Notice {
	s.metrics.DecodeFailed(string(kind))
	s.log.Warn().Err(err).Str("file", name).Str("kind", string(kind)).Msg("Failed to decode file")
	return &Notice{File: name, Severity: SeverityWarning, Message: err.Error()}
}

// mergeLocked applies the first-seen-wins rule. A dropped image releases the
// reference it was issued, since it is never displayed.
func (s *Session) mergeLocked(e PreviewEntry) bool {
	key := e.identity()
	switch e.Kind {
	case EntryImage:
		if s.seenImage[key] {
			s.refs.Revoke(e.Src)
			return false
		}
		s.seenImage[key] = true
		s.images = append(s.images, e)
		s.owned = append(s.owned, e.Src)
	case EntryTabular:
		if s.seenTable[key] {
			return false
		}
		s.seenTable[key] = true
		s.tables = append(s.tables, e)
		if _, ok := s.expanded[e.Name]; !ok {
			s.expanded[e.Name] = false
		}
	}
	return true
}

// ToggleExpansion flips the expanded state of a table and returns the new value.
func (s *Session) ToggleExpansion(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[name] = !s.expanded[name]
	return s.expanded[name]
}

// Release revokes every reference this session still owns. Calling it again
// is a no-op. It returns how many references were revoked.
func (s *Session) Release() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}

func (s *Session) releaseLocked() int {
	n := 0
	for _, ref := range s.owned {
		if s.refs.Revoke(ref) {
			n++
		}
	}
	s.owned = nil
	if n > 0 {
		s.log.Debug().Int("refs", n).Msg("Released image references")
	}
	return n
}

// Reset clears the preview, expansion and upload state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.images = nil
	s.tables = nil
	s.seenImage = make(map[string]bool)
	s.seenTable = make(map[string]bool)
	s.expanded = make(map[string]bool)
	s.uploads = nil
	s.uploadKeys = make(map[string]bool)
}

// Close tears the session down. In-flight batches are discarded when they finish.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.releaseLocked()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Preload fetches remote descriptors and ingests them. It runs at most once
// per session; later calls return an ignored result.
func (s *Session) Preload(ctx context.Context, descs []Descriptor) (Result, error) {
	if !s.preloaded.CompareAndSwap(false, true) {
		s.log.Debug().Msg("Preload already ran")
		return Result{Ignored: true}, nil
	}
	return s.fetchAndAdd(ctx, descs)
}

// ReplacePreload resets the session and ingests a new remote file set.
func (s *Session) ReplacePreload(ctx context.Context, descs []Descriptor) (Result, error) {
	s.preloaded.Store(true)
	s.Reset()
	return s.fetchAndAdd(ctx, descs)
}

// fetchAndAdd fetches concurrently; whatever arrived is ingested and every
// fetch failure is returned joined.
func (s *Session) fetchAndAdd(ctx context.Context, descs []Descriptor) (Result, error) {
	if len(descs) == 0 {
		return Result{}, nil
	}
	if s.fetcher == nil {
		return Result{}, fmt.Errorf("no fetcher configured")
	}

	fetched := make([]*UploadedFile, len(descs))
	errs := make([]error, len(descs))
	var g errgroup.Group
	g.SetLimit(s.opts.DecodeWorkers)
	for i := range descs {
		i := i
		g.Go(func() error {
			f, err := s.fetcher.Fetch(ctx, descs[i])
			if err != nil {
				errs[i] = err
				return nil
			}
			fetched[i] = &f
			return nil
		})
	}
	g.Wait()

	var files []UploadedFile
	var notices []Notice
	for i, f := range fetched {
		if f != nil {
			files = append(files, *f)
			continue
		}
		s.log.Error().Err(errs[i]).Str("url", descs[i].URL).Msg("Failed to fetch preload file")
		notices = append(notices, Notice{File: descs[i].Name, Severity: SeverityError, Message: errs[i].Error()})
	}

	res, err := s.AddFiles(ctx, files)
	res.Notices = append(notices, res.Notices...)
	if err != nil {
		return res, err
	}
	return res, errors.Join(errs...)
}

// Snapshot returns a copy of the preview state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Images:   append([]PreviewEntry{}, s.images...),
		Tables:   append([]PreviewEntry{}, s.tables...),
		Expanded: make(map[string]bool, len(s.expanded)),
		Uploads:  make([]UploadSummary, 0, len(s.uploads)),
	}
	for k, v := range s.expanded {
		snap.Expanded[k] = v
	}
	for _, f := range s.uploads {
		snap.Uploads = append(snap.Uploads, UploadSummary{Name: f.Name, Size: f.Size, Type: f.Type, LastModified: f.LastModified})
	}
	return snap
}

// VisibleRows returns the rendered rows for a table under the session's row limit.
func (s *Session) VisibleRows(name string) [][]string {
	return s.Snapshot().VisibleRows(name, s.opts.PreviewRows)
}

// Uploads returns the canonical file list in first-seen order.
func (s *Session) Uploads() []UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadedFile{}, s.uploads...)
}

// FirstFilePayload returns the first upload and its Base64 data URL.
func (s *Session) FirstFilePayload() (UploadedFile, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uploads) == 0 {
		return UploadedFile{}, "", false
	}
	f := s.uploads[0]
	return f, DataURL(f.Type, f.Data), true
}

// DataURL encodes data as a data: URL.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
