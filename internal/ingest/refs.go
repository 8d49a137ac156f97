package ingest

import (
	"sync"

	"github.com/google/uuid"
)

const refScheme = "blob:"

// Blob is the content behind an issued display reference.
type Blob struct {
	Type string
	Data []byte
}

// RefRegistry issues revocable display references for image previews. A
// reference resolves until it is revoked; revoking twice is reported.
type RefRegistry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewRefRegistry creates an empty registry.
func NewRefRegistry() *RefRegistry {
	return &RefRegistry{blobs: make(map[string]Blob)}
}

// Issue stores the image bytes once and returns a new reference.
func (r *RefRegistry) Issue(mimeType string, data []byte) string {
	ref := refScheme + uuid.New().String()
	r.mu.Lock()
	r.blobs[ref] = Blob{Type: mimeType, Data: data}
	r.mu.Unlock()
	return ref
}

// Get resolves a live reference.
func (r *RefRegistry) Get(ref string) (Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[ref]
	return b, ok
}

// Revoke releases a reference. It returns false if the reference was not live.
func (r *RefRegistry) Revoke(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[ref]; !ok {
		return false
	}
	delete(r.blobs, ref)
	return true
}

// Len returns the number of live references.
func (r *RefRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
