package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const registryFilename = "ingested_content_hashes.json"

// ContentHash computes the SHA-256 of transcript bytes. It is the meeting
// identity: identical uploads hash to the same meeting id.
func ContentHash(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}

// Registry maps content hashes to meeting ids so duplicate uploads resolve to
// the existing meeting instead of re-indexing. Reservations make ingestion
// at-most-once under concurrent identical uploads: the first caller to reserve
// a hash proceeds, later callers wait for its outcome.
type Registry struct {
	path string

	mu       sync.Mutex
	hashes   map[string]string
	inFlight map[string]chan struct{}
}

// NewRegistry loads (or initializes) the hash index under dataDir
func NewRegistry(dataDir string) (*Registry, error) {
	r := &Registry{
		path:     filepath.Join(dataDir, registryFilename),
		hashes:   make(map[string]string),
		inFlight: make(map[string]chan struct{}),
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var stored struct {
		Hashes map[string]string `json:"hashes"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if stored.Hashes != nil {
		r.hashes = stored.Hashes
	}
	return r, nil
}

// Lookup returns the meeting id previously registered for this hash
func (r *Registry) Lookup(hash string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.hashes[hash]
	return id, ok
}

// Reserve claims a hash for ingestion. It returns the existing meeting id when
// the content was already ingested, or waits until a concurrent ingestion of
// the same bytes settles. Waiting honors ctx, so a caller's timeout applies
// even while another upload of the same content is in flight. The winning
// caller gets proceed=true and must call either Commit or Release.
func (r *Registry) Reserve(ctx context.Context, hash string) (meetingID string, proceed bool, err error) {
	for {
		r.mu.Lock()
		if id, ok := r.hashes[hash]; ok {
			r.mu.Unlock()
			return id, false, nil
		}
		if ch, ok := r.inFlight[hash]; ok {
			r.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return "", false, ctx.Err()
			}
		}
		r.inFlight[hash] = make(chan struct{})
		r.mu.Unlock()
		return "", true, nil
	}
}

// Commit records a successful ingestion and releases the reservation
func (r *Registry) Commit(hash, meetingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[hash] = meetingID
	r.settle(hash)
	return r.persist()
}

// Release abandons a reservation after a failed ingestion so the content can
// be retried
func (r *Registry) Release(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settle(hash)
}

func (r *Registry) settle(hash string) {
	if ch, ok := r.inFlight[hash]; ok {
		close(ch)
		delete(r.inFlight, hash)
	}
}

// persist writes the hash index to disk; callers hold r.mu
func (r *Registry) persist() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(map[string]any{"hashes": r.hashes}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}
