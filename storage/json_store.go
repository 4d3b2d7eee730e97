package storage

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"cliploop/twitch"
)

const (
	schemaVersion = "1.0"

	// maxEntries caps the history length; the oldest entries are dropped
	// once the cap is reached.
	maxEntries = 1000
)

// JSONStore keeps the watch history in a single JSON file, loaded into
// memory on open and rewritten atomically on every append.
type JSONStore struct {
	path string
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Entries   []*HistoryEntry `json:"entries"`
}

// NewJSONStore creates a new JSON file store at the given path.
// If the file exists, it is loaded; otherwise an empty store is created.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = &storeData{Version: schemaVersion, UpdatedAt: time.Now()}
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "history", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "history", Err: ErrStorageCorrupt}
	}
	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = time.Now()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "history", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Entity: "history", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "history", Err: err}
	}

	return nil
}

// Append adds an entry to the history and persists it. A missing ID or
// WatchedAt is filled in; an empty clip id is rejected.
func (s *JSONStore) Append(entry *HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ClipID == "" {
		return &StorageError{Op: "append", Entity: "entry", Err: ErrInvalidInput}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.WatchedAt.IsZero() {
		entry.WatchedAt = time.Now()
	}

	s.data.Entries = append(s.data.Entries, entry)
	if len(s.data.Entries) > maxEntries {
		s.data.Entries = s.data.Entries[len(s.data.Entries)-maxEntries:]
	}

	return s.save()
}

// List returns the most recent entries, newest first, up to limit.
// A limit of 0 or less returns everything.
func (s *JSONStore) List(limit int) []*HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.data.Entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.data.Entries[i])
	}
	return out
}

// Len returns the number of stored entries.
func (s *JSONStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Entries)
}

// RecordPlayback satisfies the session controller's history hook. It runs
// on the controller's event loop, so persistence failures are logged and
// swallowed rather than propagated into playback.
func (s *JSONStore) RecordPlayback(clip twitch.Clip, cause string) {
	entry := &HistoryEntry{
		ClipID:          clip.ID,
		Title:           clip.Title,
		BroadcasterName: clip.BroadcasterName,
		CreatorName:     clip.CreatorName,
		Duration:        clip.Duration,
		ViewCount:       clip.ViewCount,
		Cause:           cause,
	}
	if err := s.Append(entry); err != nil {
		log.Printf("cliploop: history write failed: %v", err)
	}
}
