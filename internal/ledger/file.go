package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// document is the on-disk shape of the single-tenant ledger:
// {"history": [key...], "track_meta": {key: {...}}}. Early versions stored a
// bare JSON array of keys; those files are still read as a history list with
// no metadata.
type document struct {
	History   []string          `json:"history"`
	TrackMeta map[string]Record `json:"track_meta"`
}

// FileStore keeps the whole ledger in one JSON document. Each process holds
// a single FileStore per ledger file; its mutex serializes read-modify-write
// cycles so concurrent passes never interleave, and writes go through a temp
// file + rename so a failed write cannot corrupt the previous state.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Snapshot(_ context.Context, _ string) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) Record(_ context.Context, _ string, key string, rec Record) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap, err := f.load()
	if err != nil {
		return nil, err
	}
	snap.put(key, rec)

	if err := f.write(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *FileStore) Close() {}

func (f *FileStore) load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Legacy format: a bare array of keys.
		var history []string
		if legacyErr := json.Unmarshal(data, &history); legacyErr != nil {
			return nil, fmt.Errorf("failed to parse ledger file: %w", err)
		}
		doc = document{History: history}
	}

	snap := NewSnapshot()
	for _, key := range doc.History {
		snap.records[key] = Record{}
	}
	for key, rec := range doc.TrackMeta {
		snap.records[key] = rec
	}
	return snap, nil
}

func (f *FileStore) write(snap *Snapshot) error {
	doc := document{
		History:   make([]string, 0, len(snap.records)),
		TrackMeta: make(map[string]Record, len(snap.records)),
	}
	for key, rec := range snap.records {
		doc.History = append(doc.History, key)
		if rec != (Record{}) {
			doc.TrackMeta[key] = rec
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
