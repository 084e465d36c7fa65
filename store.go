// store.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

const metadataFilename = "articles_metadata.json"

// Store persists the article metadata as one JSON document per corpus
// directory, keyed by article ID. The document is human-readable and
// hand-editable (skip_from_index is meant to be toggled by operators), so it
// stays plain indented JSON. Single-writer: stages load the whole map,
// mutate in memory after fan-in, and write it back once.
type Store struct {
	dir string
	log *zap.SugaredLogger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log *zap.SugaredLogger) *Store {
	return &Store{dir: dir, log: log}
}

// Path returns the metadata document path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, metadataFilename)
}

// Load reads the metadata document. A missing or corrupt document is treated
// as an empty store: the pipeline re-synchronizes everything rather than
// aborting. Records missing newer fields are upgraded in place with safe
// defaults.
func (s *Store) Load() (map[string]*Article, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("metadata store unreadable, starting empty", "path", s.Path(), "error", err)
		}
		return map[string]*Article{}, nil
	}

	state := map[string]*Article{}
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Warnw("metadata store corrupt, starting empty", "path", s.Path(), "error", err)
		return map[string]*Article{}, nil
	}

	for id, rec := range state {
		if upgradeRecord(id, rec) {
			s.log.Debugw("upgraded legacy record", "id", id)
		}
	}
	return state, nil
}

// Save writes the metadata document, creating the corpus directory if needed.
func (s *Store) Save(state map[string]*Article) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// upgradeRecord backfills fields that older documents did not carry. The
// schema is additive; records are never replaced wholesale. Reports whether
// anything changed.
func upgradeRecord(id string, rec *Article) bool {
	changed := false
	if rec.ID == "" {
		rec.ID = id
		changed = true
	}
	if rec.UploadStatus == "" {
		rec.UploadStatus = UploadPending
		changed = true
	}
	if rec.IndexStatus == "" {
		rec.IndexStatus = AttachPending
		changed = true
	}
	if rec.MarkdownFile == "" {
		rec.MarkdownFile = id + ".md"
		changed = true
	}
	return changed
}

// sortedIDs returns the record keys in lexical order so stage processing and
// reports are deterministic regardless of map iteration order.
func sortedIDs(state map[string]*Article) []string {
	ids := make([]string, 0, len(state))
	for id := range state {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
