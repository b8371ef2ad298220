package store

import (
	"path/filepath"
	"sort"
	"sync"

	"insoft/depot-api/model"

	"go.uber.org/zap"
)

// Metadata maps stored filenames to their upload categories. The download
// path never needs it; the history filter and the reporting views do.
type Metadata struct {
	path string
	mu   sync.Mutex
}

func NewMetadata(dataDir string) *Metadata {
	return &Metadata{path: filepath.Join(dataDir, "file-metadata.json")}
}

// All returns every metadata record.
func (m *Metadata) All() []model.FileMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.FileMetadata
	if err := readJSON(m.path, &entries); err != nil {
		zap.L().Error("Failed to read file metadata", zap.Error(err))
	}

	if entries == nil {
		entries = []model.FileMetadata{}
	}

	return entries
}

// Find returns the record for filename, nil when unknown.
func (m *Metadata) Find(filename string) *model.FileMetadata {
	for _, e := range m.All() {
		if e.Filename == filename {
			return &e
		}
	}

	return nil
}

// Add appends a record, replacing any previous record for the same
// filename (re-uploads overwrite).
func (m *Metadata) Add(entry model.FileMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.FileMetadata
	if err := readJSON(m.path, &entries); err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Filename != entry.Filename {
			kept = append(kept, e)
		}
	}

	return writeJSON(m.path, append(kept, entry))
}

// Remove deletes the record for filename if present.
func (m *Metadata) Remove(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []model.FileMetadata
	if err := readJSON(m.path, &entries); err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Filename != filename {
			kept = append(kept, e)
		}
	}

	if len(kept) == len(entries) {
		return nil
	}

	return writeJSON(m.path, kept)
}

// FileTypes returns the sorted, de-duplicated application-os-architecture
// tags across all records, used to populate the history filter.
func (m *Metadata) FileTypes() []string {
	seen := map[string]struct{}{}
	var types []string

	for _, e := range m.All() {
		id := e.FileTypeID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		types = append(types, id)
	}

	sort.Strings(types)
	if types == nil {
		types = []string{}
	}

	return types
}
