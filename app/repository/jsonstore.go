package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// jsonStore is one flat JSON collection: a single array rewritten wholesale on
// every mutation. The mutex serializes read-modify-write cycles; the file
// store is single-process by design, so in-memory exclusion is the bar.
type jsonStore struct {
	path string
	mu   sync.Mutex
}

func newJSONStore(dir, name string) (*jsonStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &jsonStore{path: filepath.Join(dir, name)}, nil
}

// read decodes the collection into out. A missing file is an empty collection.
// Callers must hold the store mutex.
func (s *jsonStore) read(out any) error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// write rewrites the collection through a temp file + rename so a crash never
// leaves a half-written array behind. Callers must hold the store mutex.
func (s *jsonStore) write(in any) error {
	encoded, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
