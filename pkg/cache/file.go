package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// document is the on-disk layout, kept compatible with caches that stored
// ids as numbers.
type document struct {
	Freeleech []json.RawMessage `json:"freeleech"`
}

type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) String() string {
	return s.Path
}

func (s *FileStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cache file")
	}

	return decodeDocument(data)
}

func decodeDocument(data []byte) ([]string, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}

	ids := make([]string, 0, len(doc.Freeleech))
	for i, raw := range doc.Freeleech {
		raw = bytes.TrimSpace(raw)

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			ids = append(ids, s)
			continue
		}

		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			ids = append(ids, n.String())
			continue
		}

		return nil, fmt.Errorf("%w: entry %d is not a string or number: %s", ErrCacheCorrupt, i, raw)
	}

	return ids, nil
}

// Save replaces the cache file atomically through a temporary file in the
// same directory.
func (s *FileStore) Save(_ context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	data, err := json.MarshalIndent(struct {
		Freeleech []string `json:"freeleech"`
	}{Freeleech: ids}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal cache")
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create cache directory")
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return errors.Wrap(err, "replace cache file")
	}

	return nil
}
