package kv

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"hoja/pkg/errors"
)

// FileStore keeps one file per key under a directory. Writes go to a temp file first and
// are renamed into place so a crash never leaves a half-written value behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// keys may carry ':' and '/', so they are hex encoded into file names
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "failed to read key")
	}
	return data, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".kv-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close temp file")
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to replace key")
	}
	return nil
}
