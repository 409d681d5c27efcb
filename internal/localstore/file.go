package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockRetryInterval = 100 * time.Millisecond
	lockTimeout       = 3 * time.Second
)

// FileStore keeps every key in one JSON document guarded by an advisory file
// lock, so a CLI invocation and a running server can share it.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock")}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		raw, ok := doc[key]
		if !ok {
			return ErrNotFound
		}
		value = []byte(raw)
		return nil
	})
	return value, err
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("write %s: value is not json", key)
	}
	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		doc[key] = json.RawMessage(append([]byte{}, value...))
		return s.write(doc)
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := doc[key]; !ok {
			return nil
		}
		delete(doc, key)
		return s.write(doc)
	})
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: timed out", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
