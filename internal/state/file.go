package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sigs.k8s.io/yaml"
)

// FileStore keeps one YAML file per stack in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(stack string) string {
	return filepath.Join(s.dir, stack+".yaml")
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, stack string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(stack)
}

func (s *FileStore) read(stack string) (*Snapshot, error) {
	// #nosec G304
	data, err := os.ReadFile(s.path(stack))
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state %s: %w", s.path(stack), err)
	}
	return Decode(jsonData)
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(snap.Stack)
	if err != nil {
		return err
	}
	if existing.Serial > 0 {
		if err := checkLineage(existing, snap); err != nil {
			return fmt.Errorf("%w: %s", err, s.path(snap.Stack))
		}
	}

	snap.Serial++
	snap.UpdatedAt = s.now().UTC()
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, snap.Stack+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(snap.Stack)); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
