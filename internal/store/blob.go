package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// BlobStorage stores record payloads by identifier.
type BlobStorage interface {
	Put(id string, payload []byte) error
	Get(id string) ([]byte, error)
	Delete(id string) error
}

// localBlobs implements BlobStorage on the local filesystem, one file
// per record under the base directory.
type localBlobs struct {
	basePath string
}

// NewLocalBlobs creates a filesystem BlobStorage rooted at basePath.
func NewLocalBlobs(basePath string) *localBlobs {
	return &localBlobs{basePath: basePath}
}

func (s *localBlobs) path(id string) string {
	return filepath.Join(s.basePath, id+".wav")
}

// Put writes the payload for id, creating the base directory if needed.
func (s *localBlobs) Put(id string, payload []byte) error {
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(s.path(id), payload, 0644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// Get reads the payload for id.
func (s *localBlobs) Get(id string) ([]byte, error) {
	payload, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Delete removes the payload for id.
func (s *localBlobs) Delete(id string) error {
	return os.Remove(s.path(id))
}
