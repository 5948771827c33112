package clients

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
)

var _ pipeline.DocumentStore = (*FSDocumentStore)(nil)

// FSDocumentStore keeps pipeline documents (dossiers, transcripts,
// evaluations, reports) as files under a root directory. Keys are
// slash-separated paths like "applications/<id>/dossier".
type FSDocumentStore struct {
	root string
}

// NewFSDocumentStore creates a document store rooted at dir, creating the
// directory if needed.
func NewFSDocumentStore(dir string) (*FSDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("clients: create document root: %w", err)
	}
	return &FSDocumentStore{root: dir}, nil
}

// Put stores data under key. The write goes through a temp file and a
// rename so readers never observe a partial document.
func (s *FSDocumentStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("clients: create document dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".doc-*")
	if err != nil {
		return fmt.Errorf("clients: create temp document: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("clients: write document %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("clients: close document %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("clients: store document %s: %w", key, err)
	}
	return nil
}

// Get returns the document stored under key.
func (s *FSDocumentStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("clients: document %s: %w", key, recruiter.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("clients: read document %s: %w", key, err)
	}
	return data, nil
}

// path resolves a document key to an absolute path and rejects keys that
// escape the root.
func (s *FSDocumentStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) || len(clean) >= 3 && clean[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("clients: invalid document key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
