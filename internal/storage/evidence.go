// Package storage persists uploaded evidence files on local disk. Files are
// named by upload timestamp plus the original extension and served back via
// the /uploads static route.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agency-ops/report-desk/internal/domain"
)

// EvidenceStore writes evidence uploads under a fixed directory.
type EvidenceStore struct {
	dir string

	mu       sync.Mutex
	lastUnix int64
}

// NewEvidenceStore ensures the directory exists.
func NewEvidenceStore(dir string) (*EvidenceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &EvidenceStore{dir: dir}, nil
}

// Dir returns the storage root, for static serving.
func (s *EvidenceStore) Dir() string {
	return s.dir
}

// Save writes one upload and returns its stored reference.
func (s *EvidenceStore) Save(originalName string, r io.Reader) (domain.EvidenceFile, error) {
	stored := s.nextName(filepath.Ext(originalName))
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return domain.EvidenceFile{}, fmt.Errorf("create evidence file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		_ = os.Remove(path)
		return domain.EvidenceFile{}, fmt.Errorf("write evidence file: %w", err)
	}

	return domain.EvidenceFile{
		FileName:  originalName,
		Path:      path,
		SizeBytes: size,
	}, nil
}

// nextName yields millisecond-timestamp names, bumping forward on collision
// so two uploads in the same millisecond never overwrite each other.
func (s *EvidenceStore) nextName(ext string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	millis := time.Now().UnixMilli()
	if millis <= s.lastUnix {
		millis = s.lastUnix + 1
	}
	s.lastUnix = millis
	return fmt.Sprintf("%d%s", millis, ext)
}
