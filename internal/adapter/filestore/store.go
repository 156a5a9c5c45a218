// Package filestore persists reports as a single JSON array document, the
// format shared with the browser and terminal front-ends.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/klauspost/compress/zstd"
)

// CompressedExt selects zstd compression for the document when it ends the path.
const CompressedExt = ".zst"

// Store reads and rewrites the whole document on every call. A missing or
// unparsable document reads as an empty sequence.
type Store struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewStore returns a store backed by the document at path.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if strings.HasSuffix(path, CompressedExt) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		s.enc, s.dec = enc, dec
	}
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// LoadAll returns every stored report in insertion order.
func (s *Store) LoadAll(_ context.Context) ([]domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Append reads the document, adds r at the end and replaces the document atomically.
func (s *Store) Append(_ context.Context, r domain.Report) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.read()
	if err != nil {
		return domain.Report{}, err
	}
	reports = append(reports, r)
	if err := s.write(reports); err != nil {
		return domain.Report{}, err
	}
	return r, nil
}

// Ping checks that the document's directory exists.
func (s *Store) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("store directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store directory %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// Close releases the zstd codec, if any.
func (s *Store) Close() error {
	if s.enc != nil {
		_ = s.enc.Close()
		s.dec.Close()
	}
	return nil
}

func (s *Store) read() ([]domain.Report, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if s.dec != nil && len(data) > 0 {
		data, err = s.dec.DecodeAll(data, nil)
		if err != nil {
			s.logger.Warn("unreadable compressed store, treating as empty", "path", s.path, "error", err)
			return []domain.Report{}, nil
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Report{}, nil
	}

	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		s.logger.Warn("corrupt store document, treating as empty", "path", s.path, "error", err)
		return []domain.Report{}, nil
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

func (s *Store) write(reports []domain.Report) error {
	data, err := json.MarshalIndent(reports, "", "    ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if s.enc != nil {
		data = s.enc.EncodeAll(data, nil)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
