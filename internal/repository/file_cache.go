package repository

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/logger"
	"FlatPull/pkg/util"
)

const emptySuffix = ".empty"

// FileCacheStore keeps raw day files under {base}/files/{asset}/{day}.csv.gz.
// A day is either the raw file, the {path}.empty marker, or nothing.
type FileCacheStore struct {
	base   string
	memo   *FingerprintMemo
	logger *logger.Logger
}

type FileCacheOption func(*FileCacheStore)

// WithFingerprintMemo avoids re-hashing unchanged files across runs.
func WithFingerprintMemo(m *FingerprintMemo) FileCacheOption {
	return func(s *FileCacheStore) { s.memo = m }
}

func WithCacheLogger(l *logger.Logger) FileCacheOption {
	return func(s *FileCacheStore) { s.logger = l }
}

func NewFileCacheStore(base string, opts ...FileCacheOption) *FileCacheStore {
	s := &FileCacheStore{
		base:   base,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileCacheStore) PathFor(asset models.AssetType, day time.Time) string {
	return filepath.Join(s.base, "files", string(asset), util.FormatDay(day)+".csv.gz")
}

func (s *FileCacheStore) Exists(path string) (bool, error) {
	return fileExists(path)
}

func (s *FileCacheStore) ExistsEmptyMarker(path string) (bool, error) {
	return fileExists(path + emptySuffix)
}

// Fingerprint returns the hex MD5 of the cached file, or false if there is none.
func (s *FileCacheStore) Fingerprint(ctx context.Context, path string) (models.Fingerprint, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat %s: %w", path, err)
	}

	if fp, ok := s.memo.Lookup(ctx, path, info); ok {
		return fp, true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", false, fmt.Errorf("hash %s: %w", path, err)
	}
	fp := models.Fingerprint(hex.EncodeToString(h.Sum(nil)))

	s.memo.Remember(ctx, path, info, fp)
	return fp, true, nil
}

// Write replaces the cached file atomically and clears a stale empty marker.
func (s *FileCacheStore) Write(ctx context.Context, path string, data []byte) error {
	if err := writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}); err != nil {
		return err
	}
	if err := removeIfExists(path + emptySuffix); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil {
		sum := md5.Sum(data)
		s.memo.Remember(ctx, path, info, models.Fingerprint(hex.EncodeToString(sum[:])))
	}
	return nil
}

// MarkEmpty records that the remote has no file for the day. Calling it twice is harmless.
func (s *FileCacheStore) MarkEmpty(path string) error {
	marker := path + emptySuffix
	created, err := touch(marker)
	if err != nil {
		return err
	}
	if !created {
		s.logger.Debug("empty marker already present", logger.String("path", marker))
	}
	return nil
}

func (s *FileCacheStore) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cached file: %w", err)
	}
	return f, nil
}
