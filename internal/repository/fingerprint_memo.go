package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/cache"
	"FlatPull/pkg/logger"
)

// FingerprintMemo remembers file hashes keyed by path, size and mtime, so a
// file rewritten in place gets a fresh key. A nil memo is valid and never hits.
type FingerprintMemo struct {
	store  cache.Store
	ttl    time.Duration
	logger *logger.Logger
}

func NewFingerprintMemo(store cache.Store, ttl time.Duration, l *logger.Logger) *FingerprintMemo {
	if l == nil {
		l = logger.NewNop()
	}
	return &FingerprintMemo{store: store, ttl: ttl, logger: l}
}

func memoKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("fp:%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
}

func (m *FingerprintMemo) Lookup(ctx context.Context, path string, info os.FileInfo) (models.Fingerprint, bool) {
	if m == nil || m.store == nil {
		return "", false
	}
	v, err := m.store.Get(ctx, memoKey(path, info))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			m.logger.Warn("fingerprint memo lookup failed", logger.String("path", path), logger.Error(err))
		}
		return "", false
	}
	return models.Fingerprint(v), v != ""
}

func (m *FingerprintMemo) Remember(ctx context.Context, path string, info os.FileInfo, fp models.Fingerprint) {
	if m == nil || m.store == nil {
		return
	}
	if err := m.store.Set(ctx, memoKey(path, info), string(fp), m.ttl); err != nil {
		m.logger.Warn("fingerprint memo store failed", logger.String("path", path), logger.Error(err))
	}
}

func (m *FingerprintMemo) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}
