package repository

import (
	"context"
	"io"
	"time"

	"FlatPull/internal/domain/models"
)

// DayFileSource fetches one day's raw flat file from the remote store.
type DayFileSource interface {
	FetchDayFile(ctx context.Context, req models.DayFileRequest) (models.FetchResult, error)
}

// AggregateSource fetches aggregate bars from the REST API.
type AggregateSource interface {
	FetchAggregates(ctx context.Context, req models.AggregateRequest) ([]models.Agg, error)
}

// CacheStore owns the raw day files and their empty markers.
type CacheStore interface {
	PathFor(asset models.AssetType, day time.Time) string
	Exists(path string) (bool, error)
	ExistsEmptyMarker(path string) (bool, error)
	Fingerprint(ctx context.Context, path string) (models.Fingerprint, bool, error)
	Write(ctx context.Context, path string, data []byte) error
	MarkEmpty(path string) error
	Open(path string) (io.ReadCloser, error)
}

// OutputKey addresses one derived per-ticker file. Period is YYYY-MM-DD or YYYY-MM.
type OutputKey struct {
	AssetType models.AssetType
	Ticker    string
	Period    string
}

type OutputInfo struct {
	Present bool
	Empty   bool
	ModTime time.Time
}

// Exists reports whether the period has either data or an empty marker.
func (i OutputInfo) Exists() bool { return i.Present || i.Empty }

// TickerFileStore owns the derived per-ticker files.
type TickerFileStore interface {
	Stat(key OutputKey) (OutputInfo, error)
	Write(ctx context.Context, key OutputKey, bars []models.Bar) error
	MarkEmpty(key OutputKey) error
}

// BarMirror receives a copy of normalized bars.
type BarMirror interface {
	InsertBars(ctx context.Context, asset models.AssetType, bars []models.Bar) error
	Close() error
}

// EventPublisher announces day state changes.
type EventPublisher interface {
	PublishDay(ctx context.Context, ev models.DayEvent) error
	Close() error
}

type Metrics interface {
	RecordDay(asset, outcome string)
	RecordRetry(op, kind string)
	RecordFetch(source, status string, seconds float64)
	RecordError(kind string)
	RecordRun(asset string, totals map[string]int, lastDay time.Time)
}
