package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"FlatPull/internal/domain/models"
	domainrepo "FlatPull/internal/domain/repository"
	"FlatPull/pkg/logger"
)

// barRow is the on-disk layout of a per-ticker file.
type barRow struct {
	Timestamp time.Time `parquet:"timestamp,timestamp(nanosecond)"`
	Ticker    string    `parquet:"ticker,dict"`
	Open      float64   `parquet:"open"`
	Close     float64   `parquet:"close"`
	Low       float64   `parquet:"low"`
	High      float64   `parquet:"high"`
	Volume    float64   `parquet:"volume"`
}

// ParquetTickerStore writes {base}/data/{asset}/{ticker}/{period}.parquet, or a
// {...}.parquet.empty marker for periods without data.
type ParquetTickerStore struct {
	base   string
	logger *logger.Logger
}

func NewParquetTickerStore(base string, l *logger.Logger) *ParquetTickerStore {
	if l == nil {
		l = logger.NewNop()
	}
	return &ParquetTickerStore{base: base, logger: l}
}

func (s *ParquetTickerStore) PathFor(key domainrepo.OutputKey) string {
	return filepath.Join(s.base, "data", string(key.AssetType), key.Ticker, key.Period+".parquet")
}

func (s *ParquetTickerStore) Stat(key domainrepo.OutputKey) (domainrepo.OutputInfo, error) {
	path := s.PathFor(key)

	info, err := os.Stat(path)
	switch {
	case err == nil:
		return domainrepo.OutputInfo{Present: true, ModTime: info.ModTime()}, nil
	case !os.IsNotExist(err):
		return domainrepo.OutputInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}

	info, err = os.Stat(path + emptySuffix)
	switch {
	case err == nil:
		return domainrepo.OutputInfo{Empty: true, ModTime: info.ModTime()}, nil
	case os.IsNotExist(err):
		return domainrepo.OutputInfo{}, nil
	default:
		return domainrepo.OutputInfo{}, fmt.Errorf("stat %s: %w", path+emptySuffix, err)
	}
}

// Write stores bars sorted by timestamp and replaces any empty marker.
func (s *ParquetTickerStore) Write(_ context.Context, key domainrepo.OutputKey, bars []models.Bar) error {
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{
			Timestamp: b.Timestamp,
			Ticker:    b.Ticker,
			Open:      b.Open,
			Close:     b.Close,
			Low:       b.Low,
			High:      b.High,
			Volume:    b.Volume,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	path := s.PathFor(key)
	err := writeAtomic(path, func(w io.Writer) error {
		pw := parquet.NewGenericWriter[barRow](w)
		if _, err := pw.Write(rows); err != nil {
			return err
		}
		return pw.Close()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Debug("ticker file written",
		logger.String("path", path),
		logger.Int("rows", len(rows)),
	)
	return removeIfExists(path + emptySuffix)
}

func (s *ParquetTickerStore) MarkEmpty(key domainrepo.OutputKey) error {
	path := s.PathFor(key)
	if _, err := touch(path + emptySuffix); err != nil {
		return err
	}
	return removeIfExists(path)
}

// Read loads a per-ticker file back, in file order.
func (s *ParquetTickerStore) Read(key domainrepo.OutputKey) ([]models.Bar, error) {
	rows, err := parquet.ReadFile[barRow](s.PathFor(key))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.PathFor(key), err)
	}
	bars := make([]models.Bar, len(rows))
	for i, r := range rows {
		bars[i] = models.Bar{
			Timestamp: r.Timestamp,
			Ticker:    r.Ticker,
			Open:      r.Open,
			Close:     r.Close,
			Low:       r.Low,
			High:      r.High,
			Volume:    r.Volume,
		}
	}
	return bars, nil
}
