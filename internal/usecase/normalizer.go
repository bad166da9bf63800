package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"

	"FlatPull/internal/domain/models"
	drepo "FlatPull/internal/domain/repository"
	"FlatPull/pkg/flatfile"
	"FlatPull/pkg/logger"
	"FlatPull/pkg/util"
)

// MarketTimezone is the zone of the timestamps in derived files.
const MarketTimezone = "America/New_York"

// Normalizer splits cached day files into per-ticker files.
type Normalizer struct {
	cache   drepo.CacheStore
	store   drepo.TickerFileStore
	mirror  drepo.BarMirror
	loc     *time.Location
	metrics drepo.Metrics
	logger  *logger.Logger
}

type NormalizerOption func(*Normalizer)

func WithMirror(m drepo.BarMirror) NormalizerOption {
	return func(n *Normalizer) { n.mirror = m }
}

func WithNormalizerMetrics(m drepo.Metrics) NormalizerOption {
	return func(n *Normalizer) {
		if m != nil {
			n.metrics = m
		}
	}
}

func WithNormalizerLogger(l *logger.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

func NewNormalizer(cache drepo.CacheStore, store drepo.TickerFileStore, opts ...NormalizerOption) (*Normalizer, error) {
	loc, err := time.LoadLocation(MarketTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	n := &Normalizer{
		cache:   cache,
		store:   store,
		loc:     loc,
		metrics: nopMetrics{},
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// NormalizeDay derives the per-ticker files of one reconciled day. Outputs are
// left alone when they all exist and the raw file did not change in this run.
func (n *Normalizer) NormalizeDay(ctx context.Context, series models.AssetSeries, rec models.DayRecord) error {
	if len(series.Tickers) == 0 || rec.State == models.DayAbsent {
		return nil
	}

	period := util.FormatDay(rec.Day)
	if !rec.Outcome.Changed() {
		complete, err := n.outputsExist(series, period)
		if err != nil {
			return err
		}
		if complete {
			return nil
		}
	}

	if rec.State == models.DayCachedEmpty {
		for _, ticker := range series.Tickers {
			if err := n.store.MarkEmpty(n.key(series, ticker, period)); err != nil {
				return fmt.Errorf("mark %s %s empty: %w", ticker, period, err)
			}
		}
		return nil
	}

	byTicker, err := n.readDay(series, rec)
	if err != nil {
		if errors.Is(err, flatfile.ErrMalformed) {
			n.metrics.RecordError("malformed")
			n.logger.Warn("cached day file is unreadable, no output derived",
				logger.String("asset", string(series.AssetType)),
				logger.String("path", rec.Path),
				logger.Error(err),
			)
			return nil
		}
		return err
	}

	var mirrored []models.Bar
	for _, ticker := range series.Tickers {
		key := n.key(series, ticker, period)
		bars := byTicker[ticker]
		if len(bars) == 0 {
			if err := n.store.MarkEmpty(key); err != nil {
				return fmt.Errorf("mark %s %s empty: %w", ticker, period, err)
			}
			continue
		}
		if err := n.store.Write(ctx, key, bars); err != nil {
			return fmt.Errorf("write %s %s: %w", ticker, period, err)
		}
		mirrored = append(mirrored, bars...)
	}

	n.logger.Debug("day normalized",
		logger.String("asset", string(series.AssetType)),
		logger.String("period", period),
		logger.Int("bars", len(mirrored)),
	)
	n.mirrorBars(ctx, series.AssetType, mirrored)
	return nil
}

func (n *Normalizer) key(series models.AssetSeries, ticker, period string) drepo.OutputKey {
	return drepo.OutputKey{AssetType: series.AssetType, Ticker: ticker, Period: period}
}

func (n *Normalizer) outputsExist(series models.AssetSeries, period string) (bool, error) {
	for _, ticker := range series.Tickers {
		info, err := n.store.Stat(n.key(series, ticker, period))
		if err != nil {
			return false, err
		}
		if !info.Exists() {
			return false, nil
		}
	}
	return true, nil
}

// readDay returns the matching rows of the cached file grouped by requested
// symbol and sorted by timestamp.
func (n *Normalizer) readDay(series models.AssetSeries, rec models.DayRecord) (map[string][]models.Bar, error) {
	f, err := n.cache.Open(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rec.Path, err)
	}
	defer f.Close()

	r, err := flatfile.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string][]models.Bar, len(series.Tickers))
	err = r.Each(func(row flatfile.Row) error {
		for _, symbol := range series.Tickers {
			if !series.Match.Matches(row.Ticker, symbol) {
				continue
			}
			out[symbol] = append(out[symbol], models.Bar{
				Timestamp: time.Unix(0, row.WindowStart).In(n.loc),
				Ticker:    row.Ticker,
				Open:      row.Open,
				Close:     row.Close,
				Low:       row.Low,
				High:      row.High,
				Volume:    row.Volume,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, bars := range out {
		sortBars(bars)
	}
	return out, nil
}

func (n *Normalizer) mirrorBars(ctx context.Context, asset models.AssetType, bars []models.Bar) {
	if n.mirror == nil || len(bars) == 0 {
		return
	}
	if err := n.mirror.InsertBars(ctx, asset, bars); err != nil {
		n.metrics.RecordError("mirror")
		n.logger.Warn("mirror insert failed",
			logger.String("asset", string(asset)),
			logger.Int("bars", len(bars)),
			logger.Error(err),
		)
	}
}

func sortBars(bars []models.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Timestamp.Equal(bars[j].Timestamp) {
			return bars[i].Ticker < bars[j].Ticker
		}
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}
