package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlatPull/internal/domain/models"
	drepo "FlatPull/internal/domain/repository"
	"FlatPull/internal/repository"
)

type normalizerFixture struct {
	cache      *repository.FileCacheStore
	store      *repository.ParquetTickerStore
	normalizer *Normalizer
	mirror     *recordingMirror
}

type recordingMirror struct {
	bars []models.Bar
}

func (m *recordingMirror) InsertBars(_ context.Context, _ models.AssetType, bars []models.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *recordingMirror) Close() error { return nil }

func newNormalizerFixture(t *testing.T) normalizerFixture {
	t.Helper()
	dir := t.TempDir()
	f := normalizerFixture{
		cache:  repository.NewFileCacheStore(dir),
		store:  repository.NewParquetTickerStore(dir, nil),
		mirror: &recordingMirror{},
	}
	n, err := NewNormalizer(f.cache, f.store, WithMirror(f.mirror))
	require.NoError(t, err)
	f.normalizer = n
	return f
}

func (f normalizerFixture) cached(t *testing.T, asset models.AssetType, d time.Time, data []byte) models.DayRecord {
	t.Helper()
	path := f.cache.PathFor(asset, d)
	require.NoError(t, f.cache.Write(context.Background(), path, data))
	return models.DayRecord{AssetType: asset, Day: d, Path: path, State: models.DayCached, Outcome: models.OutcomeDownloaded}
}

func TestNormalizeDayOptionsUnderlyingFilter(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 6)
	t0 := d.Add(14*time.Hour + 30*time.Minute)
	data := dayFile(t,
		row("O:SPY250117C00500000", t0.Add(time.Minute), 2),
		row("O:SPYG250117C00050000", t0, 3),
		row("O:SPY250117P00400000", t0, 1),
		row("SPY", t0, 500),
	)
	series, err := models.NewAssetSeries(models.AssetOptions, d, d.AddDate(0, 0, 1), []string{"SPY"})
	require.NoError(t, err)

	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, f.cached(t, models.AssetOptions, d, data)))

	bars, err := f.store.Read(drepo.OutputKey{AssetType: models.AssetOptions, Ticker: "SPY", Period: "2025-01-06"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "O:SPY250117P00400000", bars[0].Ticker)
	assert.Equal(t, "O:SPY250117C00500000", bars[1].Ticker)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.Len(t, f.mirror.bars, 2)
}

func TestNormalizeDayConvertsToMarketTime(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 6)
	at := d.Add(14*time.Hour + 30*time.Minute) // 09:30 in New York
	series, err := models.NewAssetSeries(models.AssetCrypto, d, d.AddDate(0, 0, 1), []string{"BTC-USD"})
	require.NoError(t, err)

	rec := f.cached(t, models.AssetCrypto, d, dayFile(t, row("X:BTC-USD", at, 90000), row("X:ETH-USD", at, 3000)))
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))

	bars, err := f.store.Read(drepo.OutputKey{AssetType: models.AssetCrypto, Ticker: "BTC-USD", Period: "2025-01-06"})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	loc, err := time.LoadLocation(MarketTimezone)
	require.NoError(t, err)
	ny := bars[0].Timestamp.In(loc)
	assert.Equal(t, 9, ny.Hour())
	assert.Equal(t, 30, ny.Minute())
	assert.True(t, at.Equal(bars[0].Timestamp))
	assert.Equal(t, 90000.0, bars[0].Open)
}

func TestNormalizeDayMarksMissingTickersEmpty(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 6)
	series, err := models.NewAssetSeries(models.AssetStocks, d, d.AddDate(0, 0, 1), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	rec := f.cached(t, models.AssetStocks, d, dayFile(t, row("AAPL", d.Add(15*time.Hour), 200)))
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))

	aapl, err := f.store.Stat(drepo.OutputKey{AssetType: models.AssetStocks, Ticker: "AAPL", Period: "2025-01-06"})
	require.NoError(t, err)
	assert.True(t, aapl.Present)
	msft, err := f.store.Stat(drepo.OutputKey{AssetType: models.AssetStocks, Ticker: "MSFT", Period: "2025-01-06"})
	require.NoError(t, err)
	assert.True(t, msft.Empty)
	assert.False(t, msft.Present)
}

func TestNormalizeDayEmptyDay(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 11)
	series, err := models.NewAssetSeries(models.AssetForex, d, d.AddDate(0, 0, 1), []string{"EUR-USD"})
	require.NoError(t, err)

	rec := models.DayRecord{AssetType: models.AssetForex, Day: d, State: models.DayCachedEmpty, Outcome: models.OutcomeMarkedEmpty}
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))

	info, err := f.store.Stat(drepo.OutputKey{AssetType: models.AssetForex, Ticker: "EUR-USD", Period: "2025-01-11"})
	require.NoError(t, err)
	assert.True(t, info.Empty)
}

func TestNormalizeDaySkipsCompleteOutputs(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 6)
	series, err := models.NewAssetSeries(models.AssetStocks, d, d.AddDate(0, 0, 1), []string{"AAPL"})
	require.NoError(t, err)

	rec := f.cached(t, models.AssetStocks, d, dayFile(t, row("AAPL", d.Add(15*time.Hour), 200)))
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))
	require.Len(t, f.mirror.bars, 1)

	rec.Outcome = models.OutcomeSkipped
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))
	assert.Len(t, f.mirror.bars, 1, "unchanged day with complete outputs is not re-derived")

	rec.Outcome = models.OutcomeUpdated
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))
	assert.Len(t, f.mirror.bars, 2)
}

func TestNormalizeDayUnreadableCacheProducesNothing(t *testing.T) {
	f := newNormalizerFixture(t)
	d := day(2025, 1, 6)
	series, err := models.NewAssetSeries(models.AssetStocks, d, d.AddDate(0, 0, 1), []string{"AAPL"})
	require.NoError(t, err)

	rec := f.cached(t, models.AssetStocks, d, []byte("not gzip"))
	require.NoError(t, f.normalizer.NormalizeDay(context.Background(), series, rec))

	info, err := f.store.Stat(drepo.OutputKey{AssetType: models.AssetStocks, Ticker: "AAPL", Period: "2025-01-06"})
	require.NoError(t, err)
	assert.False(t, info.Exists())
}
