package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlatPull/internal/domain/models"
	drepo "FlatPull/internal/domain/repository"
	"FlatPull/pkg/logger"
	"FlatPull/internal/service/retry"
	"FlatPull/pkg/util"
)

type fetchAggsFunc func(context.Context, models.AggregateRequest) ([]models.Agg, error)

// AggregateRetriever builds monthly per-ticker files from the REST aggregates endpoint.
type AggregateRetriever struct {
	fetch      fetchAggsFunc
	store      drepo.TickerFileStore
	loc        *time.Location
	timespan   string
	multiplier int
	now        func() time.Time
	metrics    drepo.Metrics
	logger     *logger.Logger
}

type AggregateOption func(*AggregateRetriever)

func WithTimespan(timespan string, multiplier int) AggregateOption {
	return func(a *AggregateRetriever) {
		a.timespan = string(drepo.NormalizeTimespan(timespan))
		if multiplier > 0 {
			a.multiplier = multiplier
		}
	}
}

func WithAggregateClock(now func() time.Time) AggregateOption {
	return func(a *AggregateRetriever) { a.now = now }
}

func WithAggregateMetrics(m drepo.Metrics) AggregateOption {
	return func(a *AggregateRetriever) {
		if m != nil {
			a.metrics = m
		}
	}
}

func WithAggregateLogger(l *logger.Logger) AggregateOption {
	return func(a *AggregateRetriever) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAggregateRetriever(source drepo.AggregateSource, store drepo.TickerFileStore, policy *retry.Policy, opts ...AggregateOption) (*AggregateRetriever, error) {
	loc, err := time.LoadLocation(MarketTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	a := &AggregateRetriever{
		store:      store,
		loc:        loc,
		timespan:   string(drepo.DefaultTimespan()),
		multiplier: 1,
		now:        time.Now,
		metrics:    nopMetrics{},
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.fetch = retry.Wrap(policy, "fetch_aggregates", a.timed(source.FetchAggregates))
	return a, nil
}

func (a *AggregateRetriever) timed(fn fetchAggsFunc) fetchAggsFunc {
	return func(ctx context.Context, req models.AggregateRequest) ([]models.Agg, error) {
		start := time.Now()
		aggs, err := fn(ctx, req)
		status := "found"
		switch {
		case err != nil:
			status = models.ErrorKind(err)
		case len(aggs) == 0:
			status = "not_found"
		}
		a.metrics.RecordFetch("rest", status, time.Since(start).Seconds())
		return aggs, err
	}
}

// Retrieve walks the months of the series window for every ticker. A month is
// refetched until a file or marker written after the month closed exists.
func (a *AggregateRetriever) Retrieve(ctx context.Context, series models.AssetSeries) (*models.RetrievalRun, error) {
	run := models.NewRetrievalRun(series.AssetType)
	log := a.logger.With(logger.String("asset", string(series.AssetType)), logger.String("run_id", run.ID))

	err := a.retrieve(ctx, series, run, log)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Err = err.Error()
		log.Error("aggregate retrieval aborted", logger.Error(err))
	}
	a.metrics.RecordRun(string(run.AssetType), run.Totals(), run.Current)
	log.Info(fmt.Sprintf("%s aggregates summary: %d downloaded, %d updated, %d skipped",
		series.AssetType.Title(), run.Downloaded, run.Updated, run.Skipped+run.MarkedEmpty))
	return run, err
}

func (a *AggregateRetriever) retrieve(ctx context.Context, series models.AssetSeries, run *models.RetrievalRun, log *logger.Logger) error {
	if series.IsEmpty() {
		return nil
	}
	for _, symbol := range series.Tickers {
		apiTicker, ok := series.Match.APITicker(symbol)
		if !ok {
			return fmt.Errorf("%s aggregates need contract tickers, got underlying %q", series.AssetType, symbol)
		}
		for month := util.MonthStart(series.EffectiveStart()); month.Before(series.End); month = util.NextMonth(month) {
			if err := ctx.Err(); err != nil {
				return err
			}
			run.Current = month
			outcome, err := a.month(ctx, series.AssetType, symbol, apiTicker, month)
			if err != nil {
				return err
			}
			run.Record(outcome)
			a.metrics.RecordDay(string(series.AssetType), string(outcome))
			log.Debug("aggregate month done",
				logger.String("ticker", symbol),
				logger.String("month", util.FormatMonth(month)),
				logger.String("outcome", string(outcome)),
			)
		}
	}
	return nil
}

func (a *AggregateRetriever) month(ctx context.Context, asset models.AssetType, symbol, apiTicker string, month time.Time) (models.DayOutcome, error) {
	key := drepo.OutputKey{AssetType: asset, Ticker: symbol, Period: util.FormatMonth(month)}
	closes := util.NextMonth(month)

	info, err := a.store.Stat(key)
	if err != nil {
		return "", err
	}
	if info.Exists() && info.ModTime.After(closes) {
		return models.OutcomeSkipped, nil
	}

	aggs, err := a.fetch(ctx, models.AggregateRequest{
		Ticker:     apiTicker,
		From:       month,
		To:         closes.AddDate(0, 0, -1),
		Multiplier: a.multiplier,
		Timespan:   a.timespan,
	})
	if err != nil {
		a.metrics.RecordError(models.ErrorKind(err))
		if errors.Is(err, models.ErrMalformedPayload) {
			a.logger.Warn("malformed aggregates response, month left as is",
				logger.String("ticker", apiTicker),
				logger.String("month", key.Period),
				logger.Error(err),
			)
			return models.OutcomeMalformed, nil
		}
		return "", fmt.Errorf("%s %s: %w", apiTicker, key.Period, err)
	}

	if len(aggs) == 0 {
		if !a.now().After(closes) {
			return models.OutcomeSkipped, nil
		}
		if err := a.store.MarkEmpty(key); err != nil {
			return "", err
		}
		return models.OutcomeMarkedEmpty, nil
	}

	bars := make([]models.Bar, len(aggs))
	for i, agg := range aggs {
		bars[i] = agg.Bar(apiTicker, a.loc)
	}
	sortBars(bars)
	if err := a.store.Write(ctx, key, bars); err != nil {
		return "", fmt.Errorf("write %s %s: %w", symbol, key.Period, err)
	}
	if info.Present {
		return models.OutcomeUpdated, nil
	}
	return models.OutcomeDownloaded, nil
}
