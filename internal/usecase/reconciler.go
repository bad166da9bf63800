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

type fetchDayFunc func(context.Context, models.DayFileRequest) (models.FetchResult, error)

// DayReconciler brings the local cache for one (asset, day) in line with the remote store.
type DayReconciler struct {
	cache   drepo.CacheStore
	fetch   fetchDayFunc
	events  drepo.EventPublisher
	metrics drepo.Metrics
	logger  *logger.Logger
}

type ReconcilerOption func(*DayReconciler)

func WithEvents(p drepo.EventPublisher) ReconcilerOption {
	return func(r *DayReconciler) { r.events = p }
}

func WithReconcilerMetrics(m drepo.Metrics) ReconcilerOption {
	return func(r *DayReconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithReconcilerLogger(l *logger.Logger) ReconcilerOption {
	return func(r *DayReconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewDayReconciler guards source with policy. Fetch latency is recorded per attempt.
func NewDayReconciler(cache drepo.CacheStore, source drepo.DayFileSource, policy *retry.Policy, opts ...ReconcilerOption) *DayReconciler {
	r := &DayReconciler{
		cache:   cache,
		metrics: nopMetrics{},
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.fetch = retry.Wrap(policy, "fetch_day_file", r.timed(source.FetchDayFile))
	return r
}

func (r *DayReconciler) timed(fn fetchDayFunc) fetchDayFunc {
	return func(ctx context.Context, req models.DayFileRequest) (models.FetchResult, error) {
		start := time.Now()
		res, err := fn(ctx, req)
		status := res.Status.String()
		if err != nil {
			status = models.ErrorKind(err)
		}
		r.metrics.RecordFetch("flatfiles", status, time.Since(start).Seconds())
		return res, err
	}
}

// Reconcile decides between skip, conditional fetch and unconditional fetch for
// day, applies the result to the cache and bumps the run counters.
func (r *DayReconciler) Reconcile(ctx context.Context, series models.AssetSeries, day time.Time, run *models.RetrievalRun) (models.DayRecord, error) {
	path := r.cache.PathFor(series.AssetType, day)
	rec := models.DayRecord{AssetType: series.AssetType, Day: day, Path: path, State: models.DayAbsent}
	log := r.logger.With(logger.String("asset", string(series.AssetType)), logger.Day("day", day))

	empty, err := r.cache.ExistsEmptyMarker(path)
	if err != nil {
		return rec, fmt.Errorf("check empty marker: %w", err)
	}
	if empty {
		rec.State = models.DayCachedEmpty
		rec.Outcome = models.OutcomeSkipped
		r.finish(ctx, run, &rec)
		return rec, nil
	}

	fp, cached, err := r.cache.Fingerprint(ctx, path)
	if err != nil {
		return rec, fmt.Errorf("fingerprint: %w", err)
	}

	req := models.DayFileRequest{
		AssetType:    series.AssetType,
		RemotePrefix: series.RemotePrefix,
		Day:          day,
	}
	if cached {
		rec.State = models.DayCached
		rec.Fingerprint = fp
		req.IfNoneMatch = fp
	}

	res, err := r.fetch(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrMalformedPayload) {
			log.Warn("malformed remote payload, keeping cache as is", logger.Error(err))
			r.metrics.RecordError(models.ErrorKind(err))
			rec.Outcome = models.OutcomeMalformed
			r.finish(ctx, run, &rec)
			return rec, nil
		}
		r.metrics.RecordError(models.ErrorKind(err))
		return rec, fmt.Errorf("%s %s: %w", series.AssetType, util.FormatDay(day), err)
	}

	switch res.Status {
	case models.FetchUnchanged:
		if !cached {
			return rec, fmt.Errorf("%s %s: unchanged answer to an unconditional request", series.AssetType, util.FormatDay(day))
		}
		rec.Outcome = models.OutcomeSkipped

	case models.FetchNotFound:
		if cached {
			log.Warn("remote file missing for cached day, keeping local copy", logger.String("path", path))
			rec.Outcome = models.OutcomeSkipped
			break
		}
		if err := r.cache.MarkEmpty(path); err != nil {
			return rec, fmt.Errorf("mark empty: %w", err)
		}
		rec.State = models.DayCachedEmpty
		rec.Outcome = models.OutcomeMarkedEmpty

	case models.FetchFound:
		if err := r.cache.Write(ctx, path, res.Data); err != nil {
			return rec, fmt.Errorf("write cache: %w", err)
		}
		rec.Outcome = models.OutcomeDownloaded
		if cached {
			rec.Outcome = models.OutcomeUpdated
		}
		rec.State = models.DayCached
		rec.Fingerprint = res.Fingerprint
		log.Debug("day file stored",
			logger.String("outcome", string(rec.Outcome)),
			logger.String("fingerprint", string(res.Fingerprint)),
			logger.Int("bytes", len(res.Data)),
		)

	default:
		return rec, fmt.Errorf("%s %s: unexpected fetch status %s", series.AssetType, util.FormatDay(day), res.Status)
	}

	r.finish(ctx, run, &rec)
	return rec, nil
}

func (r *DayReconciler) finish(ctx context.Context, run *models.RetrievalRun, rec *models.DayRecord) {
	if run != nil {
		run.Record(rec.Outcome)
	}
	r.metrics.RecordDay(string(rec.AssetType), string(rec.Outcome))

	if r.events == nil || !rec.Outcome.Changed() {
		return
	}
	ev := models.DayEvent{
		AssetType:   rec.AssetType,
		Day:         util.FormatDay(rec.Day),
		Outcome:     rec.Outcome,
		Fingerprint: rec.Fingerprint,
		At:          time.Now().UTC(),
	}
	if run != nil {
		ev.RunID = run.ID
	}
	if err := r.events.PublishDay(ctx, ev); err != nil {
		r.metrics.RecordError("events")
		r.logger.Warn("publish day event failed",
			logger.String("asset", string(rec.AssetType)),
			logger.Day("day", rec.Day),
			logger.Error(err),
		)
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordDay(string, string)                    {}
func (nopMetrics) RecordRetry(string, string)                  {}
func (nopMetrics) RecordFetch(string, string, float64)         {}
func (nopMetrics) RecordError(string)                          {}
func (nopMetrics) RecordRun(string, map[string]int, time.Time) {}
