package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FlatPull/internal/domain/models"
	drepo "FlatPull/internal/domain/repository"
	"FlatPull/pkg/logger"
	"FlatPull/pkg/util"
)

// Retriever sweeps a date range one day at a time for each asset series.
type Retriever struct {
	reconciler *DayReconciler
	normalizer *Normalizer
	observers  []ProgressObserver
	metrics    drepo.Metrics
	logger     *logger.Logger
}

type RetrieverOption func(*Retriever)

// WithNormalizer derives per-ticker files after every reconciled day.
func WithNormalizer(n *Normalizer) RetrieverOption {
	return func(r *Retriever) { r.normalizer = n }
}

func WithProgress(obs ...ProgressObserver) RetrieverOption {
	return func(r *Retriever) {
		for _, o := range obs {
			if o != nil {
				r.observers = append(r.observers, o)
			}
		}
	}
}

func WithRetrieverMetrics(m drepo.Metrics) RetrieverOption {
	return func(r *Retriever) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithRetrieverLogger(l *logger.Logger) RetrieverOption {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRetriever(reconciler *DayReconciler, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		reconciler: reconciler,
		metrics:    nopMetrics{},
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve reconciles every day of [EffectiveStart, End). Cancellation is
// observed between days, so a day is either fully reconciled or untouched.
func (r *Retriever) Retrieve(ctx context.Context, series models.AssetSeries) (*models.RetrievalRun, error) {
	run := models.NewRetrievalRun(series.AssetType)
	log := r.logger.With(logger.String("asset", string(series.AssetType)), logger.String("run_id", run.ID))

	if series.IsEmpty() {
		if !series.End.After(series.AvailableFrom) {
			log.Info(fmt.Sprintf("date range is before %s availability start date %s, skipping retrieval",
				series.AssetType, util.FormatDay(series.AvailableFrom)))
		}
		r.complete(run, nil, log)
		return run, nil
	}

	log.Info("retrieval started",
		logger.Day("start", series.EffectiveStart()),
		logger.Day("end", series.End),
		logger.Int("days", util.CountDays(series.EffectiveStart(), series.End)),
		logger.Strings("tickers", series.Tickers),
	)

	err := util.ForEachDay(series.EffectiveStart(), series.End, func(day time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		run.Current = day

		rec, err := r.reconciler.Reconcile(ctx, series, day, run)
		if err != nil {
			return err
		}
		if r.normalizer != nil {
			if err := r.normalizer.NormalizeDay(ctx, series, rec); err != nil {
				return fmt.Errorf("normalize %s %s: %w", series.AssetType, util.FormatDay(day), err)
			}
		}
		r.update(run)
		return nil
	})

	r.complete(run, err, log)
	return run, err
}

// RetrieveAll runs every series in order. A failing series does not stop the
// others; the returned error joins all failures.
func (r *Retriever) RetrieveAll(ctx context.Context, series []models.AssetSeries) ([]*models.RetrievalRun, error) {
	runs := make([]*models.RetrievalRun, 0, len(series))
	var errs []error
	for _, s := range series {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		run, err := r.Retrieve(ctx, s)
		runs = append(runs, run)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.AssetType, err))
		}
	}
	return runs, errors.Join(errs...)
}

func (r *Retriever) update(run *models.RetrievalRun) {
	for _, o := range r.observers {
		o.Update(*run)
	}
}

func (r *Retriever) complete(run *models.RetrievalRun, err error, log *logger.Logger) {
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Err = err.Error()
		log.Error("retrieval aborted",
			logger.Day("day", run.Current),
			logger.String("kind", models.ErrorKind(err)),
			logger.Error(err),
		)
	}
	for _, o := range r.observers {
		o.Finish(*run)
	}
	r.metrics.RecordRun(string(run.AssetType), run.Totals(), run.Current)

	log.Info(fmt.Sprintf("%s files summary: %d downloaded, %d updated, %d skipped",
		run.AssetType.Title(), run.Downloaded, run.Updated, run.Skipped+run.MarkedEmpty),
		logger.Int("marked_empty", run.MarkedEmpty),
		logger.Duration("elapsed_ms", run.FinishedAt.Sub(run.StartedAt)),
	)
}
