package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"FlatPull/internal/domain/models"
	"FlatPull/internal/usecase"
	"FlatPull/pkg/config"
	xhttp "FlatPull/pkg/http"
	applogger "FlatPull/pkg/logger"
	"FlatPull/pkg/metrics"
)

// App encapsulates one retrieval run: status server, sweeps and resource cleanup.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	retriever  *usecase.Retriever
	aggregates *usecase.AggregateRetriever
	series     []models.AssetSeries
	recorder   *metrics.Recorder
	httpServer *xhttp.Server
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies. aggregates and
// httpServer may be nil when the matching features are disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	retriever *usecase.Retriever,
	aggregates *usecase.AggregateRetriever,
	series []models.AssetSeries,
	recorder *metrics.Recorder,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		retriever:  retriever,
		aggregates: aggregates,
		series:     series,
		recorder:   recorder,
		httpServer: httpServer,
	}
}

// OnClose registers a resource released at the end of Run, in reverse order.
// A nil closer is ignored.
func (a *App) OnClose(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run retrieves every enabled series and returns the joined series errors.
// SIGINT and SIGTERM stop the sweep between days.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			a.shutdown()
			return err
		}
	}

	a.logger.Info("retrieval run started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("data_dir", a.cfg.DataDir),
		applogger.String("start", a.cfg.Retrieval.Start),
		applogger.String("end", a.cfg.Retrieval.End),
		applogger.Int("series", len(a.series)),
	)

	var errs []error
	if _, err := a.retriever.RetrieveAll(ctx, a.series); err != nil {
		errs = append(errs, err)
	}
	if a.aggregates != nil {
		errs = append(errs, a.runAggregates(ctx))
	}

	if ctx.Err() != nil {
		a.logger.Info("shutdown signal received, run interrupted")
	}

	if path := a.cfg.Metrics.Textfile; path != "" && a.recorder != nil {
		if err := a.recorder.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics textfile write failed", applogger.String("path", path), applogger.Error(err))
		}
	}

	a.shutdown()
	return errors.Join(errs...)
}

func (a *App) runAggregates(ctx context.Context) error {
	var errs []error
	for _, s := range a.series {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if !s.Match.HasAPITickers() || len(s.Tickers) == 0 {
			a.logger.Info("aggregates not available for series, skipping",
				applogger.String("asset", string(s.AssetType)),
				applogger.Int("tickers", len(s.Tickers)),
			)
			continue
		}
		if _, err := a.aggregates.Retrieve(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s aggregates: %w", s.AssetType, err))
		}
	}
	return errors.Join(errs...)
}

// shutdown stops the status server and closes resources.
func (a *App) shutdown() {
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn(nc.name+" close error", applogger.Error(err))
		}
	}
	a.closers = nil
	a.logger.Info("shutdown complete")
}
