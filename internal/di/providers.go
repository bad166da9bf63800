package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"FlatPull/internal/domain/models"
	"FlatPull/internal/domain/repository"
	"FlatPull/internal/handler/api"
	internalrepo "FlatPull/internal/repository"
	"FlatPull/internal/service/flatfiles"
	"FlatPull/internal/service/massive"
	"FlatPull/internal/service/ratelimit"
	"FlatPull/internal/usecase"
	"FlatPull/pkg/cache"
	pkgch "FlatPull/pkg/clickhouse"
	"FlatPull/pkg/config"
	xhttp "FlatPull/pkg/http"
	pkgkafka "FlatPull/pkg/kafka"
	"FlatPull/pkg/logger"
	"FlatPull/pkg/metrics"
	"FlatPull/internal/service/retry"
	"FlatPull/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideRetryPolicy builds the policy shared by every remote call.
func ProvideRetryPolicy(cfg *config.Config, l *logger.Logger, m repository.Metrics) *retry.Policy {
	return retry.New(
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithDelays(cfg.Retry.MinDelay, cfg.Retry.MaxDelay),
		retry.WithMultiplier(cfg.Retry.Multiplier),
		retry.WithJitter(cfg.Retry.Jitter),
		retry.WithLogger(l),
		retry.WithObserver(func(op string, _ int, err error) {
			m.RecordRetry(op, models.ErrorKind(err))
		}),
	)
}

// ProvideFingerprintMemo returns nil unless a shared backend is configured.
// Each path is hashed once per run, so only a store that outlives the process can hit.
func ProvideFingerprintMemo(cfg *config.Config, l *logger.Logger) (*internalrepo.FingerprintMemo, error) {
	fc := cfg.FingerprintCache
	if fc.Backend != "redis" {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(fc.Redis.Host),
		cache.WithRedisPort(fc.Redis.Port),
		cache.WithRedisPassword(fc.Redis.Password),
		cache.WithRedisDB(fc.Redis.DB),
		cache.WithRedisPrefix(fc.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("fingerprint cache: %w", err)
	}
	return internalrepo.NewFingerprintMemo(rc, fc.TTL, l), nil
}

func ProvideCacheStore(cfg *config.Config, memo *internalrepo.FingerprintMemo, l *logger.Logger) repository.CacheStore {
	return internalrepo.NewFileCacheStore(cfg.DataDir,
		internalrepo.WithFingerprintMemo(memo),
		internalrepo.WithCacheLogger(l),
	)
}

func ProvideTickerStore(cfg *config.Config, l *logger.Logger) repository.TickerFileStore {
	return internalrepo.NewParquetTickerStore(cfg.DataDir, l)
}

// ProvideDayFileSource creates the S3 flat-file client.
func ProvideDayFileSource(cfg *config.Config, l *logger.Logger) (repository.DayFileSource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := flatfiles.New(ctx, flatfiles.Config{
		Endpoint:        cfg.FlatFiles.Endpoint,
		Bucket:          cfg.FlatFiles.Bucket,
		Region:          cfg.FlatFiles.Region,
		AccessKeyID:     cfg.FlatFiles.AccessKeyID,
		SecretAccessKey: cfg.FlatFiles.SecretAccessKey,
		Timeout:         cfg.FlatFiles.Timeout,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("flat files client: %w", err)
	}
	return client, nil
}

// ProvideAggregateSource returns nil unless monthly aggregates are enabled.
func ProvideAggregateSource(cfg *config.Config, l *logger.Logger) (repository.AggregateSource, error) {
	if !cfg.Aggregates.Enabled {
		return nil, nil
	}
	client, err := massive.New(cfg.REST.BaseURL, cfg.REST.APIKey,
		massive.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.REST.Timeout))),
		massive.WithLimiter(ratelimit.New(cfg.REST.RateLimit, cfg.REST.Burst)),
		massive.WithPageLimit(cfg.REST.PageLimit),
		massive.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("rest client: %w", err)
	}
	return client, nil
}

// ProvideClickHouseClient returns nil unless the bar mirror is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithDialTimeout(cfg.ClickHouse.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.BarSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideBarMirror(client *pkgch.Client) repository.BarMirror {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseBarMirror(client.DB(), client.Database())
}

// ProvideKafkaProducer returns nil unless day events are enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithTopic(cfg.Events.Topic),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithWriteTimeout(cfg.Events.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideEventPublisher(producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer)
}

func ProvideDayReconciler(
	cache repository.CacheStore,
	source repository.DayFileSource,
	policy *retry.Policy,
	events repository.EventPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.DayReconciler {
	return usecase.NewDayReconciler(cache, source, policy,
		usecase.WithEvents(events),
		usecase.WithReconcilerMetrics(m),
		usecase.WithReconcilerLogger(l),
	)
}

// ProvideNormalizer returns nil when normalization is turned off.
func ProvideNormalizer(
	cfg *config.Config,
	cache repository.CacheStore,
	store repository.TickerFileStore,
	mirror repository.BarMirror,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.Normalizer, error) {
	if !cfg.Retrieval.Normalize {
		return nil, nil
	}
	return usecase.NewNormalizer(cache, store,
		usecase.WithMirror(mirror),
		usecase.WithNormalizerMetrics(m),
		usecase.WithNormalizerLogger(l),
	)
}

func ProvideProgressBoard() *usecase.ProgressBoard {
	return usecase.NewProgressBoard()
}

func ProvideRetriever(
	cfg *config.Config,
	reconciler *usecase.DayReconciler,
	normalizer *usecase.Normalizer,
	board *usecase.ProgressBoard,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Retriever {
	var console usecase.ProgressObserver
	if cfg.Retrieval.Progress {
		console = usecase.NewConsoleProgress(os.Stdout)
	}
	return usecase.NewRetriever(reconciler,
		usecase.WithNormalizer(normalizer),
		usecase.WithProgress(board, console),
		usecase.WithRetrieverMetrics(m),
		usecase.WithRetrieverLogger(l),
	)
}

// ProvideAggregateRetriever returns nil when there is no aggregate source.
func ProvideAggregateRetriever(
	cfg *config.Config,
	source repository.AggregateSource,
	store repository.TickerFileStore,
	policy *retry.Policy,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.AggregateRetriever, error) {
	if source == nil {
		return nil, nil
	}
	return usecase.NewAggregateRetriever(source, store, policy,
		usecase.WithTimespan(cfg.Aggregates.Timespan, cfg.Aggregates.Multiplier),
		usecase.WithAggregateMetrics(m),
		usecase.WithAggregateLogger(l),
	)
}

// ProvideSeries resolves the enabled asset classes in sweep order.
func ProvideSeries(cfg *config.Config) ([]models.AssetSeries, error) {
	start, end, err := cfg.Range()
	if err != nil {
		return nil, err
	}
	assets := map[models.AssetType]config.AssetConfig{
		models.AssetStocks:  cfg.Retrieval.Assets.Stocks,
		models.AssetOptions: cfg.Retrieval.Assets.Options,
		models.AssetCrypto:  cfg.Retrieval.Assets.Crypto,
		models.AssetForex:   cfg.Retrieval.Assets.Forex,
	}

	var out []models.AssetSeries
	for _, asset := range models.AllAssetTypes {
		ac := assets[asset]
		if !ac.Enabled {
			continue
		}
		s, err := models.NewAssetSeries(asset, start, end, ac.Tickers)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ProvideHTTPServer returns nil unless the status server is enabled.
func ProvideHTTPServer(cfg *config.Config, board *usecase.ProgressBoard, rec *metrics.Recorder, l *logger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	return xhttp.NewServer(api.NewStatusEchoHandler(l, board), l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRegistry(rec.Registry()),
	)
}

// ProvideApp creates the application and hands it the resources to close.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	retriever *usecase.Retriever,
	aggregates *usecase.AggregateRetriever,
	series []models.AssetSeries,
	rec *metrics.Recorder,
	httpServer *xhttp.Server,
	memo *internalrepo.FingerprintMemo,
	chClient *pkgch.Client,
	events repository.EventPublisher,
) *server.App {
	app := server.New(cfg, l, retriever, aggregates, series, rec, httpServer)
	if memo != nil {
		app.OnClose("fingerprint cache", memo)
	}
	if chClient != nil {
		app.OnClose("clickhouse", chClient)
	}
	if events != nil {
		app.OnClose("kafka producer", events)
	}
	return app
}
