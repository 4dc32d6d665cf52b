// Package bootstrap builds the dependency graph of the binaries from a
// Config: logger, metrics, molecule store, batch builder, optional redis
// cache and object storage, and the batch service on top of them.
package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph/internal/application/batching"
	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/internal/infrastructure/database/redis"
	"github.com/turtacn/MolGraph/internal/infrastructure/dataset/npz"
	"github.com/turtacn/MolGraph/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolGraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	httpapi "github.com/turtacn/MolGraph/internal/interfaces/http"
	"github.com/turtacn/MolGraph/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph/internal/interfaces/http/middleware"
	"github.com/turtacn/MolGraph/internal/interfaces/worker"
	"github.com/turtacn/MolGraph/pkg/errors"
)

const (
	cacheName      = "batches"
	limiterCleanup = 5 * time.Minute
)

// App holds the wired components.  Close releases them in reverse order.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Store     *molecule.Store
	Builder   *molgraph.BatchBuilder
	Service   batching.Service

	// Storage is nil unless an object storage endpoint is configured.
	Storage minio.ObjectStorageRepository
	// Cache is nil unless caching is enabled and redis is reachable.
	Cache redis.Cache

	limiter  *middleware.TokenBucketLimiter
	checkers []handlers.HealthChecker
	closers  []closer
}

type closer struct {
	name string
	fn   func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	logger logging.Logger
	store  *molecule.Store
}

// WithLogger uses l instead of a logger built from the config.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore uses s instead of loading the configured dataset.
func WithStore(s *molecule.Store) Option {
	return func(o *options) { o.store = s }
}

// New wires the application.  On error every component created so far is
// closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeValidation, "config is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.Logger = o.logger; app.Logger == nil {
		if app.Logger, err = logging.NewLogger(cfg.Log); err != nil {
			return nil, err
		}
	}

	if err = app.initMetrics(); err != nil {
		return nil, err
	}
	if err = app.initStorage(ctx); err != nil {
		return nil, err
	}

	if app.Store = o.store; app.Store == nil {
		if app.Store, err = app.loadStore(ctx); err != nil {
			return nil, err
		}
	}
	app.Metrics.SetDataset(app.Store.Len(), app.Store.TotalAtoms())
	app.Logger.Info("dataset loaded",
		logging.String("path", cfg.Dataset.Path),
		logging.Int("molecules", app.Store.Len()),
		logging.Int("max_atoms", app.Store.MaxAtoms()),
		logging.String("fingerprint", app.Store.Fingerprint()))

	app.Builder, err = molgraph.NewBatchBuilder(app.Store, cfg.Graph.Cutoff,
		molgraph.WithWorkers(cfg.Graph.Workers),
		molgraph.WithFillValue(cfg.Graph.Fill()),
		molgraph.WithMaxBatchSize(cfg.Graph.MaxBatchSize),
		molgraph.WithLogger(app.Logger.Named("molgraph")),
		molgraph.WithMetrics(app.Metrics),
	)
	if err != nil {
		return nil, err
	}

	app.initCache()

	svcOpts := []batching.Option{batching.WithLogger(app.Logger.Named("batching"))}
	if app.Cache != nil {
		svcOpts = append(svcOpts, batching.WithCache(app.Cache, cfg.Cache.TTL))
	}
	if app.Storage != nil {
		svcOpts = append(svcOpts, batching.WithExporter(app.Storage, cfg.Storage.MinIO.ExportBucket))
	}
	app.Service = batching.NewService(app.Builder, app.Store, svcOpts...)

	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		app.limiter = middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.Burst, limiterCleanup)
		app.onClose("rate-limiter", app.limiter.Stop)
	}
	return app, nil
}

func (a *App) initMetrics() error {
	if !a.Config.Metrics.Enabled {
		a.Collector = prometheus.NewNoopCollector()
	} else {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            a.Config.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, a.Logger)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create metrics collector")
		}
		a.Collector = collector
	}
	a.Metrics = prometheus.NewAppMetrics(a.Collector)
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.Config.Storage.MinIO.Endpoint == "" {
		return nil
	}
	client, err := minio.NewMinIOClient(a.Config.Storage.MinIO, a.Logger.Named("minio"))
	if err != nil {
		return err
	}
	a.onClose("minio", client.Close)
	a.Storage = minio.NewMinIORepository(client, a.Logger.Named("minio"))
	a.checkers = append(a.checkers, handlers.NewChecker("minio", client.HealthCheck))
	return nil
}

func (a *App) loadStore(ctx context.Context) (*molecule.Store, error) {
	path := a.Config.Dataset.Path
	storeOpts := []molecule.StoreOption{molecule.WithLogger(a.Logger.Named("store"))}

	if !a.Config.UsesObjectStorage() {
		return npz.LoadStore(path, storeOpts...)
	}
	if a.Storage == nil {
		return nil, errors.New(errors.ErrCodeArchiveSource, "object storage is not configured").WithDetail(path)
	}

	start := time.Now()
	data, err := a.Storage.Get(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveSource, "failed to fetch dataset").WithDetail(path)
	}
	a.Logger.Info("dataset fetched",
		logging.String("uri", path),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(start)))

	archive, err := npz.ReadBytes(data)
	if err != nil {
		return nil, err
	}
	return npz.NewStore(archive, storeOpts...)
}

// initCache connects to redis.  An unreachable redis disables the cache
// rather than failing startup.
func (a *App) initCache() {
	if !a.Config.Cache.Enabled {
		return
	}
	client, err := redis.NewClient(a.Config.Cache.Redis, a.Logger.Named("redis"))
	if err != nil {
		a.Logger.Warn("batch cache disabled: redis unavailable",
			logging.String("addr", a.Config.Cache.Redis.Addr),
			logging.Err(err))
		a.Metrics.SetHealth("redis", false)
		return
	}
	a.onClose("redis", client.Close)
	a.Cache = redis.NewRedisCache(client, a.Logger.Named("cache"),
		redis.WithPrefix(a.Config.Cache.Prefix),
		redis.WithDefaultTTL(a.Config.Cache.TTL),
		redis.WithLoadTimeout(a.Config.Cache.LoadTimeout),
		redis.WithAccessRecorder(cacheName, a.Metrics),
	)
	a.checkers = append(a.checkers, handlers.NewChecker("redis", client.Ping))
}

// Router builds the HTTP route tree.
func (a *App) Router(version string) *gin.Engine {
	cfg := httpapi.RouterConfig{
		BatchHandler:  handlers.NewBatchHandler(a.Service, a.Logger.Named("http")),
		HealthHandler: handlers.NewHealthHandler(version, a.Metrics, a.checkers...),
		Logger:        a.Logger.Named("http"),
		Metrics:       a.Metrics,
		Mode:          a.Config.Server.Mode,
	}
	if a.limiter != nil {
		cfg.RateLimiter = a.limiter
	}
	if a.Config.Metrics.Enabled {
		cfg.MetricsHandler = a.Collector.Handler()
		cfg.MetricsPath = a.Config.Metrics.Path
	}
	return httpapi.NewRouter(cfg)
}

// HTTPServer builds the HTTP server around Router.
func (a *App) HTTPServer(version string) *httpapi.Server {
	return httpapi.NewServer(a.Config.Server, a.Router(version), a.Logger.Named("http"))
}

// MetricsHandler exposes the registry, for binaries without the API router.
func (a *App) MetricsHandler() http.Handler {
	return a.Collector.Handler()
}

// Worker creates the Kafka producer and consumer and the worker serving
// them.  Missing topics are created when the broker allows it.
func (a *App) Worker(ctx context.Context) (*worker.Worker, *kafka.Consumer, error) {
	kc := a.Config.Messaging.Kafka
	if len(kc.Brokers) == 0 {
		return nil, nil, errors.New(errors.ErrCodeValidation, "messaging.kafka.brokers is required")
	}
	log := a.Logger.Named("kafka")

	if tm, err := kafka.NewTopicManager(kc.Brokers, log); err != nil {
		log.Warn("topic manager unavailable", logging.Err(err))
	} else {
		if err := tm.EnsureTopics(ctx, kafka.BatchTopics(kc.RequestTopic, kc.ResultTopic)); err != nil {
			log.Warn("failed to ensure topics", logging.Err(err))
		}
		_ = tm.Close()
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          kc.Brokers,
		Acks:             "all",
		CompressionCodec: "zstd",
	}, log)
	if err != nil {
		return nil, nil, err
	}
	a.onClose("kafka-producer", producer.Close)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: kc.Brokers,
		GroupID: kc.GroupID,
		Topics:  []string{kc.RequestTopic},
	}, log)
	if err != nil {
		return nil, nil, err
	}
	a.onClose("kafka-consumer", consumer.Close)

	w := worker.New(a.Service, producer, worker.Config{
		RequestTopic: kc.RequestTopic,
		ResultTopic:  kc.ResultTopic,
		BuildTimeout: kc.BatchTimeout,
	}, worker.WithLogger(a.Logger.Named("worker")), worker.WithMetrics(a.Metrics))
	return w, consumer, nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases every component, last created first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			if a.Logger != nil {
				a.Logger.Warn("close failed", logging.String("component", c.name), logging.Err(err))
			}
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return first
}
