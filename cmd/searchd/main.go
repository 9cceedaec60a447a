package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/coordinator"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/rpc"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/objectstore"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search daemon failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search daemon stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search daemon",
		"port", cfg.Server.Port,
		"source", cfg.Source.Driver,
		"kafka", cfg.Kafka.Enabled,
		"redis", cfg.Redis.Enabled,
		"postgres", cfg.Postgres.Enabled,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, reg)
		if err != nil {
			return err
		}
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	bucket, err := objectstore.Open(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("opening source bucket: %w", err)
	}
	defer bucket.Close()
	store := source.NewBucketStore(bucket, cfg.Source, m)
	checker.Register("source", health.BreakerCheck(store.Breaker()))
	slog.Info("source store ready", "bucket", bucket.Name())

	overrides, err := extract.ParseOverrides(cfg.Indexer.WeightOverrides)
	if err != nil {
		return fmt.Errorf("parsing weight overrides: %w", err)
	}
	tok := tokenizer.New(tokenizer.Options{
		MinLength: cfg.Tokenizer.MinLength,
		Stem:      cfg.Tokenizer.Stem,
		StopWords: cfg.Tokenizer.StopWords,
	})
	b := builder.New(store, extract.New(overrides), tok, builder.Config{
		ExtractTimeout: cfg.Indexer.ExtractTimeout,
		VisibilityWait: cfg.Source.VisibilityWait,
		VisibilityPoll: cfg.Source.VisibilityPoll,
	}, m)

	var jobs builder.JobStore = builder.NewMemoryJobStore(cfg.Indexer.JobHistory)
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pg.Close()
		pgJobs, err := builder.NewPostgresJobStore(ctx, pg)
		if err != nil {
			return fmt.Errorf("preparing job store: %w", err)
		}
		jobs = pgJobs
		checker.Register("postgres", health.PingCheck(pg.Ping))
		slog.Info("job history stored in postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	var sink coordinator.EventSink
	if cfg.Kafka.Enabled {
		kafkaSink := coordinator.NewKafkaSink(kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexPublished, "searchd"))
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	engine := indexer.NewEngine(m)
	coord := coordinator.New(engine, b, jobs, coordinator.Config{
		Workers:         cfg.Indexer.Workers,
		BuildWorkers:    cfg.Indexer.BuildWorkers,
		QueueSize:       cfg.Indexer.QueueSize,
		VerifyOnPublish: cfg.Indexer.VerifyOnPublish,
		VerifyInterval:  cfg.Indexer.VerifyInterval,
	}, sink, m)
	coord.Start(ctx)
	defer coord.Stop()
	checker.Register("index", coord.HealthCheck())

	ack, err := coord.Reindex(ctx, nil, coordinator.TriggerStartup)
	if err != nil {
		return fmt.Errorf("scheduling startup reindex: %w", err)
	}
	slog.Info("startup reindex scheduled", "job_id", ack.JobID)

	if cfg.Kafka.Enabled {
		changes := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogChanges, consumer.HandleMessage(coord, m)))
		go func() {
			if err := changes.Start(ctx); err != nil {
				slog.Error("change consumer stopped", "error", err)
			}
		}()
		slog.Info("change consumer started", "topic", cfg.Kafka.Topics.CatalogChanges)
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	svc := service.New(engine,
		executor.New(engine, parser.New(tok, cfg.Search.MaxLimit)),
		suggest.New(engine, cfg.Search.SuggestMaxLimit),
		queryCache, coord, m)

	if cfg.RPC.Enabled {
		rpcServer := grpc.NewServer(cfg.RPC.CallTimeout)
		rpc.Register(rpcServer, svc)
		go func() {
			if err := rpcServer.Serve(cfg.RPC.Addr); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	mux := http.NewServeMux()
	handler.New(svc, handler.Config{
		DefaultLimit:        cfg.Search.DefaultLimit,
		SuggestDefaultLimit: cfg.Search.SuggestDefaultLimit,
		ReindexPerMinute:    cfg.Search.ReindexPerMinute,
	}).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Metrics(m, mux),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search daemon listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
