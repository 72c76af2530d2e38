package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	assessmenthandler "cardiotrack/internal/assessment/handler"
	assessmentmetrics "cardiotrack/internal/assessment/metrics"
	"cardiotrack/internal/assessment/scoring"
	assessmentservice "cardiotrack/internal/assessment/service"
	"cardiotrack/internal/events"
	"cardiotrack/internal/events/relay"
	httpapi "cardiotrack/internal/http"
	"cardiotrack/internal/insights/cache"
	insightshandler "cardiotrack/internal/insights/handler"
	insightsmetrics "cardiotrack/internal/insights/metrics"
	insightsservice "cardiotrack/internal/insights/service"
	patienthandler "cardiotrack/internal/patient/handler"
	patientmetrics "cardiotrack/internal/patient/metrics"
	patientservice "cardiotrack/internal/patient/service"
	"cardiotrack/internal/platform/config"
	"cardiotrack/internal/platform/httpserver"
	"cardiotrack/internal/platform/kafka"
	"cardiotrack/internal/platform/logger"
	"cardiotrack/internal/platform/metrics"
	"cardiotrack/internal/platform/redis"
	reporthandler "cardiotrack/internal/report/handler"
	"cardiotrack/internal/report/pdf"
	reportservice "cardiotrack/internal/report/service"
	"cardiotrack/pkg/platform/circuit"
)

const (
	shutdownTimeout  = 10 * time.Second
	topicPartitions  = 3
	topicReplication = 1
)

// main wires dependencies and runs the HTTP server and the outbox relay
// until a signal arrives. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	model, err := scoring.Load(cfg.Scoring.ModelPath)
	if err != nil {
		return err
	}

	store, err := openBackend(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, topicPartitions, topicReplication); err != nil {
			return err
		}
	}

	reg := prometheus.DefaultRegisterer
	recorder := events.NewRecorder(store.outbox, log)

	patients := patientservice.New(store.profiles, store.records,
		patientservice.WithLogger(log),
		patientservice.WithMetrics(patientmetrics.New(reg)),
		patientservice.WithEvents(recorder),
		patientservice.WithTx(store.tx),
	)

	insightsOpts := []insightsservice.Option{
		insightsservice.WithLogger(log),
		insightsservice.WithMetrics(insightsmetrics.New(reg)),
	}
	assessOpts := []assessmentservice.Option{
		assessmentservice.WithLogger(log),
		assessmentservice.WithMetrics(assessmentmetrics.New(reg)),
		assessmentservice.WithEvents(recorder),
		assessmentservice.WithTx(store.tx),
	}
	var statsCache interface {
		insightsservice.StatsCache
		assessmentservice.StatsInvalidator
	}
	switch {
	case redisClient != nil:
		statsCache = cache.NewGuarded(
			cache.NewRedisStatsCache(redisClient.Client, cfg.Redis.StatsCacheTTL),
			circuit.New("stats-cache"),
			log,
		)
	case store.db == nil:
		// Memory backend: this process sees every write, so a local cache stays coherent.
		statsCache = cache.NewInMemory(cfg.Redis.StatsCacheTTL)
	}
	if statsCache != nil {
		insightsOpts = append(insightsOpts, insightsservice.WithStatsCache(statsCache))
		assessOpts = append(assessOpts, assessmentservice.WithStatsInvalidator(statsCache))
	}

	assessments, err := assessmentservice.New(patients, store.records, model, assessOpts...)
	if err != nil {
		return err
	}
	insights := insightsservice.New(store.profiles, store.records, insightsOpts...)
	reports := reportservice.New(store.records, store.profiles, pdf.NewRenderer(), reportservice.WithLogger(log))

	checks := map[string]httpapi.HealthCheck{}
	if store.db != nil {
		checks["database"] = store.db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}
	if producer != nil {
		checks["kafka"] = producer.Health
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: prometheus.DefaultGatherer,
		Checks:   checks,
		Handlers: []httpapi.Registrar{
			patienthandler.New(patients, log),
			assessmenthandler.New(assessments, log),
			insightshandler.New(insights, log),
			reporthandler.New(reports, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	var publisher relay.Publisher = relay.LogPublisher{Logger: log}
	if producer != nil {
		publisher = producer
	}
	outboxRelay := relay.New(store.outbox, publisher, store.tx, cfg.Kafka.PollInterval,
		relay.WithLogger(log),
		relay.WithMetrics(relay.NewMetrics(reg)),
		relay.WithBatchSize(cfg.Kafka.BatchSize),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting cardiotrack", "addr", cfg.Addr)
		return httpserver.Serve(gctx, srv, nil, shutdownTimeout, log)
	})
	g.Go(func() error {
		if err := outboxRelay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}
