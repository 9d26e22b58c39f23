// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AccelByte/extend-ranked-matchmaker/pkg/api"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/config"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/coordinator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/evaluator"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store/archive"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store/memory"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/store/postgres"
	"github.com/AccelByte/extend-ranked-matchmaker/pkg/worker"
)

const serviceName = "ranked-matchmaker"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, reading environment variables directly")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		logrus.Fatalf("unable to parse environment variables: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		logrus.Fatalf("unable to set up tracing: %v", err)
	}
	defer shutdownTracing()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ratings, err := newRatingStore(cfg)
	if err != nil {
		logrus.Fatalf("unable to open rating store: %v", err)
	}
	sessionArchive, closeArchive, err := newArchive(ctx, cfg)
	if err != nil {
		logrus.Fatalf("unable to open session archive: %v", err)
	}
	defer closeArchive()

	// per game rule engines register here; unknown game kinds never end on their own
	evaluators := evaluator.NewRegistry(evaluator.NeverEnding)

	c := coordinator.New(cfg, ratings, sessionArchive, evaluators, metrics.NewMetrics(registry))

	w, err := worker.New(c, cfg.SweepInterval(), constants.ReconcileInterval)
	if err != nil {
		logrus.Fatalf("unable to start worker: %v", err)
	}
	w.Start()

	app := api.NewApp(c, registry)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logrus.Infof("listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logrus.Errorf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.Errorf("http shutdown: %v", err)
	}
	if err := w.Stop(); err != nil {
		logrus.Errorf("worker shutdown: %v", err)
	}
	if pending := c.PendingOutcomes(); pending > 0 {
		logrus.Warnf("%d outcomes still waiting for rating persistence", pending)
	}
}

func setupTracing(cfg *config.Config) (func(), error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(b3.New(), propagation.TraceContext{}, propagation.Baggage{}))

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}
	if cfg.ZipkinEndpoint != "" {
		exporter, err := zipkin.New(cfg.ZipkinEndpoint)
		if err != nil {
			return nil, err
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(options...)
	otel.SetTracerProvider(provider)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logrus.Errorf("tracer shutdown: %v", err)
		}
	}, nil
}

func newRatingStore(cfg *config.Config) (store.RatingStore, error) {
	if cfg.DatabaseURL == "" {
		logrus.Warn("DATABASE_URL not set, ratings are kept in memory")
		return memory.NewRatingStore(), nil
	}
	return postgres.Open(cfg.DatabaseURL)
}

func newArchive(ctx context.Context, cfg *config.Config) (store.SessionArchive, func(), error) {
	if cfg.RedisAddr == "" {
		logrus.Warn("REDIS_ADDR not set, finished sessions are kept in memory")
		return memory.NewArchive(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return archive.New(client, serviceName), func() { _ = client.Close() }, nil
}
