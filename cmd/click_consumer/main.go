package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IgorGrieder/linkhive/internal/config"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkhive/internal/messaging"
	"github.com/IgorGrieder/linkhive/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Backend == config.StorageMemory {
		fmt.Fprintln(os.Stderr, "click consumer needs a shared storage backend (STORAGE_BACKEND=mongo or postgres)")
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceName := cfg.App.Name + "-click-consumer"
	if cfg.OTel.Enabled {
		shutdownTracer, err := telemetry.InitTracer(cfg.OTel.Endpoint, serviceName, cfg.App.Version, cfg.App.Env)
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized",
				zap.String("endpoint", cfg.OTel.Endpoint),
				zap.String("service", serviceName),
			)
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Warn("failed to shutdown tracer", zap.Error(err))
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer backend.Close()

	reader := messaging.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.FetchMaxWait)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	consumer := messaging.NewConsumer(reader, backend.Recorder, messaging.ConsumerOptions{
		OperationTimeout: cfg.Kafka.OperationTimeout,
		Backoff:          cfg.Kafka.ConsumeBackoff,
	})

	logger.Info("click consumer started",
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("kafka_topic", cfg.Kafka.Topic),
		zap.String("kafka_group", cfg.Kafka.GroupID),
		zap.String("storage", backend.Name),
	)

	if err := consumer.Run(ctx); err != nil {
		logger.Error("click consumer stopped with error", zap.Error(err))
		return
	}
	logger.Info("click consumer stopping")
}
