package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/IgorGrieder/linkhive/internal/config"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/useragent"
	"github.com/IgorGrieder/linkhive/internal/messaging"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/IgorGrieder/linkhive/internal/storage"
	"github.com/IgorGrieder/linkhive/internal/storage/breaker"
	httpTransport "github.com/IgorGrieder/linkhive/internal/transport/http"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("click_count", cfg.Storage.ClickCount),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version, cfg.App.Env)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
			shutdownTracer = nil
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	backend, err := storage.Open(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer backend.Close()

	var finder links.LinkFinder = backend.Links
	if cfg.Breaker.Enabled {
		finder = breaker.NewLinkFinder(finder, breaker.Settings{
			Name:             "link-lookup",
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		})
	}

	var recorder analytics.Recorder = backend.Recorder
	var closeWriter func() error
	if cfg.Kafka.Enabled {
		writer := messaging.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closeWriter = writer.Close
		recorder = messaging.NewPublisher(writer, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
		logger.Info("Click events are published to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	var devices links.DeviceDetector
	if cfg.Resolver.ParseUserAgent {
		devices = useragent.New(logger.Named("useragent"))
	}

	hasher := links.NewBcryptHasher(bcrypt.DefaultCost)
	resolver := links.NewResolver(finder, recorder, hasher, links.ResolverOptions{
		AsyncAccounting:   cfg.Resolver.AsyncAccounting,
		AccountingTimeout: cfg.Resolver.AccountingTimeout,
		Devices:           devices,
	})
	linkSvc := links.NewService(backend.Links, backend.Stats, links.NewCryptoSlugger(), hasher, links.ServiceOptions{
		SlugLength:        cfg.Shortener.SlugLength,
		DerivedClickCount: cfg.DerivedClickCount(),
	})

	router := httpTransport.NewRouter(cfg, httpTransport.Dependencies{
		Resolver:    resolver,
		Service:     linkSvc,
		Store:       backend,
		StorageName: backend.Name,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if err := resolver.Drain(shutdownCtx); err != nil {
			logger.Warn("Pending click accounting did not finish", zap.Error(err))
		}
		if closeWriter != nil {
			if err := closeWriter(); err != nil {
				logger.Warn("Failed to close kafka writer", zap.Error(err))
			}
		}
		if shutdownTracer != nil {
			if err := shutdownTracer(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown tracer", zap.Error(err))
			}
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}

	<-stopped
	logger.Info("Server stopped gracefully")
}
