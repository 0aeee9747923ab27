package main

import (
	"auth_gateway/internal/auth"
	"auth_gateway/internal/config"
	"auth_gateway/internal/handler"
	"auth_gateway/internal/metrics"
	"auth_gateway/internal/service"
	"auth_gateway/internal/storage"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	//PARSE ARGS
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config; environment only when empty")

	flag.Parse()

	cfg := config.MustLoad(configPath)

	//INIT LOGGER
	lgr := setupLogger(cfg.Env)
	lgr.Info("starting auth gateway", slog.String("env", cfg.Env), slog.String("storage", cfg.StorageDriver))

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lgr); err != nil {
		lgr.Error("auth gateway stopped", slog.Any("error", err))
		os.Exit(1)
	}

	lgr.Info("auth gateway stopped")
}

func run(ctx context.Context, cfg *config.Config, lgr *slog.Logger) error {
	//INIT DB
	users, resources, closeStores, err := openStores(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer closeStores()

	if cfg.Seed.Email != "" {
		if err := users.SeedUser(ctx, cfg.Seed.Email, cfg.Seed.Password); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		lgr.Info("seed user ensured", slog.String("email", cfg.Seed.Email))
	}

	//INIT METRICS
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promSink, err := metrics.NewPrometheusSink(reg)
	if err != nil {
		return err
	}
	sink := metrics.Fanout{promSink}

	if len(cfg.Metrics.KafkaBrokers) > 0 {
		kafkaSink := metrics.NewKafkaSink(cfg.Metrics.KafkaBrokers, cfg.Metrics.KafkaTopic, lgr)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				lgr.Error("failed to close kafka writer", slog.Any("error", err))
			}
		}()
		sink = append(sink, kafkaSink)

		lgr.Info("publishing usage events to kafka", slog.Any("brokers", cfg.Metrics.KafkaBrokers), slog.String("topic", cfg.Metrics.KafkaTopic))
	}

	//INIT SERVER
	tokens := auth.NewTokenService([]byte(cfg.Auth.Secret))

	h := handler.NewHandler(
		service.NewAuthService(users, tokens),
		service.NewResourceService(resources, sink),
		tokens,
		lgr,
	)

	srv := &http.Server{
		Addr: cfg.HTTPServer.Address,
		Handler: h.InitRoutes(handler.RouterConfig{
			MetricsPath:    cfg.Metrics.Path,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			AllowOrigins:   cfg.CORS.AllowOrigins,
		}),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lgr.Info("http server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lgr.Info("shutting down", slog.Duration("timeout", cfg.HTTPServer.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

// openStores connects both stores and applies their migrations. The returned
// func releases every connection.
func openStores(ctx context.Context, cfg *config.Config, lgr *slog.Logger) (storage.UserStorage, storage.ResourceStorage, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		lgr.Warn("using in-memory storage, data is lost on exit")

		mem := storage.NewMemoryStorage()
		return mem, mem, func() {}, nil
	}

	credsDSN := cfg.CredentialsDB.DSN()
	resourcesDSN := cfg.ResourcesDB.DSN()

	if err := storage.Migrate(ctx, credsDSN, storage.CredentialsMigrations); err != nil {
		return nil, nil, nil, fmt.Errorf("credentials store: %w", err)
	}
	if err := storage.Migrate(ctx, resourcesDSN, storage.ResourcesMigrations); err != nil {
		return nil, nil, nil, fmt.Errorf("resources store: %w", err)
	}
	lgr.Info("migrations applied")

	users, err := storage.NewPostgresStorage(ctx, credsDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("credentials store: %w", err)
	}

	resources, err := storage.NewPostgresResourceStorage(ctx, resourcesDSN)
	if err != nil {
		users.Close()
		return nil, nil, nil, fmt.Errorf("resources store: %w", err)
	}

	return users, resources, func() {
		resources.Close()
		users.Close()
	}, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
