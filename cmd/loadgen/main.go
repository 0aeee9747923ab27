package main

import (
	"auth_gateway/internal/loadgen"
	"auth_gateway/internal/storage"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

type options struct {
	dsn      string
	usersDSN string
	mode     string
	ops      int
	sleep    time.Duration
	seed     int64
	migrate  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dsn, "dsn", "", "resources database DSN (falls back to DB_DSN, then POSTGRES_*)")
	flag.StringVar(&opts.usersDSN, "users-dsn", "", "credentials database DSN; defaults to the resources DSN")
	flag.StringVar(&opts.mode, "mode", string(loadgen.ModeBurst), "burst or continuous")
	flag.IntVar(&opts.ops, "ops", 50, "operations in burst mode")
	flag.DurationVar(&opts.sleep, "sleep", time.Second, "delay between operations in continuous mode")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	flag.BoolVar(&opts.migrate, "migrate", false, "apply the resources migrations before generating")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to read .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Getenv, log); err != nil {
		log.Error("load generator failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, getenv func(string) string, log *slog.Logger) error {
	mode, err := loadgen.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	dsn := resolveDSN(opts.dsn, getenv)
	usersDSN := opts.usersDSN
	if usersDSN == "" {
		usersDSN = dsn
	}
	log.Info("connecting", slog.String("dsn", redact(dsn)))

	if opts.migrate {
		if err := storage.Migrate(ctx, dsn, storage.ResourcesMigrations); err != nil {
			return err
		}
	}

	resources, err := storage.NewPostgresResourceStorage(ctx, dsn)
	if err != nil {
		return err
	}
	defer resources.Close()

	users, err := storage.NewPostgresStorage(ctx, usersDSN)
	if err != nil {
		return err
	}
	defer users.Close()

	var genOpts []loadgen.Option
	if opts.seed != 0 {
		genOpts = append(genOpts, loadgen.WithSeed(opts.seed))
	}
	gen := loadgen.New(resources, users, log, genOpts...)

	if mode == loadgen.ModeContinuous {
		log.Info("continuous mode started, interrupt to stop", slog.Duration("sleep", opts.sleep))
	}

	done, err := gen.Run(ctx, loadgen.RunConfig{Mode: mode, Ops: opts.ops, Sleep: opts.sleep})
	if err != nil {
		return err
	}

	log.Info("done", slog.String("mode", string(mode)), slog.Int("ops", done))

	return nil
}

// resolveDSN picks the --dsn flag, then DB_DSN, then a DSN assembled from
// POSTGRES_* variables with local defaults.
func resolveDSN(flagDSN string, getenv func(string) string) string {
	if flagDSN != "" {
		return flagDSN
	}
	if dsn := getenv("DB_DSN"); dsn != "" {
		return dsn
	}

	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(env("POSTGRES_USER", "metrics"), env("POSTGRES_PASSWORD", "metrics_pass")),
		Host:   net.JoinHostPort(env("POSTGRES_HOST", "localhost"), env("POSTGRES_PORT", "55432")),
		Path:   "/" + env("POSTGRES_DB", "metrics_db"),
	}

	return u.String()
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Sprintf("<unparsable dsn: %d bytes>", len(dsn))
	}

	return u.Redacted()
}
