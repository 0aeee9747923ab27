package loadgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Mode string

const (
	ModeBurst      Mode = "burst"
	ModeContinuous Mode = "continuous"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBurst, ModeContinuous:
		return m, nil
	}

	return "", fmt.Errorf("unknown mode %q, want %q or %q", s, ModeBurst, ModeContinuous)
}

type RunConfig struct {
	Mode  Mode
	Ops   int
	Sleep time.Duration
}

// Run seeds the store and then performs operations: cfg.Ops of them in burst
// mode, or one every cfg.Sleep until ctx is done in continuous mode. It
// returns the number of completed operations. Cancellation is a clean stop.
func (g *Generator) Run(ctx context.Context, cfg RunConfig) (int, error) {
	const op = "loadgen.Run"

	if _, err := g.EnsureSeed(ctx, DefaultMinSeed); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	done := 0
	for {
		if cfg.Mode == ModeBurst && done >= cfg.Ops {
			g.log.Info("burst finished", slog.Int("ops", done))
			return done, nil
		}
		if ctx.Err() != nil {
			g.log.Info("stopped", slog.Int("ops", done))
			return done, nil
		}

		if _, err := g.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return done, nil
			}
			return done, fmt.Errorf("%s: %w", op, err)
		}
		done++

		if cfg.Mode == ModeContinuous && cfg.Sleep > 0 {
			t := time.NewTimer(cfg.Sleep)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
}
