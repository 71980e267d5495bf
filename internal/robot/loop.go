package robot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"persondiscovery/internal/logging"
	"persondiscovery/internal/services"
)

// Step performs one refresh-then-serve pass of a periodic robot.
type Step func(ctx context.Context) error

// Loop runs step, then waits period, forever. Per-pass failures are logged and
// retried on the next pass; only a fatal (configuration) error or context
// cancellation ends the loop. Cancellation is a clean exit and returns nil.
func Loop(ctx context.Context, clock Clock, period time.Duration, logger *slog.Logger, step Step) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			return nil
		}
		err := step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return nil
			}
			logPassFailure(logger, pass, err)
		case services.IsFatal(err):
			logging.ErrorWithContext(logger, "robot pass failed fatally", "robot_fatal",
				logging.Int("pass", pass),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check configuration and store provisioning"),
			)
			return err
		default:
			logPassFailure(logger, pass, err)
		}
		if err := clock.Sleep(ctx, period); err != nil {
			return nil
		}
	}
}

func logPassFailure(logger *slog.Logger, pass int, err error) {
	attrs := []logging.Attr{
		logging.Int("pass", pass),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	}
	if errors.Is(err, services.ErrTransient) {
		logger.Debug("robot pass failed; retrying after period", logging.Args(attrs...)...)
		return
	}
	logging.WarnWithContext(logger, "robot pass failed; retrying after period", "robot_pass_failed", attrs...)
}
