package robot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/config"
	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
	"persondiscovery/internal/store/sqlitestore"
)

// Robot is one role's long-running process body.
type Robot interface {
	Run(ctx context.Context) error
}

// Env is everything a role needs: resolved resources, the queue backend, a
// clock, and a component logger.
type Env struct {
	Config  *config.Config
	Role    string
	Store   store.Store
	Catalog *catalog.Catalog
	Backend fairqueue.Backend
	Clock   Clock
	Logger  *slog.Logger
}

// Open connects to the store, resolves the workflow catalog, and opens the
// queue backend. Lookup failures are fatal configuration errors. The returned
// function releases everything Open acquired.
func Open(ctx context.Context, cfg *config.Config, role string, logger *slog.Logger) (*Env, func() error, error) {
	st, err := sqlitestore.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.Resolve(ctx, st, cfg)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	backend, closeBackend, err := fairqueue.Open(ctx, cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	env := &Env{
		Config:  cfg,
		Role:    role,
		Store:   st,
		Catalog: cat,
		Backend: backend,
		Clock:   SystemClock{},
		Logger:  logging.NewComponentLogger(logger, role),
	}
	release := func() error {
		return errors.Join(closeBackend(), st.Close())
	}
	return env, release, nil
}

// Period is the role's refresh and retry period.
func (e *Env) Period() time.Duration {
	return e.Config.RolePeriod(e.Role)
}

// DryRun reports whether writes must be skipped.
func (e *Env) DryRun() bool {
	return e.Config.Robots.DryRun
}

// LoopOptions configures a dequeue loop for this role. Dry-run roles replay
// a snapshot instead of popping.
func (e *Env) LoopOptions() fairqueue.LoopOptions {
	return fairqueue.LoopOptions{
		Period:  e.Period(),
		Sleeper: e.Clock,
		Replay:  e.DryRun(),
		Logger:  e.Logger,
	}
}

// Run drives step with the role's period.
func (e *Env) Run(ctx context.Context, step Step) error {
	return Loop(ctx, e.Clock, e.Period(), e.Logger, step)
}

// ItemContext tags ctx with a dequeued item's id and a fresh correlation id
// for the log lines written while handling it.
func (e *Env) ItemContext(ctx context.Context, itemID string) context.Context {
	ctx = services.WithRole(ctx, e.Role)
	ctx = services.WithItemID(ctx, itemID)
	return services.WithRequestID(ctx, uuid.NewString())
}

// QueueOf binds a typed queue on the role's backend.
func QueueOf[T any](e *Env, q store.Queue) *fairqueue.Queue[T] {
	return fairqueue.New[T](e.Backend, q)
}
