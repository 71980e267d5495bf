package fairqueue

import (
	"context"
	"fmt"

	"persondiscovery/internal/config"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// Open returns the backend selected by the configuration and a function that
// releases it.
func Open(ctx context.Context, cfg *config.Config, st store.QueueStore) (Backend, func() error, error) {
	switch cfg.Queues.Backend {
	case config.QueueBackendStore, "":
		return StoreBackend{Store: st}, func() error { return nil }, nil
	case config.QueueBackendRedis:
		backend, err := DialRedis(ctx, cfg.Queues.RedisAddr, cfg.Queues.RedisDB, cfg.Queues.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	default:
		return nil, nil, services.Wrap(services.ErrConfiguration, "fairqueue", "open",
			fmt.Sprintf("unknown queue backend %q", cfg.Queues.Backend), nil)
	}
}
