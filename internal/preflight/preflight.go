package preflight

import (
	"context"

	"persondiscovery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks relevant to a robot role.
func RunAll(ctx context.Context, cfg *config.Config, role string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if role == config.RoleMugshot {
		results = append(results, CheckDirectoryAccess("Frames directory", cfg.Paths.FramesDir))
	}
	if cfg.Queues.Backend == config.QueueBackendRedis {
		results = append(results, CheckRedis(ctx, cfg.Queues.RedisAddr, cfg.Queues.RedisDB))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
