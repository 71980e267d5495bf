package testsupport

import (
	"path/filepath"
	"testing"

	"persondiscovery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FramesDir = filepath.Join(base, "frames")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Store.Path = filepath.Join(base, "data", "store.db")
	cfgVal.Robots.SubmissionPeriod = 1
	cfgVal.Robots.EvidencePeriod = 1
	cfgVal.Robots.LabelPeriod = 1
	cfgVal.Robots.MugshotPeriod = 1
	cfgVal.Robots.LeaderboardPeriod = 1

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDryRun toggles dry-run mode.
func WithDryRun() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Robots.DryRun = true
	}
}

// WithRedis switches the queue backend to Redis at addr.
func WithRedis(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queues.Backend = config.QueueBackendRedis
		b.cfg.Queues.RedisAddr = addr
	}
}

// WithMutation applies an arbitrary change to the config.
func WithMutation(mutate func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		mutate(b.cfg)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
