package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"persondiscovery/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PD_STORE_PATH", "")
	t.Setenv("PD_REDIS_ADDR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "persondiscovery")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Path != filepath.Join(wantData, "store.db") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Queues.Backend != config.QueueBackendStore {
		t.Fatalf("unexpected queue backend: %q", cfg.Queues.Backend)
	}
	if cfg.Queues.SubmissionIn != "mediaeval.submission.in" {
		t.Fatalf("unexpected submission queue: %q", cfg.Queues.SubmissionIn)
	}
	if cfg.Label.MinAnnotators != 2 {
		t.Fatalf("unexpected min annotators: %d", cfg.Label.MinAnnotators)
	}
	if len(cfg.Label.Anchors) != 4 {
		t.Fatalf("expected four anchors, got %v", cfg.Label.Anchors)
	}
	if cfg.Leaderboard.LevenshteinThreshold != 0.95 {
		t.Fatalf("unexpected levenshtein threshold: %v", cfg.Leaderboard.LevenshteinThreshold)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PD_STORE_PATH", "")
	t.Setenv("PD_REDIS_ADDR", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	custom := config.Default()
	custom.Paths.DataDir = "~/pd"
	custom.Queues.Backend = "REDIS"
	custom.Queues.RedisPrefix = "test:"
	custom.Robots.LabelPeriod = 30
	custom.Label.Anchors = []string{" a_b ", "a_b", "", "c_d"}
	custom.Logging.Level = "DEBUG"

	payload, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "pd") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Store.Path != filepath.Join(tempHome, "pd", "store.db") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Queues.Backend != config.QueueBackendRedis {
		t.Fatalf("expected backend to be normalized, got %q", cfg.Queues.Backend)
	}
	if got := cfg.RolePeriod("label-out"); got != 30*time.Second {
		t.Fatalf("unexpected label period: %v", got)
	}
	if strings.Join(cfg.Label.Anchors, ",") != "a_b,c_d" {
		t.Fatalf("unexpected anchors: %v", cfg.Label.Anchors)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level normalized, got %q", cfg.Logging.Level)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	storePath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("PD_STORE_PATH", storePath)
	t.Setenv("PD_REDIS_ADDR", "redis.internal:6380")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Path != storePath {
		t.Fatalf("expected store path from env, got %q", cfg.Store.Path)
	}
	if cfg.Queues.RedisAddr != "redis.internal:6380" {
		t.Fatalf("expected redis addr from env, got %q", cfg.Queues.RedisAddr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"backend":     func(c *config.Config) { c.Queues.Backend = "kafka" },
		"queue name":  func(c *config.Config) { c.Queues.LabelIn = "" },
		"corpus":      func(c *config.Config) { c.Corpus.LabelAll = "" },
		"period":      func(c *config.Config) { c.Robots.MugshotPeriod = 0 },
		"annotators":  func(c *config.Config) { c.Label.MinAnnotators = 1 },
		"threshold":   func(c *config.Config) { c.Leaderboard.LevenshteinThreshold = 1.5 },
		"mugshot":     func(c *config.Config) { c.Mugshot.Size = 0 },
		"log format":  func(c *config.Config) { c.Logging.Format = "xml" },
		"robot label": func(c *config.Config) { c.Principals.RobotLabel = "" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PD_STORE_PATH", "")
	t.Setenv("PD_REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Corpus.Test != "mediaeval.test" {
		t.Fatalf("unexpected corpus: %q", cfg.Corpus.Test)
	}
}
