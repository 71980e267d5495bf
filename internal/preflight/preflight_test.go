package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"persondiscovery/internal/config"
	"persondiscovery/internal/preflight"
	"persondiscovery/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	if result := preflight.CheckRedis(context.Background(), srv.Addr(), 0); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := preflight.CheckRedis(context.Background(), "", 0); result.Passed {
		t.Fatal("expected failure without address")
	}
}

func TestRunAllIncludesRoleChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.FramesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := preflight.RunAll(context.Background(), cfg, config.RoleMugshot)
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	var sawFrames bool
	for _, r := range results {
		if r.Name == "Frames directory" {
			sawFrames = true
		}
	}
	if !sawFrames {
		t.Fatal("expected frames directory check for the mugshot role")
	}

	results = preflight.RunAll(context.Background(), cfg, config.RoleLeaderboard)
	for _, r := range results {
		if r.Name == "Frames directory" {
			t.Fatal("frames directory is only checked for the mugshot role")
		}
	}
}
