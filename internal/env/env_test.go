package env_test

import (
	"golden-diff/internal/env"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestOrDefault(t *testing.T) {
	t.Setenv("GOLDEN_DIFF_STRING", "s3")
	t.Setenv("GOLDEN_DIFF_INT", "42")
	t.Setenv("GOLDEN_DIFF_BOOL", "true")
	t.Setenv("GOLDEN_DIFF_DURATION", "3s")
	t.Setenv("GOLDEN_DIFF_FLOAT", "0.25")
	t.Setenv("GOLDEN_DIFF_MALFORMED", "many")

	if diff := cmp.Diff("s3", env.OrDefault("GOLDEN_DIFF_STRING", "file")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(42, env.OrDefault("GOLDEN_DIFF_INT", 1)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(true, env.OrDefault("GOLDEN_DIFF_BOOL", false)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3*time.Second, env.OrDefault("GOLDEN_DIFF_DURATION", time.Second)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0.25, env.OrDefault("GOLDEN_DIFF_FLOAT", 1.0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(7, env.OrDefault("GOLDEN_DIFF_MALFORMED", 7)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("fallback", env.OrDefault("GOLDEN_DIFF_UNSET", "fallback")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("GOLDEN_DIFF_FROM_FILE=loaded\nGOLDEN_DIFF_PRESET=file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOLDEN_DIFF_PRESET", "env")
	t.Setenv("GOLDEN_DIFF_FROM_FILE", "")
	os.Unsetenv("GOLDEN_DIFF_FROM_FILE")

	if err := env.Load(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if diff := cmp.Diff("loaded", os.Getenv("GOLDEN_DIFF_FROM_FILE")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("env", os.Getenv("GOLDEN_DIFF_PRESET")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
