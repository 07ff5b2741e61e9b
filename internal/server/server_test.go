package server

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/manifest/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Default(t.TempDir())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	s, cleanup, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	if s == nil {
		t.Fatal("expected server")
	}
	if _, err := os.Stat(cfg.DBPath()); err != nil {
		t.Errorf("database not created at %s: %v", cfg.DBPath(), err)
	}
}

func TestNew_BadPathReturnsNoopCleanup(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default(blocker)
	cfg.DataDir = filepath.Join(blocker, "data")

	_, cleanup, err := New(cfg, discard())
	if err == nil {
		t.Fatal("expected error when the data dir cannot be created")
	}
	if cleanup == nil {
		t.Fatal("cleanup must never be nil")
	}
	cleanup()
}

func TestTools_UniqueNames(t *testing.T) {
	st, err := OpenStore(testConfig(t), discard())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()

	seen := map[string]bool{}
	for _, tool := range Tools(st) {
		name := tool.Definition().Name
		if name == "" {
			t.Error("tool with empty name")
		}
		if seen[name] {
			t.Errorf("duplicate tool name %q", name)
		}
		seen[name] = true
	}
	for _, want := range []string{"create_session", "complete_session", "get_feature_tree", "plan_features", "get_feature_history"} {
		if !seen[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}
