package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) <-chan *Config {
	t.Helper()
	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	runWatcher(t, w)
	return changes
}

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semfetch.yaml")
	writeFile(t, path, "fetch:\n  user_agent: first/1.0\n")

	changes := startWatcher(t, path)
	writeFile(t, path, "fetch:\n  user_agent: second/1.0\n")

	select {
	case cfg := <-changes:
		if cfg.Fetch.UserAgent != "second/1.0" {
			t.Errorf("expected reloaded user agent, got %s", cfg.Fetch.UserAgent)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semfetch.yaml")
	writeFile(t, path, "fetch:\n  user_agent: first/1.0\n")

	changes := startWatcher(t, path)
	writeFile(t, path, "logging:\n  level: loud\n")

	select {
	case cfg := <-changes:
		t.Fatalf("invalid config should not be applied, got %+v", cfg.Logging)
	case <-time.After(300 * time.Millisecond):
	}

	// A later valid edit still goes through.
	writeFile(t, path, "logging:\n  level: warn\n")
	select {
	case cfg := <-changes:
		if cfg.Logging.Level != "warn" {
			t.Errorf("expected warn, got %s", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semfetch.yaml")
	writeFile(t, path, "fetch:\n  user_agent: first/1.0\n")

	changes := startWatcher(t, path)
	writeFile(t, filepath.Join(dir, "other.yaml"), "logging:\n  level: debug\n")

	select {
	case <-changes:
		t.Fatal("unrelated file should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcher_RequiresCallback(t *testing.T) {
	if _, err := NewWatcher("semfetch.yaml", nil, nil); err == nil {
		t.Error("expected error without callback")
	}
}

// startLayeredWatcher loads a user and a project layer and watches both.
func startLayeredWatcher(t *testing.T, userYAML, projectYAML string) (userPath, projectPath string, initial *Config, changes <-chan *Config) {
	t.Helper()
	home, project := t.TempDir(), t.TempDir()
	userPath = filepath.Join(home, UserConfigDir, UserConfigFile)
	projectPath = filepath.Join(project, ProjectConfigFile)
	writeFile(t, userPath, userYAML)
	writeFile(t, projectPath, projectYAML)

	l := newTestLoader(home, project)
	initial, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ch := make(chan *Config, 4)
	w, err := NewLayeredWatcher(l, func(c *Config) { ch <- c }, nil, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewLayeredWatcher() error = %v", err)
	}
	runWatcher(t, w)
	return userPath, projectPath, initial, ch
}

func TestLayeredWatcher_KeepsLowerLayers(t *testing.T) {
	userPath, projectPath, initial, changes := startLayeredWatcher(t,
		"fetch:\n  blocklisted_domains: [\"evil.example\"]\n",
		"fetch:\n  user_agent: a/1.0\n")
	if len(initial.Fetch.BlocklistedDomains) != 1 {
		t.Fatalf("expected user blocklist after Load, got %v", initial.Fetch.BlocklistedDomains)
	}

	writeFile(t, projectPath, "fetch:\n  user_agent: b/1.0\n")
	select {
	case cfg := <-changes:
		if cfg.Fetch.UserAgent != "b/1.0" {
			t.Errorf("expected project edit to apply, got %s", cfg.Fetch.UserAgent)
		}
		if len(cfg.Fetch.BlocklistedDomains) != 1 || cfg.Fetch.BlocklistedDomains[0] != "evil.example" {
			t.Errorf("user-layer blocklist lost on reload, got %v", cfg.Fetch.BlocklistedDomains)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	// Edits to the lower layer are watched too.
	writeFile(t, userPath, "fetch:\n  blocklisted_domains: [\"evil.example\", \"worse.example\"]\n")
	select {
	case cfg := <-changes:
		if len(cfg.Fetch.BlocklistedDomains) != 2 {
			t.Errorf("expected updated user blocklist, got %v", cfg.Fetch.BlocklistedDomains)
		}
		if cfg.Fetch.UserAgent != "b/1.0" {
			t.Errorf("project layer lost on user edit, got %s", cfg.Fetch.UserAgent)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLayeredWatcher_RejectsBrokenLayer(t *testing.T) {
	_, projectPath, _, changes := startLayeredWatcher(t,
		"fetch:\n  blocklisted_domains: [\"evil.example\"]\n",
		"fetch:\n  user_agent: a/1.0\n")

	writeFile(t, projectPath, "fetch: [broken")
	select {
	case cfg := <-changes:
		t.Fatalf("unreadable layer should not be applied, got user agent %s", cfg.Fetch.UserAgent)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewLayeredWatcher_RequiresSources(t *testing.T) {
	l := newTestLoader(t.TempDir(), t.TempDir())
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLayeredWatcher(l, func(*Config) {}, nil); err == nil {
		t.Error("expected error when no config files were loaded")
	}
}
