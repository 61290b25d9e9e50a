package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"camroll/internal/config"
)

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	t.Setenv("DROPBOX_ACCESS_TOKEN", "test-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

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

	wantState := filepath.Join(tempHome, ".local", "share", "camroll")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Dropbox.AccessToken != "test-token" {
		t.Fatalf("expected token from env, got %q", cfg.Dropbox.AccessToken)
	}
	if cfg.Organize.Root != "/Camera Uploads" {
		t.Fatalf("unexpected organize root: %q", cfg.Organize.Root)
	}
	if cfg.Tracker.PollInterval != 5 {
		t.Fatalf("expected 5 second poll interval, got %d", cfg.Tracker.PollInterval)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval duration: %s", cfg.PollInterval())
	}
	if cfg.Tracker.MaxRounds != 0 || cfg.Tracker.Deadline != 0 {
		t.Fatalf("expected unbounded polling by default, got rounds=%d deadline=%d", cfg.Tracker.MaxRounds, cfg.Tracker.Deadline)
	}
	if cfg.Ledger.Backend != config.LedgerBackendFile {
		t.Fatalf("unexpected ledger backend: %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Path != filepath.Join(wantState, "processed") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Mirror.LocalRoot != filepath.Join(tempHome, "Camera Uploads") {
		t.Fatalf("unexpected mirror root: %q", cfg.Mirror.LocalRoot)
	}
	if len(cfg.Devices.PhoneModels) != 1 || cfg.Devices.PhoneModels[0] != "iPhone 5c" {
		t.Fatalf("unexpected phone models: %v", cfg.Devices.PhoneModels)
	}
}

func TestLoadFallsBackToLegacyAuthToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DROPBOX_ACCESS_TOKEN", "")
	os.Unsetenv("DROPBOX_ACCESS_TOKEN")
	t.Setenv("AUTH_TOKEN", "legacy")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dropbox.AccessToken != "legacy" {
		t.Fatalf("expected legacy token, got %q", cfg.Dropbox.AccessToken)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "camroll.toml")

	type payload struct {
		Dropbox struct {
			AccessToken string `toml:"access_token"`
			APIURL      string `toml:"api_url"`
		} `toml:"dropbox"`
		Organize struct {
			Root string `toml:"root"`
		} `toml:"organize"`
		Devices struct {
			VideoFolder     string   `toml:"video_folder"`
			VideoExtensions []string `toml:"video_extensions"`
		} `toml:"devices"`
		Tracker struct {
			PollInterval int `toml:"poll_interval"`
			MaxRounds    int `toml:"max_rounds"`
		} `toml:"tracker"`
		Ledger struct {
			Backend string `toml:"backend"`
		} `toml:"ledger"`
	}
	custom := payload{}
	custom.Dropbox.AccessToken = "abc123"
	custom.Dropbox.APIURL = "https://example.com/2/"
	custom.Organize.Root = "Photos/Camera Uploads/"
	custom.Devices.VideoFolder = "Videos"
	custom.Devices.VideoExtensions = []string{"MOV", ".mp4", "mov"}
	custom.Tracker.PollInterval = 2
	custom.Tracker.MaxRounds = 40
	custom.Ledger.Backend = "SQLite"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Dropbox.AccessToken != "abc123" {
		t.Fatalf("expected token from file, got %q", cfg.Dropbox.AccessToken)
	}
	if cfg.Dropbox.APIURL != "https://example.com/2" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Dropbox.APIURL)
	}
	if cfg.Organize.Root != "/Photos/Camera Uploads" {
		t.Fatalf("expected normalized root, got %q", cfg.Organize.Root)
	}
	if got := strings.Join(cfg.Devices.VideoExtensions, ","); got != ".mov,.mp4" {
		t.Fatalf("unexpected video extensions: %q", got)
	}
	if cfg.Tracker.MaxRounds != 40 {
		t.Fatalf("expected max rounds 40, got %d", cfg.Tracker.MaxRounds)
	}
	if cfg.Ledger.Backend != config.LedgerBackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Ledger.Backend)
	}
	if !strings.HasSuffix(cfg.Ledger.Path, "processed.db") {
		t.Fatalf("expected sqlite ledger path, got %q", cfg.Ledger.Path)
	}
}

func TestConfigFileTokenWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "camroll.toml")
	if err := os.WriteFile(configPath, []byte("[dropbox]\naccess_token = \"file-token\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DROPBOX_ACCESS_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dropbox.AccessToken != "file-token" {
		t.Fatalf("expected file token, got %q", cfg.Dropbox.AccessToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "DROPBOX_ACCESS_TOKEN") {
		t.Fatalf("sample config missing token hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Dropbox.AccessToken = "token"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing token", func(c *config.Config) { c.Dropbox.AccessToken = "" }},
		{"bad api url", func(c *config.Config) { c.Dropbox.APIURL = "ftp://dropbox" }},
		{"pattern without group", func(c *config.Config) { c.Organize.DatePattern = `^\d{4}` }},
		{"pattern does not compile", func(c *config.Config) { c.Organize.DatePattern = `(` }},
		{"zero poll interval", func(c *config.Config) { c.Tracker.PollInterval = 0 }},
		{"negative max rounds", func(c *config.Config) { c.Tracker.MaxRounds = -1 }},
		{"negative deadline", func(c *config.Config) { c.Tracker.Deadline = -5 }},
		{"unknown ledger backend", func(c *config.Config) { c.Ledger.Backend = "redis" }},
		{"video folder equals other", func(c *config.Config) { c.Devices.VideoFolder = "other" }},
		{"nested other folder", func(c *config.Config) { c.Devices.OtherFolder = "a/b" }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected defaults with token to validate, got %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNormalizeRemotePath(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"/":                  "",
		"Camera Uploads":     "/Camera Uploads",
		"/Camera Uploads/":   "/Camera Uploads",
		"//a//b/../c":        "/a/c",
		"  /Camera Uploads ": "/Camera Uploads",
	}
	for input, want := range cases {
		if got := config.NormalizeRemotePath(input); got != want {
			t.Errorf("NormalizeRemotePath(%q) = %q, want %q", input, got, want)
		}
	}
}
