package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.General.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.General.MaxConcurrent)
	}
	if !cfg.General.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.Site.BaseURL != "https://www.tirabeauty.com" {
		t.Errorf("Site.BaseURL = %q", cfg.Site.BaseURL)
	}
	if cfg.Delays.PageLoad != 4.0 {
		t.Errorf("Delays.PageLoad = %v, want 4.0", cfg.Delays.PageLoad)
	}
	if cfg.Web.Port != 8005 {
		t.Errorf("Web.Port = %d, want 8005", cfg.Web.Port)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Web.Host = %q, want 127.0.0.1", cfg.Web.Host)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
max_concurrent_sessions = 10
request_timeout_secs = 30

[site]
base_url = "https://staging.example.com"

[delays]
page_load = 1.5

[web]
port = 9000

[[sweep]]
name = "overnight"
cron = "0 3 * * *"
range_start = 1
range_end = 100
concurrency_limit = 8
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", cfg.General.MaxConcurrent)
	}
	if cfg.Site.BaseURL != "https://staging.example.com" {
		t.Errorf("Site.BaseURL = %q, want staging override", cfg.Site.BaseURL)
	}
	// Untouched sections keep their defaults.
	if cfg.Site.CartURL != "https://www.tirabeauty.com/cart" {
		t.Errorf("Site.CartURL = %q, want default", cfg.Site.CartURL)
	}
	if cfg.Delays.PageLoad != 1.5 {
		t.Errorf("Delays.PageLoad = %v, want 1.5", cfg.Delays.PageLoad)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	if len(cfg.Sweeps) != 1 || cfg.Sweeps[0].Name != "overnight" {
		t.Errorf("Sweeps = %+v, want one named overnight", cfg.Sweeps)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if cfg.Web.Port != 8005 {
		t.Errorf("Web.Port = %d, want default 8005", cfg.Web.Port)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid TOML should error")
	}
}

func TestRequestTimeout_Default(t *testing.T) {
	cfg := &Config{}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Errorf("RequestTimeout() = %v, want 15s fallback", cfg.RequestTimeout())
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/data/orch.db", filepath.Join(home, "data", "orch.db")},
		{"/absolute/path.db", "/absolute/path.db"},
		{"relative/path.db", "relative/path.db"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
