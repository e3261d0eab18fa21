// Package config loads orchestrator configuration from a TOML file,
// falling back to defaults when the file is absent.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Site    SiteConfig    `toml:"site"`
	Delays  DelayConfig   `toml:"delays"`
	Notify  NotifyConfig  `toml:"notifications"`
	Web     WebConfig     `toml:"web"`
	Sweeps  []SweepConfig `toml:"sweep"`
}

// GeneralConfig holds general settings.
type GeneralConfig struct {
	DatabasePath       string `toml:"database_path"`
	NamesPath          string `toml:"names_path"`
	MaxConcurrent      int    `toml:"max_concurrent_sessions"`
	Headless           bool   `toml:"headless"`
	RequestTimeoutSecs int    `toml:"request_timeout_secs"`
}

// SiteConfig holds the target site endpoints.
type SiteConfig struct {
	BaseURL    string `toml:"base_url"`
	CartURL    string `toml:"cart_url"`
	AccountAPI string `toml:"account_api"`
	UserAgent  string `toml:"user_agent"`
}

// DelayConfig holds base pacing delays in seconds per action category.
type DelayConfig struct {
	PageLoad        float64 `toml:"page_load"`
	Click           float64 `toml:"click"`
	Input           float64 `toml:"input"`
	BetweenProducts float64 `toml:"between_products"`
	BeforeCheckout  float64 `toml:"before_checkout"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds HTTP control surface settings.
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SweepConfig is one cron-scheduled checkpoint sweep.
type SweepConfig struct {
	Name        string `toml:"name"`
	Cron        string `toml:"cron"`
	RangeStart  int    `toml:"range_start"`
	RangeEnd    int    `toml:"range_end"`
	Concurrency int    `toml:"concurrency_limit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath:       filepath.Join(home, ".tira-orch", "orchestrator.db"),
			NamesPath:          filepath.Join(home, ".tira-orch", "names.json"),
			MaxConcurrent:      5,
			Headless:           true,
			RequestTimeoutSecs: 15,
		},
		Site: SiteConfig{
			BaseURL:    "https://www.tirabeauty.com",
			CartURL:    "https://www.tirabeauty.com/cart",
			AccountAPI: "https://www.tirabeauty.com/ext/reward-engine/application/api/v1.0/user/account",
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Delays: DelayConfig{
			PageLoad:        4.0,
			Click:           1.0,
			Input:           0.5,
			BetweenProducts: 1.5,
			BeforeCheckout:  3.0,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8005,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.NamesPath = ExpandPath(cfg.General.NamesPath)

	return cfg, nil
}

// RequestTimeout returns the account-status request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.General.RequestTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.General.RequestTimeoutSecs) * time.Second
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tira-orch", "config.toml")
}
