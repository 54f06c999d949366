// Package config loads the YAML configuration file. The path comes from
// the CONFIG_PATH env var, defaulting to ./config.yml; a missing file falls
// back to defaults. Secrets are read env-first and never required in the
// file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"costwatch/domain/schedule"
)

// Config represents the structure of config.yml.
type Config struct {
	Listen string `yaml:"listen"`
	UIDir  string `yaml:"ui_dir"`

	Project struct {
		Start     string  `yaml:"start"` // YYYY-MM-DD
		BudgetBRL float64 `yaml:"budget_brl"`
	} `yaml:"project"`

	Exchange struct {
		USDBRL  float64 `yaml:"usd_brl"`
		IOFRate float64 `yaml:"iof_rate"`
	} `yaml:"exchange"`

	Anthropic struct {
		APIKey         string `yaml:"api_key,omitempty"`
		BaseURL        string `yaml:"base_url,omitempty"`
		Retries        int    `yaml:"retries"`
		BackoffSeconds int    `yaml:"backoff_seconds"`
		BucketWidth    string `yaml:"bucket_width"`
	} `yaml:"anthropic"`

	Cache struct {
		TTLMinutes      int `yaml:"ttl_minutes"`
		CooldownMinutes int `yaml:"cooldown_minutes"`
	} `yaml:"cache"`

	Auth struct {
		AllowedUsers       []string `yaml:"allowed_users"`
		JWTSecret          string   `yaml:"jwt_secret,omitempty"`
		GitHubClientID     string   `yaml:"github_client_id,omitempty"`
		GitHubClientSecret string   `yaml:"github_client_secret,omitempty"`
		CallbackURL        string   `yaml:"callback_url,omitempty"`
	} `yaml:"auth"`

	FixedCosts []schedule.Item `yaml:"fixed_costs"`
}

// Default returns the built-in configuration, matching the project's
// historical constants.
func Default() Config {
	var c Config
	c.Listen = ":8080"
	c.UIDir = "./ui/dist"
	c.Project.Start = "2025-10-01"
	c.Project.BudgetBRL = 536500
	c.Exchange.USDBRL = 5.80
	c.Exchange.IOFRate = 0.035
	c.Anthropic.Retries = 4
	c.Anthropic.BackoffSeconds = 2
	c.Anthropic.BucketWidth = "1d"
	c.Cache.TTLMinutes = 60
	c.Cache.CooldownMinutes = 15
	c.FixedCosts = []schedule.Item{
		{ID: "claude_max_5x", Label: "Claude Max 5x", MonthlyUSD: 100, Start: "2025-10", End: "2026-01"},
		{ID: "claude_max_20x", Label: "Claude Max 20x", MonthlyUSD: 200, Start: "2026-02"},
		{ID: "lovable_pro", Label: "Lovable Pro", MonthlyUSD: 25, Start: "2025-10"},
		{ID: "vercel_pro", Label: "Vercel Pro", MonthlyUSD: 20, Start: "2025-10"},
		{ID: "apple_developer", Label: "Apple Developer Program", YearlyUSD: 99, Start: "2025-10"},
	}
	return c
}

// Path returns the config file path from CONFIG_PATH, default ./config.yml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config.yml"
}

// Load parses the YAML configuration file at path, layering it over the
// defaults and applying env overrides for secrets.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Info("config.default", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		slog.Info("config.loaded", "path", path)
	}

	c.applyEnv()
	return &c, nil
}

// applyEnv applies env-first secret overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_ADMIN_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("GITHUB_CLIENT_ID"); v != "" {
		c.Auth.GitHubClientID = v
	}
	if v := os.Getenv("GITHUB_CLIENT_SECRET"); v != "" {
		c.Auth.GitHubClientSecret = v
	}
	if v := os.Getenv("ALLOWED_GITHUB_USERS"); v != "" {
		c.Auth.AllowedUsers = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.Auth.AllowedUsers = append(c.Auth.AllowedUsers, u)
			}
		}
	}
}

// ProjectStart parses the configured project start date.
func (c *Config) ProjectStart() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Project.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: project.start %q: %w", c.Project.Start, err)
	}
	return t, nil
}

// CacheTTL returns the report cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// CooldownDuration returns the rate-limit cooldown duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Cache.CooldownMinutes) * time.Minute
}

// Backoff returns the retry backoff base.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Anthropic.BackoffSeconds) * time.Second
}
