package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
listen: ":9090"
project:
  start: "2025-11-01"
  budget_brl: 100000
exchange:
  usd_brl: 5.00
  iof_rate: 0.04
anthropic:
  retries: 2
  backoff_seconds: 1
  bucket_width: "1mo"
cache:
  ttl_minutes: 5
  cooldown_minutes: 3
auth:
  allowed_users: ["alice", "bob"]
fixed_costs:
  - id: plan
    label: Some Plan
    monthly_usd: 10
    start: "2025-11"
  - id: invoice
    label: One-off invoice
    month: "2025-12"
    brl: 81.84
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Exchange.USDBRL != 5.00 || cfg.Exchange.IOFRate != 0.04 {
		t.Errorf("Exchange = %+v", cfg.Exchange)
	}
	if cfg.Anthropic.Retries != 2 || cfg.Anthropic.BucketWidth != "1mo" {
		t.Errorf("Anthropic = %+v", cfg.Anthropic)
	}
	if len(cfg.FixedCosts) != 2 {
		t.Fatalf("FixedCosts = %+v", cfg.FixedCosts)
	}
	if cfg.FixedCosts[1].AmountBRL != 81.84 || cfg.FixedCosts[1].Month != "2025-12" {
		t.Errorf("explicit entry = %+v", cfg.FixedCosts[1])
	}

	start, err := cfg.ProjectStart()
	if err != nil {
		t.Fatalf("ProjectStart: %v", err)
	}
	if start.Format("2006-01-02") != "2025-11-01" {
		t.Errorf("ProjectStart = %v", start)
	}
	if cfg.CacheTTL().Minutes() != 5 || cfg.CooldownDuration().Minutes() != 3 {
		t.Errorf("durations: ttl=%v cooldown=%v", cfg.CacheTTL(), cfg.CooldownDuration())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
	if cfg.Project.BudgetBRL != 536500 {
		t.Errorf("BudgetBRL = %v, want default", cfg.Project.BudgetBRL)
	}
	if len(cfg.FixedCosts) == 0 {
		t.Error("default fixed costs missing")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_ADMIN_API_KEY", "sk-ant-admin-env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ALLOWED_GITHUB_USERS", " alice , bob,")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-admin-env" {
		t.Errorf("APIKey = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if len(cfg.Auth.AllowedUsers) != 2 || cfg.Auth.AllowedUsers[0] != "alice" || cfg.Auth.AllowedUsers[1] != "bob" {
		t.Errorf("AllowedUsers = %v", cfg.Auth.AllowedUsers)
	}
}
