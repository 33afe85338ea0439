package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8090)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("STOCKPIT_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_HoldingsFileEnvOverride(t *testing.T) {
	t.Setenv("STOCKPIT_HOLDINGS_FILE", "/srv/data/holdings.json")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Holdings.File != "/srv/data/holdings.json" {
		t.Errorf("Holdings.File = %q, want %q", cfg.Holdings.File, "/srv/data/holdings.json")
	}
}

func TestConfig_FetchDelayEnvOverride(t *testing.T) {
	t.Setenv("STOCKPIT_FETCH_DELAY", "500ms")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if d := cfg.Tracker.GetFetchDelay(); d != 500*time.Millisecond {
		t.Errorf("GetFetchDelay() = %v after env override, want 500ms", d)
	}
}

func TestConfig_BypassProxyEnvOverride(t *testing.T) {
	t.Setenv("STOCKPIT_PROVIDER_BYPASS_PROXY", "false")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Provider.BypassProxy {
		t.Error("Provider.BypassProxy = true after env override, want false")
	}
}

func TestTrackerConfig_GetFetchDelay_Default(t *testing.T) {
	cfg := &TrackerConfig{}
	if d := cfg.GetFetchDelay(); d != 200*time.Millisecond {
		t.Errorf("GetFetchDelay() = %v, want 200ms", d)
	}
}

func TestTrackerConfig_GetFetchDelay_Configured(t *testing.T) {
	cfg := &TrackerConfig{FetchDelay: "1s"}
	if d := cfg.GetFetchDelay(); d != time.Second {
		t.Errorf("GetFetchDelay() = %v, want 1s", d)
	}
}

func TestTrackerConfig_GetFetchDelay_InvalidFallsBack(t *testing.T) {
	cfg := &TrackerConfig{FetchDelay: "not-a-duration"}
	if d := cfg.GetFetchDelay(); d != 200*time.Millisecond {
		t.Errorf("GetFetchDelay() = %v, want 200ms (fallback for invalid)", d)
	}
}

func TestTrackerConfig_GetRefreshInterval_ZeroDisables(t *testing.T) {
	cfg := &TrackerConfig{RefreshInterval: "0"}
	if d := cfg.GetRefreshInterval(); d != 0 {
		t.Errorf("GetRefreshInterval() = %v, want 0 (disabled)", d)
	}
}

func TestTrackerConfig_GetFetchTimeout_Default(t *testing.T) {
	cfg := &TrackerConfig{}
	if d := cfg.GetFetchTimeout(); d != 10*time.Second {
		t.Errorf("GetFetchTimeout() = %v, want 10s", d)
	}
}

func TestProviderConfig_GetTimeout_InvalidFallsBack(t *testing.T) {
	cfg := &ProviderConfig{Timeout: "soon"}
	if d := cfg.GetTimeout(); d != 10*time.Second {
		t.Errorf("GetTimeout() = %v, want 10s (fallback for invalid)", d)
	}
}

func TestConfig_DefaultWarnMargin(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Tracker.WarnMargin != 0.03 {
		t.Errorf("Tracker.WarnMargin default = %v, want 0.03", cfg.Tracker.WarnMargin)
	}
}

func TestConfig_DefaultLookback(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Provider.LookbackDays != 10 {
		t.Errorf("Provider.LookbackDays default = %d, want 10", cfg.Provider.LookbackDays)
	}
}

func TestLoadConfig_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stockpit.toml")
	content := `
[server]
port = 7001

[holdings]
file = "test-holdings.json"

[tracker]
warn_margin = 0.05
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Holdings.File != "test-holdings.json" {
		t.Errorf("Holdings.File = %q, want %q", cfg.Holdings.File, "test-holdings.json")
	}
	if cfg.Tracker.WarnMargin != 0.05 {
		t.Errorf("Tracker.WarnMargin = %v, want 0.05", cfg.Tracker.WarnMargin)
	}
	// Untouched sections keep defaults
	if cfg.Provider.LookbackDays != 10 {
		t.Errorf("Provider.LookbackDays = %d, want default 10", cfg.Provider.LookbackDays)
	}
}

func TestLoadConfig_MissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error for missing file: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want default 8090", cfg.Server.Port)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	for _, env := range []string{"production", "prod", "PROD ", " Production"} {
		cfg := &Config{Environment: env}
		if !cfg.IsProduction() {
			t.Errorf("IsProduction() = false for %q, want true", env)
		}
	}
	cfg := &Config{Environment: "development"}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for development, want false")
	}
}
