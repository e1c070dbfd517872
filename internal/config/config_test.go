package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"REST_PORT", "BROWSER_NAVIGATE_ATTEMPTS", "TRACKED_TEAM_ID", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.RESTPort != "8080" {
		t.Errorf("RESTPort = %q", cfg.RESTPort)
	}
	if cfg.Browser.NavigateAttempts != 3 || cfg.Browser.RetryDelay != 2*time.Second {
		t.Errorf("browser defaults = %+v", cfg.Browser)
	}
	if cfg.TrackedTeamID != 2697 {
		t.Errorf("TrackedTeamID = %d", cfg.TrackedTeamID)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_SETTLE_WAIT", "750ms")
	t.Setenv("BROWSER_NAVIGATE_ATTEMPTS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test,")

	cfg := Load()
	if cfg.Browser.Headless {
		t.Errorf("headless override ignored")
	}
	if cfg.Browser.SettleWait != 750*time.Millisecond {
		t.Errorf("SettleWait = %v", cfg.Browser.SettleWait)
	}
	if cfg.Browser.NavigateAttempts != 3 {
		t.Errorf("invalid int must fall back to default, got %d", cfg.Browser.NavigateAttempts)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PITCHSIDE_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PITCHSIDE_TEST_KEY") })

	LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))
	if got := os.Getenv("PITCHSIDE_TEST_KEY"); got != "from-file" {
		t.Fatalf("PITCHSIDE_TEST_KEY = %q", got)
	}
}
