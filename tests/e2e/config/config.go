// Package config resolves the configuration for browser-backed end-to-end
// tests. Tests skip unless UIVERIFY_E2E=1.
package config

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	uiconfig "github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/target"
)

// Enabled reports whether end-to-end tests were asked for.
func Enabled() bool {
	return os.Getenv("UIVERIFY_E2E") == "1"
}

// Get loads the verifier configuration the same way the CLI does
// (UIVERIFY_CONFIG file plus UIVERIFY_* overrides), then points artifacts at
// a per-test directory unless E2E_KEEP_ARTIFACTS is set. HEADLESS=false
// shows the browser and SLOW_MO slows it down, in milliseconds.
func Get(t testing.TB) *uiconfig.Config {
	t.Helper()
	if !Enabled() {
		t.Skip("set UIVERIFY_E2E=1 to run browser end-to-end tests")
	}

	loaded, err := uiconfig.Load(os.Getenv("UIVERIFY_CONFIG"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	c := *loaded

	if os.Getenv("HEADLESS") == "false" {
		c.Browser.Headless = false
	}
	if ms, err := strconv.Atoi(os.Getenv("SLOW_MO")); err == nil && ms > 0 {
		c.Browser.SlowMo = time.Duration(ms) * time.Millisecond
	}
	if os.Getenv("E2E_KEEP_ARTIFACTS") == "" {
		c.Artifacts.Dir = t.TempDir()
	}
	if os.Getenv("E2E_BASEURL_AUTODETECT") != "false" {
		c.Target.Autodetect = true
	}

	t.Logf("[e2e-config] base_url=%s engine=%s headless=%v dir=%s",
		c.Target.BaseURL, c.Browser.Engine, c.Browser.Headless, c.Artifacts.Dir)
	return &c
}

// RequireApp skips the test when the app under test is not serving.
func RequireApp(t testing.TB, c *uiconfig.Config) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	base := c.Target.BaseURL
	if c.Target.Autodetect {
		base = target.Detect(ctx, base, logrus.StandardLogger())
	}
	if err := target.Reachable(ctx, base); err != nil {
		t.Skipf("app not reachable at %s: %v", base, err)
	}
}
