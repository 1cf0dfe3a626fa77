package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", c.Target.BaseURL)
	assert.Equal(t, "chromium", c.Browser.Engine)
	assert.True(t, c.Browser.Headless)
	assert.Zero(t, c.Browser.Timeout, "framework default wait budget is kept")
	assert.Equal(t, 1280, c.Browser.Viewport.Width)
	assert.Equal(t, "jules-scratch/verification", c.Artifacts.Dir)
	assert.True(t, c.Artifacts.FailureScreenshot)
	assert.True(t, c.Assertions.Enabled)
	assert.Nil(t, c.Assertions.Dependents)
	assert.Equal(t, "uiverify:runs", c.Publish.Redis.Stream)
	assert.False(t, c.Publish.Redis.Enabled())
	assert.Equal(t, 5*time.Minute, c.Schedule.Timeout)
	assert.Same(t, c, Get())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "uiverify.yaml")
	content := `
target:
  base_url: http://127.0.0.1:5173
browser:
  engine: firefox
  timeout: 10s
assertions:
  dependents: [Messages]
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	c, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5173", c.Target.BaseURL)
	assert.Equal(t, "firefox", c.Browser.Engine)
	assert.Equal(t, 10*time.Second, c.Browser.Timeout)
	assert.Equal(t, []string{"Messages"}, c.Assertions.Dependents)
	assert.True(t, c.Browser.Headless, "unset keys keep their defaults")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("UIVERIFY_TARGET_BASE_URL", "http://app.test:8080")
	t.Setenv("UIVERIFY_BROWSER_HEADLESS", "false")
	t.Setenv("UIVERIFY_ARTIFACTS_DIR", "shots")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://app.test:8080", c.Target.BaseURL)
	assert.False(t, c.Browser.Headless)
	assert.Equal(t, "shots", c.Artifacts.Dir)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/non/existent/uiverify.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to merge config")
	})

	t.Run("invalid YAML", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("target:\n  base_url: [oops\n"), 0o644))
		_, err := Load(configFile)
		assert.Error(t, err)
	})

	t.Run("schema violation", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "bad.yaml")
		content := `
target:
  base_url: localhost:3000
browser:
  engine: netscape
assertions:
  min_diff_ratio: 1.5
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
		_, err := Load(configFile)
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.GreaterOrEqual(t, len(ve.Problems), 3)
	})
}

func TestLoadFromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "full.yaml")
	content := `
target:
  base_url: http://localhost:4000
browser:
  engine: webkit
artifacts:
  dir: out
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

	c, err := LoadFromFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, "webkit", c.Browser.Engine)
	assert.False(t, c.Browser.Headless, "no defaults are applied")

	_, err = LoadFromFile("/non/existent/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGetIsThreadSafe(t *testing.T) {
	mu.Lock()
	cfg = &Config{Target: TargetConfig{BaseURL: "http://concurrent"}}
	mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if got := Get(); got == nil || got.Target.BaseURL != "http://concurrent" {
				errs[idx] = fmt.Errorf("unexpected config: %+v", got)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestWatchReloadKeepsDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "uiverify.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("target:\n  base_url: http://one.test:3000\n"), 0o644))

	_, err := Load(configFile)
	require.NoError(t, err)

	reloaded := make(chan *Config, 10)
	Watch(logrus.New(), func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	require.NoError(t, os.WriteFile(configFile, []byte("target:\n  base_url: http://two.test:3000\n"), 0o644))

	require.Eventually(t, func() bool {
		return Get().Target.BaseURL == "http://two.test:3000"
	}, 5*time.Second, 20*time.Millisecond)

	c := Get()
	assert.Equal(t, "chromium", c.Browser.Engine)
	assert.True(t, c.Browser.Headless)
	assert.True(t, c.Assertions.Enabled)
	assert.True(t, c.Report.Enabled)
	assert.True(t, c.Artifacts.FailureScreenshot)
	assert.Equal(t, "jules-scratch/verification", c.Artifacts.Dir)
	assert.Equal(t, "info", c.Logging.Level)

	select {
	case got := <-reloaded:
		assert.NotNil(t, got)
	case <-time.After(time.Second):
		t.Fatal("onChange was not called")
	}
}
