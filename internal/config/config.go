package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

//go:embed default.yaml
var defaultYAML []byte

// EnvPrefix prefixes every environment override, e.g.
// UIVERIFY_TARGET_BASE_URL.
const EnvPrefix = "UIVERIFY"

var (
	cfg   *Config
	vip   *viper.Viper
	mu    sync.RWMutex
	watch sync.Once
)

// Config represents the verifier configuration
type Config struct {
	Target     TargetConfig     `mapstructure:"target" json:"target"`
	Browser    BrowserConfig    `mapstructure:"browser" json:"browser"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts" json:"artifacts"`
	Assertions AssertionsConfig `mapstructure:"assertions" json:"assertions"`
	Report     ReportConfig     `mapstructure:"report" json:"report"`
	Logging    LoggingConfig    `mapstructure:"logging" json:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" json:"metrics"`
	Publish    PublishConfig    `mapstructure:"publish" json:"publish"`
	Schedule   ScheduleConfig   `mapstructure:"schedule" json:"schedule"`
}

type TargetConfig struct {
	BaseURL    string `mapstructure:"base_url" json:"base_url"`
	Autodetect bool   `mapstructure:"autodetect" json:"autodetect"`
}

type BrowserConfig struct {
	Engine         string         `mapstructure:"engine" json:"engine"`
	Headless       bool           `mapstructure:"headless" json:"headless"`
	SlowMo         time.Duration  `mapstructure:"slow_mo" json:"slow_mo"`
	Channel        string         `mapstructure:"channel" json:"channel"`
	ExecutablePath string         `mapstructure:"executable_path" json:"executable_path"`
	Install        bool           `mapstructure:"install" json:"install"`
	Timeout        time.Duration  `mapstructure:"timeout" json:"timeout"`
	Viewport       ViewportConfig `mapstructure:"viewport" json:"viewport"`
}

type ViewportConfig struct {
	Width  int `mapstructure:"width" json:"width"`
	Height int `mapstructure:"height" json:"height"`
}

type ArtifactsConfig struct {
	Dir               string `mapstructure:"dir" json:"dir"`
	FailureScreenshot bool   `mapstructure:"failure_screenshot" json:"failure_screenshot"`
}

type AssertionsConfig struct {
	Enabled      bool     `mapstructure:"enabled" json:"enabled"`
	MinDiffRatio float64  `mapstructure:"min_diff_ratio" json:"min_diff_ratio"`
	Dependents   []string `mapstructure:"dependents" json:"dependents,omitempty"`
}

type ReportConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" json:"textfile"`
}

type PublishConfig struct {
	Redis RedisConfig `mapstructure:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	Stream   string `mapstructure:"stream" json:"stream"`
	MaxLen   int64  `mapstructure:"max_len" json:"max_len"`
}

type ScheduleConfig struct {
	Cron    string        `mapstructure:"cron" json:"cron"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Enabled reports whether a Redis sink is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads the embedded defaults, merges configFile on top when it is
// non-empty, applies UIVERIFY_* environment overrides and validates the
// result. The loaded config becomes the one returned by Get.
func Load(configFile string) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}
	c, err := decode(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cfg = c
	vip = v
	mu.Unlock()
	return c, nil
}

// LoadFromFile loads configuration from a specific file, ignoring defaults
// and the environment (useful for testing)
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch reloads the config file loaded by Load whenever it changes and
// calls onChange with the new value. Invalid edits are logged and ignored.
// Without a config file there is nothing to watch.
func Watch(log logrus.FieldLogger, onChange func(*Config)) {
	mu.RLock()
	v := vip
	mu.RUnlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	watch.Do(func() {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.WithField("file", e.Name).Info("config file changed")

			// v only holds the file after viper's re-read; rebuild so the
			// defaults and env overrides apply again.
			fresh, err := newViper(v.ConfigFileUsed())
			if err != nil {
				log.WithError(err).Error("failed to reload config")
				return
			}
			newCfg, err := decode(fresh)
			if err != nil {
				log.WithError(err).Error("failed to reload config")
				return
			}

			// Atomic swap
			mu.Lock()
			cfg = newCfg
			mu.Unlock()
			log.Info("configuration reloaded")
			if onChange != nil {
				onChange(newCfg)
			}
		})
		v.WatchConfig()
	})
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge config %s: %w", configFile, err)
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// IsValidation reports whether err came from config validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
