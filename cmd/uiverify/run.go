package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/logging"
	"github.com/tunematch/uiverify/internal/publish"
	"github.com/tunematch/uiverify/internal/verify"
)

// runFlags override the loaded configuration. Only flags set on the command
// line take effect.
type runFlags struct {
	configFile string
	baseURL    string
	outDir     string
	engine     string
	headed     bool
	noAssert   bool
	timeout    time.Duration
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "config file merged over the built-in defaults")
	fs.StringVar(&f.baseURL, "base-url", "", "app URL (default http://localhost:3000)")
	fs.StringVar(&f.outDir, "out-dir", "", "artifacts directory (default jules-scratch/verification)")
	fs.StringVar(&f.engine, "engine", "", "browser engine: chromium, firefox or webkit")
	fs.BoolVar(&f.headed, "headed", false, "show the browser window")
	fs.BoolVar(&f.noAssert, "no-assert", false, "only collect screenshots, skip the toggle assertions")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-action browser timeout (0 keeps playwright's default)")
}

func (f *runFlags) apply(cmd *cobra.Command, c *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("base-url") {
		c.Target.BaseURL = f.baseURL
	}
	if fs.Changed("out-dir") {
		c.Artifacts.Dir = f.outDir
	}
	if fs.Changed("engine") {
		c.Browser.Engine = f.engine
	}
	if fs.Changed("headed") {
		c.Browser.Headless = !f.headed
	}
	if fs.Changed("no-assert") {
		c.Assertions.Enabled = !f.noAssert
	}
	if fs.Changed("timeout") {
		c.Browser.Timeout = f.timeout
	}
}

// load returns the configuration with flag overrides applied and checked.
// The value stored by config.Load is left untouched.
func (f *runFlags) load(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.Load(f.configFile)
	if err != nil {
		return nil, configError(err)
	}
	c := *loaded
	f.apply(cmd, &c)
	if err := c.Validate(); err != nil {
		return nil, configError(err)
	}
	return &c, nil
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the verification once",
		Example: `  uiverify run
  uiverify run --base-url http://localhost:5173 --headed
  uiverify run --config uiverify.yaml --no-assert`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, flags, stdout, stderr)
		},
	}
	flags.register(cmd)
	return cmd
}

func runOnce(cmd *cobra.Command, flags *runFlags, stdout, stderr io.Writer) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return configError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := newVerifier(cfg, log, stdout)
	defer closePublisher(v, log)

	_, err = v.Run(ctx, cfg)
	return err
}

func newVerifier(cfg *config.Config, log *logrus.Logger, stdout io.Writer) *verify.Verifier {
	v := verify.New(log)
	v.Banner = logging.NewBanner(stdout).Println
	v.Publisher = publish.New(cfg.Publish.Redis)
	return v
}

func closePublisher(v *verify.Verifier, log logrus.FieldLogger) {
	if err := v.Publisher.Close(); err != nil {
		log.WithError(err).Warn("failed to close publisher")
	}
}
