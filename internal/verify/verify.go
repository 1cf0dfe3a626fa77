// Package verify wires one verification run: browser session, demo
// settings flow, evidence, report, metrics and publishing.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/tunematch/uiverify/internal/artifact"
	"github.com/tunematch/uiverify/internal/browser"
	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/flow"
	"github.com/tunematch/uiverify/internal/metrics"
	"github.com/tunematch/uiverify/internal/publish"
	"github.com/tunematch/uiverify/internal/report"
	"github.com/tunematch/uiverify/internal/target"
)

// Session is a live page plus the means to release it.
type Session interface {
	flow.Driver
	CaptureFailure(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher starts a Session.
type Launcher func(ctx context.Context, opts browser.Options, log logrus.FieldLogger) (Session, error)

// Browser launches a real playwright session.
func Browser(ctx context.Context, opts browser.Options, log logrus.FieldLogger) (Session, error) {
	s, err := browser.Launch(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Verifier runs the demo settings verification.
type Verifier struct {
	Fs        afero.Fs
	Launch    Launcher
	Log       logrus.FieldLogger
	Banner    func(line string)
	Metrics   *metrics.Metrics
	Publisher publish.Publisher
}

// New returns a Verifier using the OS filesystem and a real browser.
func New(log logrus.FieldLogger) *Verifier {
	return &Verifier{
		Fs:        afero.NewOsFs(),
		Launch:    Browser,
		Log:       log,
		Metrics:   metrics.New(),
		Publisher: publish.Nop{},
	}
}

// BrowserOptions maps configuration onto session options.
func BrowserOptions(c config.BrowserConfig) browser.Options {
	return browser.Options{
		Engine:         c.Engine,
		Headless:       c.Headless,
		SlowMo:         c.SlowMo,
		Channel:        c.Channel,
		ExecutablePath: c.ExecutablePath,
		Install:        c.Install,
		ViewportWidth:  c.Viewport.Width,
		ViewportHeight: c.Viewport.Height,
		Timeout:        c.Timeout,
	}
}

// Run performs one verification and returns its report. The returned error
// is the first failure, if any; the report is filled in either way.
func (v *Verifier) Run(ctx context.Context, cfg *config.Config) (*report.Run, error) {
	baseURL := cfg.Target.BaseURL
	if cfg.Target.Autodetect {
		baseURL = target.Detect(ctx, baseURL, v.Log)
	}

	run := report.New(baseURL, cfg.Browser.Engine, cfg.Assertions.Enabled)
	log := v.Log.WithField("run_id", run.ID)
	log.WithField("base_url", baseURL).Info("verification started")

	store := artifact.NewStore(v.Fs, cfg.Artifacts.Dir)
	if err := store.Prepare(); err != nil {
		return run, v.finish(ctx, cfg, log, store, run, err)
	}

	err := v.drive(ctx, cfg, log, store, run, baseURL)
	return run, v.finish(ctx, cfg, log, store, run, err)
}

func (v *Verifier) drive(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, store *artifact.Store, run *report.Run, baseURL string) (err error) {
	// Steps share one numbering: their position in run.Steps, with launch
	// first and close last.
	observe := func(res flow.StepResult) {
		res.Index = len(run.Steps)
		run.Record(res)
		if v.Metrics != nil {
			v.Metrics.ObserveStep(res)
		}
	}

	start := time.Now()
	sess, err := v.Launch(ctx, BrowserOptions(cfg.Browser), log)
	observe(flow.StepResult{Name: "launch", Duration: time.Since(start), Err: err})
	if err != nil {
		return &flow.StepError{Index: 0, Step: "launch", Err: err}
	}
	defer func() {
		start := time.Now()
		closeErr := sess.Close()
		observe(flow.StepResult{Name: "close", Duration: time.Since(start), Err: closeErr})
		if closeErr != nil && err == nil {
			err = &flow.StepError{Index: len(run.Steps) - 1, Step: "close", Err: closeErr}
		}
	}()

	steps := flow.DemoSettings(flow.Options{
		BaseURL:      baseURL,
		Assert:       cfg.Assertions.Enabled,
		MinDiffRatio: cfg.Assertions.MinDiffRatio,
		Dependents:   cfg.Assertions.Dependents,
	})
	steps = append(steps, flow.Step{Name: "check screenshots", Action: checkScreenshots(store)})

	env := &flow.Env{
		Driver:    sess,
		Artifacts: store,
		Log:       log,
		OnStep:    observe,
	}
	if v.Banner != nil {
		env.Announce = func(screen string) { v.Banner(flow.Banner(screen)) }
	}

	_, err = flow.Run(ctx, env, steps)
	var se *flow.StepError
	if errors.As(err, &se) {
		se.Index += launchSteps
	}
	if err != nil && cfg.Artifacts.FailureScreenshot {
		if data, shotErr := sess.CaptureFailure(ctx); shotErr != nil {
			log.WithError(shotErr).Debug("no failure screenshot")
		} else if writeErr := store.Write(artifact.Failure, data); writeErr != nil {
			log.WithError(writeErr).Warn("failed to store failure screenshot")
		}
	}
	return err
}

// launchSteps is how many steps precede the flow in a run.
const launchSteps = 1

func checkScreenshots(store *artifact.Store) flow.Action {
	return func(_ context.Context, env *flow.Env) error {
		for _, name := range []string{artifact.LandingPage, artifact.Initial, artifact.Verification} {
			cfg, err := store.Check(name)
			if err != nil {
				return fmt.Errorf("%w: %w", flow.ErrAssertion, err)
			}
			env.Log.WithFields(logrus.Fields{
				"artifact": name,
				"width":    cfg.Width,
				"height":   cfg.Height,
			}).Debug("screenshot valid")
		}
		return nil
	}
}

func (v *Verifier) finish(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, store *artifact.Store, run *report.Run, err error) error {
	run.Artifacts = store.Present()
	if cfg.Report.Enabled {
		run.Artifacts = append(run.Artifacts, artifact.ReportYAML, artifact.ReportMD, artifact.ReportHTML)
	}
	run.Finish(err)

	if cfg.Report.Enabled {
		if saveErr := run.Save(store); saveErr != nil {
			log.WithError(saveErr).Error("failed to write report")
			err = errors.Join(err, saveErr)
		}
	}

	if v.Metrics != nil {
		v.Metrics.ObserveRun(err == nil, run.Finished)
		if cfg.Metrics.Textfile != "" {
			if mErr := v.Metrics.WriteTextfile(cfg.Metrics.Textfile); mErr != nil {
				log.WithError(mErr).Warn("failed to write metrics")
			}
		}
	}

	if v.Publisher != nil {
		if pErr := v.Publisher.Publish(ctx, run); pErr != nil {
			log.WithError(pErr).Warn("failed to publish run")
		}
	}

	fields := logrus.Fields{"outcome": run.Outcome, "duration": run.Duration(), "dir": store.Dir()}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("verification failed")
	} else {
		log.WithFields(fields).Info("verification passed")
	}
	return err
}
