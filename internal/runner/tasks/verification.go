// Package tasks holds the scheduled tasks uiverify knows how to run.
package tasks

import (
	"context"
	"time"

	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/report"
)

// VerificationTaskName is the registry key of the demo settings run.
const VerificationTaskName = "demo-settings-verification"

// Verifier performs one run against a configuration.
type Verifier interface {
	Run(ctx context.Context, cfg *config.Config) (*report.Run, error)
}

// VerificationTask repeats the demo settings verification. It reads the
// configuration afresh on every run so reloaded files take effect.
type VerificationTask struct {
	verifier Verifier
	current  func() *config.Config
	schedule string
	timeout  time.Duration
}

// NewVerificationTask builds the task. current supplies the configuration
// for each run.
func NewVerificationTask(v Verifier, current func() *config.Config, schedule string, timeout time.Duration) *VerificationTask {
	return &VerificationTask{
		verifier: v,
		current:  current,
		schedule: schedule,
		timeout:  timeout,
	}
}

func (t *VerificationTask) Name() string { return VerificationTaskName }

func (t *VerificationTask) Schedule() string { return t.schedule }

func (t *VerificationTask) Timeout() time.Duration {
	if t.timeout <= 0 {
		return 5 * time.Minute
	}
	return t.timeout
}

func (t *VerificationTask) Run(ctx context.Context) error {
	_, err := t.verifier.Run(ctx, t.current())
	return err
}
