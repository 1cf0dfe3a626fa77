// Package report records what a verification run did and renders it as
// YAML, Markdown and HTML next to the screenshots.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tunematch/uiverify/internal/flow"
)

// Outcome of a run.
type Outcome string

const (
	Passed Outcome = "passed"
	Failed Outcome = "failed"
)

// Step is the report entry for one flow step.
type Step struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// Run describes a single verification run.
type Run struct {
	ID         string    `yaml:"id"`
	BaseURL    string    `yaml:"base_url"`
	Engine     string    `yaml:"engine"`
	Assertions bool      `yaml:"assertions"`
	Started    time.Time `yaml:"started"`
	Finished   time.Time `yaml:"finished"`
	Outcome    Outcome   `yaml:"outcome"`
	FailedStep string    `yaml:"failed_step,omitempty"`
	Error      string    `yaml:"error,omitempty"`
	Steps      []Step    `yaml:"steps"`
	Artifacts  []string  `yaml:"artifacts"`
}

// New starts a run record with a fresh id.
func New(baseURL, engine string, assertions bool) *Run {
	return &Run{
		ID:         uuid.NewString(),
		BaseURL:    baseURL,
		Engine:     engine,
		Assertions: assertions,
		Started:    time.Now().UTC(),
		Steps:      []Step{},
		Artifacts:  []string{},
	}
}

// Record appends a finished flow step.
func (r *Run) Record(res flow.StepResult) {
	s := Step{Name: res.Name, Duration: res.Duration.Round(time.Millisecond)}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	r.Steps = append(r.Steps, s)
}

// Finish stamps the end of the run from its terminal error.
func (r *Run) Finish(err error) {
	r.Finished = time.Now().UTC()
	if err == nil {
		r.Outcome = Passed
		return
	}
	r.Outcome = Failed
	r.Error = err.Error()
	r.FailedStep = flow.FailedStep(err)
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// YAML encodes the run.
func (r *Run) YAML() ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return out, nil
}

// Parse decodes a YAML report.
func Parse(data []byte) (*Run, error) {
	r := &Run{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}
