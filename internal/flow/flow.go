// Package flow runs the ordered browser script for the demo settings path.
//
// A flow is a flat list of steps executed one after another against a single
// page. The first failing step stops the run; nothing is retried.
package flow

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// Name identifies an element by its accessible name. Either an exact text or
// a pattern is set, never both.
type Name struct {
	Text    string
	Pattern *regexp.Regexp
}

// Text returns a Name matched against the literal accessible name.
func Text(s string) Name { return Name{Text: s} }

// Pattern returns a Name matched by a case-insensitive pattern.
func Pattern(expr string) Name {
	return Name{Pattern: regexp.MustCompile("(?i)" + expr)}
}

func (n Name) String() string {
	if n.Pattern != nil {
		return "/" + n.Pattern.String() + "/"
	}
	return n.Text
}

// RoleState is the observable state of a role-located control.
type RoleState struct {
	Checked  bool
	Disabled bool
}

// Driver is the page the flow acts on.
type Driver interface {
	Goto(ctx context.Context, url string) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	ClickRole(ctx context.Context, role string, name Name) error
	WaitForSelector(ctx context.Context, selector string) error
	RoleState(ctx context.Context, role string, name Name) (RoleState, error)
}

// Artifacts persists screenshot evidence under fixed names.
type Artifacts interface {
	Write(name string, data []byte) error
	Diff(a, b string) (float64, error)
}

// Env carries everything a step can touch during a run.
type Env struct {
	Driver    Driver
	Artifacts Artifacts
	Log       logrus.FieldLogger

	// Announce is called with the screen name when a step marks arrival on a
	// new screen. Output is informational only.
	Announce func(screen string)

	// OnStep, when set, receives every finished step.
	OnStep func(StepResult)

	toggleBefore *RoleState
	toggleAfter  *RoleState
}

// Action is the body of a single step.
type Action func(ctx context.Context, env *Env) error

// Step is one entry of the script.
type Step struct {
	Name string
	// Screen is announced before the step runs, when non-empty.
	Screen string
	Action Action
}

// StepResult records how a step went.
type StepResult struct {
	Index    int
	Name     string
	Duration time.Duration
	Err      error
}
