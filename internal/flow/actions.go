package flow

import (
	"context"
	"fmt"
)

// Navigate opens url on the page.
func Navigate(url string) Action {
	return func(ctx context.Context, env *Env) error {
		return env.Driver.Goto(ctx, url)
	}
}

// Screenshot captures the page and stores it under the artifact name.
func Screenshot(name string, fullPage bool) Action {
	return func(ctx context.Context, env *Env) error {
		data, err := env.Driver.Screenshot(ctx, fullPage)
		if err != nil {
			return fmt.Errorf("capture %s: %w", name, err)
		}
		if err := env.Artifacts.Write(name, data); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		env.Log.WithField("artifact", name).Debug("screenshot stored")
		return nil
	}
}

// Click clicks the control with the given role and accessible name.
func Click(role string, name Name) Action {
	return func(ctx context.Context, env *Env) error {
		return env.Driver.ClickRole(ctx, role, name)
	}
}

// WaitFor blocks until selector is present in the document.
func WaitFor(selector string) Action {
	return func(ctx context.Context, env *Env) error {
		return env.Driver.WaitForSelector(ctx, selector)
	}
}

// RecordToggle remembers the switch state before it is clicked.
func RecordToggle(name Name) Action {
	return func(ctx context.Context, env *Env) error {
		st, err := env.Driver.RoleState(ctx, RoleSwitch, name)
		if err != nil {
			return fmt.Errorf("read %s switch: %w", name, err)
		}
		env.toggleBefore = &st
		return nil
	}
}

// ExpectToggled fails unless the switch flipped its checked state.
func ExpectToggled(name Name) Action {
	return func(ctx context.Context, env *Env) error {
		if env.toggleBefore == nil {
			return fmt.Errorf("%w: no state recorded for %s switch", ErrAssertion, name)
		}
		st, err := env.Driver.RoleState(ctx, RoleSwitch, name)
		if err != nil {
			return fmt.Errorf("read %s switch: %w", name, err)
		}
		env.toggleAfter = &st
		if st.Checked == env.toggleBefore.Checked {
			return fmt.Errorf("%w: %s switch still checked=%t after click", ErrAssertion, name, st.Checked)
		}
		return nil
	}
}

// ExpectDifferent fails unless more than minRatio of the pixels of the two
// artifacts differ.
func ExpectDifferent(a, b string, minRatio float64) Action {
	return func(ctx context.Context, env *Env) error {
		ratio, err := env.Artifacts.Diff(a, b)
		if err != nil {
			return fmt.Errorf("compare %s and %s: %w", a, b, err)
		}
		env.Log.WithField("diff_ratio", ratio).Debug("screenshots compared")
		if ratio <= minRatio {
			return fmt.Errorf("%w: %s and %s differ by %.4f, want > %.4f", ErrAssertion, a, b, ratio, minRatio)
		}
		return nil
	}
}

// ExpectDependents checks that each dependent switch is disabled exactly when
// the master switch ended up unchecked.
func ExpectDependents(master Name, dependents ...Name) Action {
	return func(ctx context.Context, env *Env) error {
		after := env.toggleAfter
		if after == nil {
			st, err := env.Driver.RoleState(ctx, RoleSwitch, master)
			if err != nil {
				return fmt.Errorf("read %s switch: %w", master, err)
			}
			after = &st
		}
		want := !after.Checked
		for _, dep := range dependents {
			st, err := env.Driver.RoleState(ctx, RoleSwitch, dep)
			if err != nil {
				return fmt.Errorf("read %s switch: %w", dep, err)
			}
			if st.Disabled != want {
				return fmt.Errorf("%w: %s switch disabled=%t while %s checked=%t",
					ErrAssertion, dep, st.Disabled, master, after.Checked)
			}
		}
		return nil
	}
}
