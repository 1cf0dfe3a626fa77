package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/tunematch/uiverify/internal/flow"
	"github.com/tunematch/uiverify/internal/target"
)

var _ flow.Driver = (*Session)(nil)

// connection-level failures reported by the engines on navigation.
var unreachableMarkers = []string{
	"ERR_CONNECTION_REFUSED",
	"ERR_CONNECTION_RESET",
	"ERR_NAME_NOT_RESOLVED",
	"ERR_ADDRESS_UNREACHABLE",
	"NS_ERROR_CONNECTION_REFUSED",
	"NS_ERROR_UNKNOWN_HOST",
	"Could not connect to server",
}

// Goto navigates the page. Connection failures surface as
// flow.ErrTargetUnreachable.
func (s *Session) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
	}
	if isUnreachable(err) {
		return fmt.Errorf("navigate to %s: %w: %w", url, flow.ErrTargetUnreachable, err)
	}
	if probeErr := target.Reachable(ctx, url); probeErr != nil {
		return fmt.Errorf("navigate to %s: %w: %w", url, flow.ErrTargetUnreachable, probeErr)
	}
	return fmt.Errorf("navigate to %s: %w", url, classify(err))
}

// Screenshot captures the current page as PNG bytes.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

// ClickRole clicks the element located by ARIA role and accessible name.
func (s *Session) ClickRole(ctx context.Context, role string, name flow.Name) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.byRole(role, name).Click(); err != nil {
		return fmt.Errorf("click %s %q: %w", role, name, classify(err))
	}
	return nil
}

// WaitForSelector blocks until selector is attached and visible.
func (s *Session) WaitForSelector(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, classify(err))
	}
	return nil
}

// RoleState reads checked and disabled state of a role-located control.
func (s *Session) RoleState(ctx context.Context, role string, name flow.Name) (flow.RoleState, error) {
	if err := ctx.Err(); err != nil {
		return flow.RoleState{}, err
	}
	loc := s.byRole(role, name)
	checked, err := loc.IsChecked()
	if err != nil {
		return flow.RoleState{}, fmt.Errorf("read checked of %s %q: %w", role, name, classify(err))
	}
	disabled, err := loc.IsDisabled()
	if err != nil {
		return flow.RoleState{}, fmt.Errorf("read disabled of %s %q: %w", role, name, classify(err))
	}
	return flow.RoleState{Checked: checked, Disabled: disabled}, nil
}

func (s *Session) byRole(role string, name flow.Name) playwright.Locator {
	opts := playwright.PageGetByRoleOptions{}
	if name.Pattern != nil {
		opts.Name = name.Pattern
	} else {
		opts.Name = name.Text
	}
	return s.page.GetByRole(playwright.AriaRole(role), opts)
}

// CaptureFailure grabs a best-effort full-page screenshot after a failed run.
func (s *Session) CaptureFailure(ctx context.Context) ([]byte, error) {
	if s.page == nil || s.page.IsClosed() {
		return nil, errors.New("no open page")
	}
	return s.Screenshot(ctx, true)
}

func isUnreachable(err error) bool {
	msg := err.Error()
	for _, m := range unreachableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", flow.ErrTimeout, err)
	}
	return err
}
