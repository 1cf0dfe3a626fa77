package flow

import (
	"regexp"

	"github.com/tunematch/uiverify/internal/artifact"
)

// ARIA roles used by the script.
const (
	RoleButton = "button"
	RoleSwitch = "switch"
)

// Labels and selectors of the app under test.
const (
	DemoButton  = "see demo"
	ProfileTab  = "Profile"
	SettingsBtn = "Settings"
	PushLabel   = "Push Notifications"

	profileSelector  = `button:has-text("Profile")`
	settingsSelector = `button:has-text("Settings")`
	pushSelector     = `div:has-text("Push Notifications")`
)

// Switches that the settings screen disables while push notifications are off.
var dependentSwitches = []string{"Email Notifications", "New Matches", "Messages"}

// Options shape the demo settings script.
type Options struct {
	BaseURL string

	// Assert appends the post-toggle checks. Without it the run only
	// gathers evidence.
	Assert bool

	// MinDiffRatio is the fraction of pixels the two settings screenshots
	// must differ by, exclusive.
	MinDiffRatio float64

	// Dependents overrides the switches expected to follow Push
	// Notifications. Nil means the app's defaults.
	Dependents []string
}

// DemoSettings builds the landing → demo → profile → settings script.
func DemoSettings(opts Options) []Step {
	push := Pattern(PushLabel)
	steps := []Step{
		{Name: "navigate", Action: Navigate(opts.BaseURL)},
		{Name: "screenshot landing page", Action: Screenshot(artifact.LandingPage, true)},
		{Name: "click see demo", Screen: "landing page", Action: Click(RoleButton, Text(DemoButton))},
		{Name: "wait for profile", Screen: "main screen", Action: WaitFor(profileSelector)},
		{Name: "click profile", Action: Click(RoleButton, Text(ProfileTab))},
		{Name: "wait for settings", Screen: "profile screen", Action: WaitFor(settingsSelector)},
		{Name: "click settings", Action: Click(RoleButton, Text(SettingsBtn))},
		{Name: "wait for push notifications", Screen: "settings screen", Action: WaitFor(pushSelector)},
		{Name: "screenshot initial", Action: Screenshot(artifact.Initial, false)},
	}
	if opts.Assert {
		steps = append(steps, Step{Name: "record push switch", Action: RecordToggle(push)})
	}
	steps = append(steps,
		Step{Name: "toggle push notifications", Action: Click(RoleSwitch, push)},
		Step{Name: "screenshot verification", Action: Screenshot(artifact.Verification, false)},
	)
	if !opts.Assert {
		return steps
	}

	deps := opts.Dependents
	if deps == nil {
		deps = dependentSwitches
	}
	names := make([]Name, 0, len(deps))
	for _, d := range deps {
		names = append(names, Pattern(regexp.QuoteMeta(d)))
	}
	return append(steps,
		Step{Name: "assert switch toggled", Action: ExpectToggled(push)},
		Step{Name: "assert screenshots differ", Action: ExpectDifferent(artifact.Initial, artifact.Verification, opts.MinDiffRatio)},
		Step{Name: "assert dependents follow", Action: ExpectDependents(push, names...)},
	)
}
