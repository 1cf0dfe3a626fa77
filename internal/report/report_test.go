package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunematch/uiverify/internal/artifact"
	"github.com/tunematch/uiverify/internal/flow"
)

type memWriter map[string][]byte

func (m memWriter) Write(name string, data []byte) error {
	m[name] = data
	return nil
}

func TestRunLifecycle(t *testing.T) {
	r := New("http://localhost:3000", "chromium", true)
	require.NotEmpty(t, r.ID)

	r.Record(flow.StepResult{Name: "navigate", Duration: 1234567 * time.Nanosecond})
	stepErr := &flow.StepError{Index: 1, Step: "wait for profile", Err: flow.ErrTimeout}
	r.Record(flow.StepResult{Name: "wait for profile", Err: stepErr.Err})
	r.Finish(stepErr)

	assert.Equal(t, Failed, r.Outcome)
	assert.Equal(t, "wait for profile", r.FailedStep)
	assert.Equal(t, time.Millisecond, r.Steps[0].Duration)
	assert.Equal(t, "timed out", r.Steps[1].Error)
	assert.False(t, r.Finished.Before(r.Started))
}

func TestFinishPassed(t *testing.T) {
	r := New("http://x", "chromium", false)
	r.Finish(nil)
	assert.Equal(t, Passed, r.Outcome)
	assert.Empty(t, r.Error)
	assert.Empty(t, r.FailedStep)
}

func TestYAMLRoundTripKeepsOutcome(t *testing.T) {
	r := New("http://x", "firefox", true)
	r.Record(flow.StepResult{Name: "navigate", Duration: 2 * time.Second})
	r.Finish(errors.New("boom"))

	data, err := r.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "outcome: failed")
	assert.Contains(t, string(data), "duration: 2s")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, 2*time.Second, back.Steps[0].Duration)
}

func TestHTMLIsSanitized(t *testing.T) {
	r := New("http://x", "chromium", true)
	r.Record(flow.StepResult{Name: "click see demo", Err: errors.New(`<script>alert(1)</script> not found`)})
	r.Artifacts = []string{artifact.LandingPage, artifact.ReportYAML}
	r.Finish(errors.New("failed"))

	out, err := r.HTML()
	require.NoError(t, err)
	html := string(out)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, `src="landing_page.png"`)
	assert.Equal(t, 1, strings.Count(html, "<img"))
}

func TestSaveWritesAllFormats(t *testing.T) {
	r := New("http://x", "chromium", true)
	r.Finish(nil)

	w := memWriter{}
	require.NoError(t, r.Save(w))
	assert.Contains(t, w, artifact.ReportYAML)
	assert.Contains(t, w, artifact.ReportMD)
	assert.Contains(t, w, artifact.ReportHTML)
	assert.Contains(t, string(w[artifact.ReportMD]), "**Outcome:** passed")
}
