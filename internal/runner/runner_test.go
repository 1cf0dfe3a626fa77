package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tunematch/uiverify/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingTask struct {
	name     string
	schedule string
	runs     atomic.Int32
	done     chan struct{}
	err      error
}

func (t *countingTask) Name() string           { return t.name }
func (t *countingTask) Schedule() string       { return t.schedule }
func (t *countingTask) Timeout() time.Duration { return time.Second }

func (t *countingTask) Run(ctx context.Context) error {
	if t.runs.Add(1) == 1 {
		close(t.done)
	}
	return t.err
}

func TestRegistry(t *testing.T) {
	r := NewTaskRegistry()
	require.NoError(t, r.Register(&countingTask{name: "b", schedule: "@every 1s"}))
	require.NoError(t, r.Register(&countingTask{name: "a", schedule: "0 */5 * * * *"}))
	require.NoError(t, r.Register(&countingTask{name: "c", schedule: "*/15 * * * *"}))

	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	_, ok := r.Get("a")
	assert.True(t, ok)
	_, ok = r.Get("zzz")
	assert.False(t, ok)

	assert.Error(t, r.Register(&countingTask{name: "bad", schedule: "every now and then"}))
	assert.Error(t, r.Register(&countingTask{schedule: "@hourly"}))
	assert.Len(t, r.All(), 3)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@every 30s"))
	assert.NoError(t, ValidateSchedule("*/10 * * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("61 * * * *"))
}

func TestRunnerExecutesAndStopsOnCancel(t *testing.T) {
	task := &countingTask{name: "tick", schedule: "@every 1s", done: make(chan struct{}), err: errors.New("ignored")}
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(task))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(reg, logging.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(ctx) }()

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("task never ran")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.GreaterOrEqual(t, task.runs.Load(), int32(1))

	r.Stop()
}

func TestRunnerRejectsBadScheduleAtStart(t *testing.T) {
	reg := &TaskRegistry{tasks: map[string]Task{
		"broken": &countingTask{name: "broken", schedule: "nope"},
	}}
	r := NewRunner(reg, logging.Discard())
	err := r.Start(context.Background())
	assert.Error(t, err)
}
