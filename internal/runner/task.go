// Package runner repeats verification runs on a cron schedule.
package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a unit of work the runner schedules.
type Task interface {
	Name() string

	// Schedule is a cron expression with a leading seconds field, or a
	// descriptor such as "@every 15m".
	Schedule() string

	Run(ctx context.Context) error

	// Timeout bounds a single Run.
	Timeout() time.Duration
}

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr is a schedule the runner accepts.
func ValidateSchedule(expr string) error {
	if _, err := scheduleParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// TaskRegistry holds the tasks to schedule, keyed by name.
type TaskRegistry struct {
	tasks map[string]Task
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Register adds a task after checking its schedule. A task with the same
// name is replaced.
func (r *TaskRegistry) Register(task Task) error {
	if task.Name() == "" {
		return fmt.Errorf("task has no name")
	}
	if err := ValidateSchedule(task.Schedule()); err != nil {
		return fmt.Errorf("task %s: %w", task.Name(), err)
	}
	r.tasks[task.Name()] = task
	return nil
}

// Get returns a task by name.
func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, ok := r.tasks[name]
	return task, ok
}

// All returns all registered tasks.
func (r *TaskRegistry) All() map[string]Task {
	return r.tasks
}

// Names returns the registered task names in sorted order.
func (r *TaskRegistry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
