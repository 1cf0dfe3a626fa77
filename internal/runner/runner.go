package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner executes registered tasks on their cron schedules. Runs of the
// same task never overlap; a tick that arrives while the previous run is
// still going is skipped.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   logrus.FieldLogger
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRunner creates a new task runner
func NewRunner(registry *TaskRegistry, logger logrus.FieldLogger) *Runner {
	cl := cronLogger{logger.WithField("component", "cron")}
	return &Runner{
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		registry: registry,
		logger:   logger.WithField("component", "runner"),
	}
}

// Start schedules every task and blocks until ctx is done, then stops the
// runner and waits for in-flight tasks.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("starting task runner")

	for name, task := range r.registry.All() {
		task := task
		r.logger.WithFields(logrus.Fields{"task": name, "schedule": task.Schedule()}).Info("registering task")

		_, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Info("task runner started")

	<-ctx.Done()
	r.Stop()
	return ctx.Err()
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	log := r.logger.WithField("task", task.Name())
	log.Info("executing task")

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		log.WithError(err).WithField("duration", duration).Error("task failed")
	} else {
		log.WithField("duration", duration).Info("task completed")
	}
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("stopping task runner")

		// Stop accepting new tasks
		ctx := r.cron.Stop()

		// Wait for running tasks to complete
		<-ctx.Done()
		r.wg.Wait()

		r.logger.Info("task runner stopped")
	})
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kv(keysAndValues)).WithError(err).Error(msg)
}

func kv(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
