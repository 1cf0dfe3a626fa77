package flow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// Banner is the console line printed when a screen is reached.
func Banner(screen string) string {
	return "On " + titler.String(screen)
}

// Run executes steps in order and stops at the first failure, which is
// returned as a *StepError. Results for every attempted step are returned.
func Run(ctx context.Context, env *Env, steps []Step) ([]StepResult, error) {
	if env.Log == nil {
		env.Log = logrus.StandardLogger()
	}
	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, &StepError{Index: i, Step: step.Name, Err: err}
		}
		if step.Screen != "" && env.Announce != nil {
			env.Announce(step.Screen)
		}

		log := env.Log.WithField("step", step.Name)
		start := time.Now()
		err := step.Action(ctx, env)
		res := StepResult{Index: i, Name: step.Name, Duration: time.Since(start), Err: err}
		results = append(results, res)
		if env.OnStep != nil {
			env.OnStep(res)
		}

		if err != nil {
			log.WithError(err).WithField("duration", res.Duration).Error("step failed")
			return results, &StepError{Index: i, Step: step.Name, Err: err}
		}
		log.WithField("duration", res.Duration).Info("step done")
	}
	return results, nil
}
