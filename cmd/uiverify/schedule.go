package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunematch/uiverify/internal/config"
	"github.com/tunematch/uiverify/internal/logging"
	"github.com/tunematch/uiverify/internal/runner"
	"github.com/tunematch/uiverify/internal/runner/tasks"
)

func newScheduleCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &runFlags{}
	var expr string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Repeat the verification on a cron schedule until interrupted",
		Long: `schedule keeps running the verification on a cron schedule. Expressions
take an optional leading seconds field; descriptors such as "@every 15m" and
"@hourly" work too. A run still in progress when the next tick arrives is
not overlapped. Edits to the config file apply from the next run.`,
		Example: `  uiverify schedule --cron "@every 15m"
  uiverify schedule --cron "0 */30 * * * *" --config uiverify.yaml`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cron") {
				cfg.Schedule.Cron = expr
			}
			if cfg.Schedule.Cron == "" {
				return configError(errors.New("no schedule: pass --cron or set schedule.cron"))
			}

			log, err := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return configError(err)
			}

			v := newVerifier(cfg, log, stdout)
			defer closePublisher(v, log)

			current := func() *config.Config {
				c := *config.Get()
				flags.apply(cmd, &c)
				return &c
			}
			task := tasks.NewVerificationTask(v, current, cfg.Schedule.Cron, cfg.Schedule.Timeout)

			reg := runner.NewTaskRegistry()
			if err := reg.Register(task); err != nil {
				return configError(err)
			}

			config.Watch(log, func(c *config.Config) {
				if lvl, err := logrus.ParseLevel(c.Logging.Level); err == nil {
					log.SetLevel(lvl)
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = runner.NewRunner(reg, log).Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&expr, "cron", "", `cron expression or descriptor, e.g. "@every 15m"`)
	return cmd
}
