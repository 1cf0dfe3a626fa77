// Command uiverify walks the TuneMatch demo from the landing page to the
// Push Notifications switch, toggles it and keeps screenshots as evidence.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tunematch/uiverify/internal/browser"
	"github.com/tunematch/uiverify/internal/version"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2 // bad configuration or invocation
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &runFlags{}
	root := &cobra.Command{
		Use:   "uiverify",
		Short: "Verify the demo settings screen of the TuneMatch web app",
		Long: `uiverify drives a browser through the TuneMatch demo:
landing page, "see demo", Profile, Settings, and toggles the
Push Notifications switch. Screenshots of each stage are written to the
artifacts directory together with a run report.

Without a subcommand it performs a single run, same as "uiverify run".`,
		Version:       version.Get().String(),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, flags, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return configError(err)
	})
	flags.register(root)

	root.AddCommand(
		newRunCmd(stdout, stderr),
		newScheduleCmd(stdout, stderr),
		newInstallCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

func newInstallCmd(stdout io.Writer) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download the playwright driver and a browser",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := browser.Install(engine); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "installed playwright driver and %s\n", engine)
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "chromium", "browser to install (chromium, firefox or webkit)")
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "uiverify %s\n", version.Get())
		},
	}
}

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return configError(fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
	}
	return nil
}
