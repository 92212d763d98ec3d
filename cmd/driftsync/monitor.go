package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/driftsync-io/driftsync/cmd"
	"github.com/driftsync-io/driftsync/pkg/filesystem/watching"
	"github.com/driftsync-io/driftsync/pkg/identifier"
	"github.com/driftsync-io/driftsync/pkg/logging"
	"github.com/driftsync-io/driftsync/pkg/monitor"
)

func monitorMain(command *cobra.Command, arguments []string) error {
	// Validate arguments.
	if len(arguments) == 0 {
		return errors.New("at least one directory must be specified")
	}
	if monitorConfiguration.command == "" {
		return errors.New("a command must be specified")
	}

	// Generate the session identifier for log correlation.
	sessionID, err := identifier.New(identifier.PrefixMonitor)
	if err != nil {
		return errors.Wrap(err, "unable to generate session identifier")
	}
	logger := logging.RootLogger.Sublogger("monitor")
	logger.Infof("Starting monitor session %s", sessionID)

	// Terminate cleanly on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Run the monitor loop.
	err = monitor.Run(ctx, arguments, monitor.Config{
		Delay:          monitorConfiguration.delay,
		IgnorePatterns: monitorConfiguration.ignore,
	}, monitor.Callbacks{
		Execute: func(last watching.Change) error {
			logger.Infof("Change detected (%s '%s'), executing command", last.Action, last.Path)
			if err := monitor.ExecuteCommand(
				monitorConfiguration.command, last, monitorConfiguration.envFile, logger,
			); err != nil {
				// A failing command must not stop monitoring.
				logger.Error(err)
			}
			return nil
		},
	}, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var monitorCommand = &cobra.Command{
	Use:   "monitor <directory> [<directory>...]",
	Short: "Watch directories and run a command when their contents settle after a change",
	Run:   cmd.Mainify(monitorMain),
}

var monitorConfiguration struct {
	// help indicates the presence of the -h/--help flag.
	help bool
	// delay stores the value of the --delay flag.
	delay time.Duration
	// command stores the value of the --command flag.
	command string
	// envFile stores the value of the --env-file flag.
	envFile string
	// ignore stores the values of the --ignore flags.
	ignore []string
}

func init() {
	flags := monitorCommand.Flags()
	flags.BoolVarP(&monitorConfiguration.help, "help", "h", false, "Show help information")
	flags.DurationVar(&monitorConfiguration.delay, "delay", 10*time.Second, "Idle time before the command runs")
	flags.StringVarP(&monitorConfiguration.command, "command", "c", "", "Command line to execute")
	flags.StringVar(&monitorConfiguration.envFile, "env-file", "", "Additional environment variables for the command")
	flags.StringArrayVar(&monitorConfiguration.ignore, "ignore", nil, "Glob pattern of paths that do not trigger the command")
}
