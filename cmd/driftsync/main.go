package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsync-io/driftsync/cmd"
	"github.com/driftsync-io/driftsync/pkg/driftsync"
	"github.com/driftsync-io/driftsync/pkg/logging"
)

func rootMain(command *cobra.Command, arguments []string) {
	// Print version information, if requested.
	if rootConfiguration.version {
		fmt.Println(driftsync.Version)
		return
	}

	// If no flags were set, then print help information and bail. We don't
	// have to worry about warning about arguments being present here (which
	// would be incorrect usage) because arguments can't even reach this
	// point (they will be mistaken for subcommands and an error will be
	// displayed).
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "driftsync",
	Short: "DriftSync materializes folder comparison results: it copies, overwrites, moves, and deletes files and folders on both sides of a folder pair.",
	Run:   rootMain,
}

var rootConfiguration struct {
	// help indicates the presence of the -h/--help flag.
	help bool
	// version indicates the presence of the --version flag.
	version bool
	// logLevel stores the value of the --log-level flag.
	logLevel string
}

func init() {
	// Bind flags to configuration. We manually add help to override the
	// default message, but Cobra still implements it automatically.
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVar(&rootConfiguration.version, "version", false, "Show version information")
	rootCommand.PersistentFlags().StringVar(&rootConfiguration.logLevel, "log-level", "info", "Set the log level (disabled, error, warn, info, debug, trace)")

	// Disable Cobra's command sorting behavior. By default, it sorts
	// commands alphabetically in the help output.
	cobra.EnableCommandSorting = false

	// Register commands.
	rootCommand.AddCommand(
		syncCommand,
		monitorCommand,
		versionCommand,
	)
}

func main() {
	// Apply the log level before any command runs.
	cobra.OnInitialize(func() {
		if level, ok := logging.NameToLevel(rootConfiguration.logLevel); ok {
			logging.SetLevel(level)
		}
	})

	// Execute the root command.
	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}
