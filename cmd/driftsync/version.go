package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsync-io/driftsync/cmd"
	"github.com/driftsync-io/driftsync/pkg/driftsync"
)

func versionMain(command *cobra.Command, arguments []string) error {
	fmt.Println(driftsync.Version)
	return nil
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   cmd.Mainify(versionMain),
}

var versionConfiguration struct {
	// help indicates the presence of the -h/--help flag.
	help bool
}

func init() {
	flags := versionCommand.Flags()
	flags.BoolVarP(&versionConfiguration.help, "help", "h", false, "Show help information")
}
