package monitor

import (
	"os"
	"os/exec"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/filesystem/watching"
	"github.com/driftsync-io/driftsync/pkg/logging"
)

const (
	// changePathVariable carries the last observed change's path into the
	// external command's environment.
	changePathVariable = "DRIFTSYNC_CHANGE_PATH"
	// changeActionVariable carries the last observed change's action into
	// the external command's environment.
	changeActionVariable = "DRIFTSYNC_CHANGE_ACTION"
)

// ExecuteCommand runs the specified command line through the platform
// shell, exporting the last observed change through the environment and
// optionally merging additional variables from a dotenv file. Command
// output streams to the logger.
func ExecuteCommand(commandLine string, change watching.Change, envFile string, logger *logging.Logger) error {
	// Assemble the environment.
	env := os.Environ()
	if envFile != "" {
		extra, err := godotenv.Read(envFile)
		if err != nil {
			return errors.Wrap(err, "unable to read environment file")
		}
		for key, value := range extra {
			env = append(env, key+"="+value)
		}
	}
	env = append(env,
		changePathVariable+"="+change.Path,
		changeActionVariable+"="+change.Action.String(),
	)

	// Run the command.
	shell, flag := platformShell()
	command := exec.Command(shell, flag, commandLine)
	command.Env = env
	command.Stdout = logger.Writer()
	command.Stderr = logger.Writer()
	if err := command.Run(); err != nil {
		return errors.Wrap(err, "command failed")
	}

	// Success.
	return nil
}
