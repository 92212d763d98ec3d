package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/driftsync-io/driftsync/cmd"
	"github.com/driftsync-io/driftsync/pkg/database"
	"github.com/driftsync-io/driftsync/pkg/identifier"
	"github.com/driftsync-io/driftsync/pkg/logging"
	"github.com/driftsync-io/driftsync/pkg/sync"
)

func syncMain(command *cobra.Command, arguments []string) error {
	// Validate arguments.
	if len(arguments) != 1 {
		return errors.New("exactly one plan file must be specified")
	}

	// Load the plan produced by an external comparison run.
	comparison, configs, err := loadPlan(arguments[0])
	if err != nil {
		return err
	}

	// Generate the run identifier stamped into logs and saved state.
	runID, err := identifier.New(identifier.PrefixSynchronization)
	if err != nil {
		return errors.Wrap(err, "unable to generate run identifier")
	}
	logger := logging.RootLogger.Sublogger("sync")
	logger.Infof("Starting synchronization run %s", runID)

	// Assemble options. The saved state records, for every leaf both sides
	// agree on, the metadata the next comparison should treat as
	// synchronized.
	options := sync.Options{
		VerifyCopiedFiles:         syncConfiguration.verify,
		CopyLockedFiles:           syncConfiguration.copyLocked,
		CopyFilePermissions:       syncConfiguration.copyPermissions,
		TransactionalFileCopy:     !syncConfiguration.noTransactionalCopy,
		RunWithBackgroundPriority: syncConfiguration.backgroundPriority,
	}
	if !syncConfiguration.noSaveState {
		options.SaveState = func(pair *sync.BaseDirPair) error {
			return saveState(pair, runID)
		}
	}

	// Run the synchronization.
	callback := &consoleCallback{}
	warnings := &sync.OptionalWarnings{}
	started := time.Now()
	sync.Synchronize(comparison, configs, options, warnings, callback, logger)

	// Summarize.
	fmt.Printf("Completed in %s with %d error(s)\n", time.Since(started).Round(time.Millisecond), callback.errorCount)
	if callback.errorCount > 0 {
		return errors.New("synchronization completed with errors")
	}
	return nil
}

// saveState persists a folder pair's synchronized leaves to the database
// files under both base directories.
func saveState(pair *sync.BaseDirPair, runID string) error {
	state := database.NewPairState()
	state.RunID = runID
	state.SavedAt = time.Now().Unix()
	pair.Hierarchy.Walk(func(index int) error {
		item := pair.Hierarchy.Item(index)
		if item.Kind != sync.KindFile || item.Op != sync.OperationEqual {
			return nil
		}
		state.Entries[pair.Hierarchy.RelativePath(index, sync.SideLeft)] = database.EntryState{
			Size:    item.Left.Size,
			ModTime: item.Left.ModTime,
			LeftID:  database.ConvertFileID(item.Left.FileID),
			RightID: database.ConvertFileID(item.Right.FileID),
		}
		return nil
	})
	if err := database.Save(database.PathForBase(pair.LeftBase), state); err != nil {
		return err
	}
	return database.Save(database.PathForBase(pair.RightBase), state)
}

var syncCommand = &cobra.Command{
	Use:   "sync <plan>",
	Short: "Execute a synchronization plan against the file system",
	Run:   cmd.Mainify(syncMain),
}

var syncConfiguration struct {
	// help indicates the presence of the -h/--help flag.
	help bool
	// verify indicates the presence of the --verify flag.
	verify bool
	// copyLocked indicates the presence of the --copy-locked flag.
	copyLocked bool
	// copyPermissions indicates the presence of the --copy-permissions
	// flag.
	copyPermissions bool
	// noTransactionalCopy indicates the presence of the
	// --no-transactional-copy flag.
	noTransactionalCopy bool
	// backgroundPriority indicates the presence of the
	// --background-priority flag.
	backgroundPriority bool
	// noSaveState indicates the presence of the --no-save-state flag.
	noSaveState bool
}

func init() {
	flags := syncCommand.Flags()
	flags.BoolVarP(&syncConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVar(&syncConfiguration.verify, "verify", false, "Re-read and compare every copied file")
	flags.BoolVar(&syncConfiguration.copyLocked, "copy-locked", false, "Attempt to copy files locked by other processes")
	flags.BoolVar(&syncConfiguration.copyPermissions, "copy-permissions", false, "Copy ownership and access control information")
	flags.BoolVar(&syncConfiguration.noTransactionalCopy, "no-transactional-copy", false, "Write copies directly to their final names")
	flags.BoolVar(&syncConfiguration.backgroundPriority, "background-priority", false, "Run with lowered process priority")
	flags.BoolVar(&syncConfiguration.noSaveState, "no-save-state", false, "Do not persist synchronization state databases")
}
