package main

import (
	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/encoding"
	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/sync"
	"github.com/driftsync-io/driftsync/pkg/sync/deletion"
	"github.com/driftsync-io/driftsync/pkg/versioning"
)

// planSideState is the YAML form of one side of a plan item.
type planSideState struct {
	Exists          bool   `yaml:"exists"`
	Name            string `yaml:"name"`
	Size            uint64 `yaml:"size"`
	ModTime         int64  `yaml:"modTime"`
	FollowedSymlink bool   `yaml:"followedSymlink"`
}

// planItem is the YAML form of one hierarchy item. Items carrying the same
// non-zero move identifier form a move pair.
type planItem struct {
	Kind      string        `yaml:"kind"`
	Operation string        `yaml:"operation"`
	Left      planSideState `yaml:"left"`
	Right     planSideState `yaml:"right"`
	MoveID    int           `yaml:"moveId"`
	Children  []planItem    `yaml:"children"`
}

// planPair is the YAML form of one folder pair with its comparison result
// and configuration.
type planPair struct {
	Left             string     `yaml:"left"`
	Right            string     `yaml:"right"`
	LeftExisting     *bool      `yaml:"leftExisting"`
	RightExisting    *bool      `yaml:"rightExisting"`
	DetectMovedFiles bool       `yaml:"detectMovedFiles"`
	DeletionPolicy   string     `yaml:"deletionPolicy"`
	VersioningStyle  string     `yaml:"versioningStyle"`
	VersioningFolder string     `yaml:"versioningFolder"`
	Items            []planItem `yaml:"items"`
}

// planDocument is the root of a synchronization plan file, the output of an
// external comparison run.
type planDocument struct {
	Pairs []planPair `yaml:"pairs"`
}

// operationNames maps the plan file's operation names to operations.
var operationNames = map[string]sync.Operation{
	"doNothing":           sync.OperationDoNothing,
	"equal":               sync.OperationEqual,
	"conflict":            sync.OperationUnresolvedConflict,
	"createLeft":          sync.OperationCreateNewLeft,
	"createRight":         sync.OperationCreateNewRight,
	"deleteLeft":          sync.OperationDeleteLeft,
	"deleteRight":         sync.OperationDeleteRight,
	"overwriteLeft":       sync.OperationOverwriteLeft,
	"overwriteRight":      sync.OperationOverwriteRight,
	"copyMetadataToLeft":  sync.OperationCopyMetadataToLeft,
	"copyMetadataToRight": sync.OperationCopyMetadataToRight,
	"moveLeftSource":      sync.OperationMoveLeftSource,
	"moveLeftTarget":      sync.OperationMoveLeftTarget,
	"moveRightSource":     sync.OperationMoveRightSource,
	"moveRightTarget":     sync.OperationMoveRightTarget,
}

// kindNames maps the plan file's kind names to item kinds.
var kindNames = map[string]sync.Kind{
	"file":    sync.KindFile,
	"symlink": sync.KindSymlink,
	"dir":     sync.KindDir,
}

// policyNames maps the plan file's deletion policy names to policies.
var policyNames = map[string]deletion.Policy{
	"":           deletion.Permanent,
	"permanent":  deletion.Permanent,
	"recycler":   deletion.Recycler,
	"versioning": deletion.Versioning,
}

// styleNames maps the plan file's versioning style names to styles.
var styleNames = map[string]versioning.Style{
	"":             versioning.StyleReplace,
	"replace":      versioning.StyleReplace,
	"addTimestamp": versioning.StyleAddTimestamp,
}

// loadPlan reads a plan file and converts it into the comparison and
// configuration inputs of the synchronization engine.
func loadPlan(path string) ([]*sync.BaseDirPair, []sync.FolderPairConfig, error) {
	// Load the document.
	document := &planDocument{}
	if err := encoding.LoadAndUnmarshalYAML(path, document); err != nil {
		return nil, nil, errors.Wrap(err, "unable to load plan")
	}

	// Convert each pair.
	var comparison []*sync.BaseDirPair
	var configs []sync.FolderPairConfig
	for p := range document.Pairs {
		pair := &document.Pairs[p]

		// Convert the configuration.
		policy, ok := policyNames[pair.DeletionPolicy]
		if !ok {
			return nil, nil, errors.Errorf("unknown deletion policy %q", pair.DeletionPolicy)
		}
		style, ok := styleNames[pair.VersioningStyle]
		if !ok {
			return nil, nil, errors.Errorf("unknown versioning style %q", pair.VersioningStyle)
		}
		configs = append(configs, sync.FolderPairConfig{
			DetectMovedFiles: pair.DetectMovedFiles,
			DeletionPolicy:   policy,
			VersioningStyle:  style,
			VersioningFolder: pair.VersioningFolder,
		})

		// Convert the hierarchy. Move pairs link up after all items exist.
		hierarchy := sync.NewHierarchy()
		moveSources := make(map[int]int)
		moveTargets := make(map[int]int)
		var convert func(parent int, items []planItem) error
		convert = func(parent int, items []planItem) error {
			for i := range items {
				entry := &items[i]
				kind, ok := kindNames[entry.Kind]
				if !ok {
					return errors.Errorf("unknown item kind %q", entry.Kind)
				}
				operation, ok := operationNames[entry.Operation]
				if !ok {
					return errors.Errorf("unknown operation %q", entry.Operation)
				}
				index := hierarchy.AddItem(parent, sync.Item{
					Kind:  kind,
					Op:    operation,
					Left:  convertSide(entry.Left),
					Right: convertSide(entry.Right),
				})
				if entry.MoveID != 0 {
					switch operation {
					case sync.OperationMoveLeftSource, sync.OperationMoveRightSource:
						moveSources[entry.MoveID] = index
					case sync.OperationMoveLeftTarget, sync.OperationMoveRightTarget:
						moveTargets[entry.MoveID] = index
					}
				}
				if err := convert(index, entry.Children); err != nil {
					return err
				}
			}
			return nil
		}
		if err := convert(-1, pair.Items); err != nil {
			return nil, nil, err
		}
		for id, source := range moveSources {
			target, ok := moveTargets[id]
			if !ok {
				return nil, nil, errors.Errorf("move pair %d has no target", id)
			}
			hierarchy.LinkMovePair(source, target)
		}
		for id := range moveTargets {
			if _, ok := moveSources[id]; !ok {
				return nil, nil, errors.Errorf("move pair %d has no source", id)
			}
		}

		// Determine base directory existence, defaulting to a live probe
		// when the plan does not record it.
		leftExisting := filesystem.DirExists(pair.Left)
		if pair.LeftExisting != nil {
			leftExisting = *pair.LeftExisting
		}
		rightExisting := filesystem.DirExists(pair.Right)
		if pair.RightExisting != nil {
			rightExisting = *pair.RightExisting
		}

		comparison = append(comparison, &sync.BaseDirPair{
			LeftBase:      pair.Left,
			RightBase:     pair.Right,
			LeftExisting:  leftExisting,
			RightExisting: rightExisting,
			Hierarchy:     hierarchy,
		})
	}

	// Success.
	return comparison, configs, nil
}

// convertSide converts a plan side state.
func convertSide(state planSideState) sync.SideState {
	return sync.SideState{
		Exists:          state.Exists,
		Name:            state.Name,
		Size:            state.Size,
		ModTime:         state.ModTime,
		FollowedSymlink: state.FollowedSymlink,
	}
}
