package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
	"github.com/driftsync-io/driftsync/pkg/sync/deletion"
	"github.com/driftsync-io/driftsync/pkg/versioning"
)

// testCallback is a ProcessCallback that records reports and skips failing
// items after a single retry.
type testCallback struct {
	statuses    []string
	infos       []string
	warnings    []string
	errors      []string
	fatals      []string
	totalItems  int64
	totalBytes  int64
	doneItems   int64
	doneBytes   int64
	abortErrors bool
}

func (c *testCallback) SetPhase(phase Phase) error { return nil }

func (c *testCallback) UpdateTotalData(itemsDelta, bytesDelta int64) error {
	c.totalItems += itemsDelta
	c.totalBytes += bytesDelta
	return nil
}

func (c *testCallback) UpdateProcessedData(itemsDelta, bytesDelta int64) error {
	c.doneItems += itemsDelta
	c.doneBytes += bytesDelta
	return nil
}

func (c *testCallback) ReportStatus(text string) error {
	c.statuses = append(c.statuses, text)
	return nil
}

func (c *testCallback) ReportInfo(text string) error {
	c.infos = append(c.infos, text)
	return nil
}

func (c *testCallback) ReportWarning(text string, suppress *bool) error {
	c.warnings = append(c.warnings, text)
	return nil
}

func (c *testCallback) ReportError(text string, retryCount int) (ErrorResponse, error) {
	c.errors = append(c.errors, text)
	if c.abortErrors {
		return ErrorIgnore, fserror.ErrAborted
	}
	if retryCount == 0 {
		return ErrorRetry, nil
	}
	return ErrorIgnore, nil
}

func (c *testCallback) ReportFatalError(text string) error {
	c.fatals = append(c.fatals, text)
	return nil
}

func (c *testCallback) RequestUIRefresh() error { return nil }

func (c *testCallback) ForceUIRefresh() error { return nil }

// writeFileWithTime creates a file with the specified content and
// modification time.
func writeFileWithTime(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal("unable to set file time:", err)
	}
}

// fileItem assembles a file item with the specified per-side state.
func fileItem(op Operation, name string, leftExists, rightExists bool, size uint64, modTime int64) Item {
	item := Item{Kind: KindFile, Op: op}
	if leftExists {
		item.Left = SideState{Exists: true, Name: name, Size: size, ModTime: modTime}
	}
	if rightExists {
		item.Right = SideState{Exists: true, Name: name, Size: size, ModTime: modTime}
	}
	return item
}

// newTestPair assembles a folder pair over two temporary directories.
func newTestPair(t *testing.T) *BaseDirPair {
	t.Helper()
	return &BaseDirPair{
		LeftBase:      t.TempDir(),
		RightBase:     t.TempDir(),
		LeftExisting:  true,
		RightExisting: true,
		Hierarchy:     NewHierarchy(),
	}
}

// TestSynchronizeCreate tests file creation on the empty side.
func TestSynchronizeCreate(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "payload", modTime)
	index := pair.Hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "a.txt", true, false, 7, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{TransactionalFileCopy: true},
		&OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}
	targetPath := filepath.Join(pair.RightBase, "a.txt")
	if content, err := os.ReadFile(targetPath); err != nil {
		t.Fatal("unable to read created file:", err)
	} else if string(content) != "payload" {
		t.Error("unexpected created content:", string(content))
	}
	if info, err := os.Stat(targetPath); err != nil {
		t.Fatal("unable to stat created file:", err)
	} else if !info.ModTime().Truncate(time.Second).Equal(modTime) {
		t.Error("unexpected created modification time:", info.ModTime())
	}

	// The pair records as synchronized.
	if item := pair.Hierarchy.Item(index); item.Op != OperationEqual {
		t.Error("item not recorded as equal:", item.Op)
	} else if !item.Right.Exists || item.Right.Size != 7 {
		t.Error("right side state not updated")
	}
	if callback.doneItems != 1 || callback.doneBytes != 7 {
		t.Error("unexpected progress:", callback.doneItems, callback.doneBytes)
	}
}

// TestSynchronizeDelete tests file deletion and hierarchy pruning.
func TestSynchronizeDelete(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Now().Truncate(time.Second)
	path := filepath.Join(pair.RightBase, "stale.txt")
	writeFileWithTime(t, path, "stale", modTime)
	index := pair.Hierarchy.AddItem(-1, fileItem(OperationDeleteRight, "stale.txt", false, true, 5, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}
	if filesystem.AnythingExists(path) {
		t.Error("file still exists after deletion")
	}
	if !pair.Hierarchy.Removed(index) {
		t.Error("deleted pair not pruned")
	}
}

// TestSynchronizeOverwriteWithVersioning tests an overwrite whose old
// target revisions into a timestamped archive.
func TestSynchronizeOverwriteWithVersioning(t *testing.T) {
	pair := newTestPair(t)
	archive := t.TempDir()
	oldTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newTime := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "old", oldTime)
	writeFileWithTime(t, filepath.Join(pair.RightBase, "a.txt"), "new", newTime)

	item := Item{
		Kind:  KindFile,
		Op:    OperationOverwriteRight,
		Left:  SideState{Exists: true, Name: "a.txt", Size: 3, ModTime: oldTime.Unix()},
		Right: SideState{Exists: true, Name: "a.txt", Size: 3, ModTime: newTime.Unix()},
	}
	index := pair.Hierarchy.AddItem(-1, item)

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{
			DeletionPolicy:   deletion.Versioning,
			VersioningStyle:  versioning.StyleAddTimestamp,
			VersioningFolder: archive,
		}},
		Options{TransactionalFileCopy: true},
		&OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}

	// The left side is untouched and the right side carries the left
	// content at the left time.
	if content, err := os.ReadFile(filepath.Join(pair.LeftBase, "a.txt")); err != nil || string(content) != "old" {
		t.Error("left side disturbed:", string(content), err)
	}
	rightPath := filepath.Join(pair.RightBase, "a.txt")
	if content, err := os.ReadFile(rightPath); err != nil || string(content) != "old" {
		t.Error("right side not overwritten:", string(content), err)
	}
	if info, err := os.Stat(rightPath); err != nil {
		t.Fatal("unable to stat right side:", err)
	} else if !info.ModTime().Truncate(time.Second).Equal(oldTime) {
		t.Error("unexpected right side time:", info.ModTime())
	}

	// The old content lives in the archive under a timestamped name with
	// its original modification time.
	entries, err := os.ReadDir(archive)
	if err != nil {
		t.Fatal("unable to enumerate archive:", err)
	}
	if len(entries) != 1 {
		t.Fatal("unexpected archive entry count:", len(entries))
	}
	name := entries[0].Name()
	if !versioning.IsMatchingVersion("a.txt", name) {
		t.Error("archive entry name does not match the revision grammar:", name)
	}
	if content, err := os.ReadFile(filepath.Join(archive, name)); err != nil || string(content) != "new" {
		t.Error("unexpected archived content:", string(content), err)
	}
	if info, err := os.Stat(filepath.Join(archive, name)); err != nil {
		t.Fatal("unable to stat archive entry:", err)
	} else if !info.ModTime().Truncate(time.Second).Equal(newTime) {
		t.Error("unexpected archived time:", info.ModTime())
	}

	if item := pair.Hierarchy.Item(index); item.Op != OperationEqual {
		t.Error("item not recorded as equal:", item.Op)
	}
}

// TestSynchronizeMoveWithSourceDirDeletion tests the 2-step move: the
// source's parent is scheduled for deletion, so the file escapes through a
// scratch name at the base directory before the parent disappears and lands
// at its final location in the creation pass.
func TestSynchronizeMoveWithSourceDirDeletion(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Now().Truncate(time.Second)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "dir", "old.dat"), "moved", modTime)

	hierarchy := pair.Hierarchy
	dirIndex := hierarchy.AddItem(-1, Item{
		Kind: KindDir,
		Op:   OperationDeleteLeft,
		Left: SideState{Exists: true, Name: "dir"},
	})
	sourceIndex := hierarchy.AddItem(dirIndex, fileItem(OperationMoveLeftSource, "old.dat", true, false, 5, modTime.Unix()))
	dir2Index := hierarchy.AddItem(-1, Item{
		Kind:  KindDir,
		Op:    OperationCreateNewLeft,
		Right: SideState{Exists: true, Name: "dir2"},
	})
	writeFileWithTime(t, filepath.Join(pair.RightBase, "dir2", "new.dat"), "moved", modTime)
	targetIndex := hierarchy.AddItem(dir2Index, Item{
		Kind:  KindFile,
		Op:    OperationMoveLeftTarget,
		Right: SideState{Exists: true, Name: "new.dat", Size: 5, ModTime: modTime.Unix()},
	})
	hierarchy.LinkMovePair(sourceIndex, targetIndex)

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DetectMovedFiles: true, DeletionPolicy: deletion.Permanent}},
		Options{TransactionalFileCopy: true},
		&OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}

	// The old directory is gone, the file landed at its new location, and
	// no scratch entries survive.
	if filesystem.AnythingExists(filepath.Join(pair.LeftBase, "dir")) {
		t.Error("old directory still exists")
	}
	if content, err := os.ReadFile(filepath.Join(pair.LeftBase, "dir2", "new.dat")); err != nil {
		t.Fatal("moved file missing:", err)
	} else if string(content) != "moved" {
		t.Error("unexpected moved content:", string(content))
	}
	entries, err := os.ReadDir(pair.LeftBase)
	if err != nil {
		t.Fatal("unable to enumerate base:", err)
	}
	for _, entry := range entries {
		if filesystem.IsTemporaryName(entry.Name()) {
			t.Error("scratch entry left behind:", entry.Name())
		}
	}

	// The move target records as synchronized.
	if item := hierarchy.Item(targetIndex); item.Op != OperationEqual {
		t.Error("move target not recorded as equal:", item.Op)
	}
}

// TestSynchronizeConflictUntouched tests that unresolved conflicts perform
// no I/O.
func TestSynchronizeConflictUntouched(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Now().Truncate(time.Second)
	leftPath := filepath.Join(pair.LeftBase, "contested.txt")
	rightPath := filepath.Join(pair.RightBase, "contested.txt")
	writeFileWithTime(t, leftPath, "left version", modTime)
	writeFileWithTime(t, rightPath, "right version", modTime)
	pair.Hierarchy.AddItem(-1, Item{
		Kind:  KindFile,
		Op:    OperationUnresolvedConflict,
		Left:  SideState{Exists: true, Name: "contested.txt", Size: 12, ModTime: modTime.Unix()},
		Right: SideState{Exists: true, Name: "contested.txt", Size: 13, ModTime: modTime.Unix()},
	})
	// Give the pair a real operation so it classifies for processing.
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "b.txt"), "b", modTime)
	pair.Hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "b.txt", true, false, 1, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if content, err := os.ReadFile(leftPath); err != nil || string(content) != "left version" {
		t.Error("conflict item's left side disturbed")
	}
	if content, err := os.ReadFile(rightPath); err != nil || string(content) != "right version" {
		t.Error("conflict item's right side disturbed")
	}
	if len(callback.warnings) == 0 {
		t.Error("unresolved conflict produced no warning")
	}
}

// TestSynchronizeSkipsIdenticalBases tests that a pair whose sides coincide
// performs no work.
func TestSynchronizeSkipsIdenticalBases(t *testing.T) {
	base := t.TempDir()
	modTime := time.Now().Truncate(time.Second)
	writeFileWithTime(t, filepath.Join(base, "a.txt"), "a", modTime)
	hierarchy := NewHierarchy()
	hierarchy.AddItem(-1, fileItem(OperationDeleteLeft, "a.txt", true, false, 1, modTime.Unix()))
	pair := &BaseDirPair{
		LeftBase: base, RightBase: base,
		LeftExisting: true, RightExisting: true,
		Hierarchy: hierarchy,
	}

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if !filesystem.FileExists(filepath.Join(base, "a.txt")) {
		t.Error("skipped pair performed a deletion")
	}
}

// TestSynchronizeMissingVersioningFolderFatal tests that versioning without
// an archive folder is fatal for the pair.
func TestSynchronizeMissingVersioningFolderFatal(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Now().Truncate(time.Second)
	path := filepath.Join(pair.LeftBase, "a.txt")
	writeFileWithTime(t, path, "a", modTime)
	pair.Hierarchy.AddItem(-1, fileItem(OperationDeleteLeft, "a.txt", true, false, 1, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Versioning}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) == 0 {
		t.Error("missing versioning folder produced no fatal error")
	}
	if !filesystem.FileExists(path) {
		t.Error("fatally misconfigured pair performed a deletion")
	}
}

// TestSynchronizeCreatesAbsentBase tests base directory creation for a side
// that was absent at compare time.
func TestSynchronizeCreatesAbsentBase(t *testing.T) {
	pair := newTestPair(t)
	absentBase := filepath.Join(t.TempDir(), "fresh")
	pair.RightBase = absentBase
	pair.RightExisting = false
	modTime := time.Now().Truncate(time.Second)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "a", modTime)
	pair.Hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "a.txt", true, false, 1, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 {
		t.Fatal("synchronization reported fatal errors:", callback.fatals)
	}
	if !filesystem.FileExists(filepath.Join(absentBase, "a.txt")) {
		t.Error("file not created under the fresh base")
	}
}

// TestSynchronizeAbsentBaseRace tests that a base directory appearing
// between comparison and synchronization is fatal for the pair.
func TestSynchronizeAbsentBaseRace(t *testing.T) {
	pair := newTestPair(t)
	pair.RightExisting = false // it exists on disk, though
	modTime := time.Now().Truncate(time.Second)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "a", modTime)
	pair.Hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "a.txt", true, false, 1, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) == 0 {
		t.Error("racing base directory produced no fatal error")
	}
	if filesystem.FileExists(filepath.Join(pair.RightBase, "a.txt")) {
		t.Error("racing pair was synchronized anyway")
	}
}

// TestSynchronizeCopyMetadata tests metadata-only alignment.
func TestSynchronizeCopyMetadata(t *testing.T) {
	pair := newTestPair(t)
	leftTime := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	rightTime := time.Date(2020, 5, 1, 13, 0, 0, 0, time.UTC)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "same", leftTime)
	rightPath := filepath.Join(pair.RightBase, "a.txt")
	writeFileWithTime(t, rightPath, "same", rightTime)
	index := pair.Hierarchy.AddItem(-1, Item{
		Kind:  KindFile,
		Op:    OperationCopyMetadataToRight,
		Left:  SideState{Exists: true, Name: "a.txt", Size: 4, ModTime: leftTime.Unix()},
		Right: SideState{Exists: true, Name: "a.txt", Size: 4, ModTime: rightTime.Unix()},
	})

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{}, &OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}
	if info, err := os.Stat(rightPath); err != nil {
		t.Fatal("unable to stat right side:", err)
	} else if !info.ModTime().Truncate(time.Second).Equal(leftTime) {
		t.Error("right side time not aligned:", info.ModTime())
	}
	if pair.Hierarchy.Item(index).Op != OperationEqual {
		t.Error("item not recorded as equal")
	}
}

// TestSynchronizeVerification tests post-copy verification on the happy
// path.
func TestSynchronizeVerification(t *testing.T) {
	pair := newTestPair(t)
	modTime := time.Now().Truncate(time.Second)
	writeFileWithTime(t, filepath.Join(pair.LeftBase, "a.txt"), "verified", modTime)
	pair.Hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "a.txt", true, false, 8, modTime.Unix()))

	callback := &testCallback{}
	Synchronize(
		[]*BaseDirPair{pair},
		[]FolderPairConfig{{DeletionPolicy: deletion.Permanent}},
		Options{TransactionalFileCopy: true, VerifyCopiedFiles: true},
		&OptionalWarnings{}, callback, nil,
	)

	if len(callback.fatals) != 0 || len(callback.errors) != 0 {
		t.Fatal("synchronization reported failures:", callback.fatals, callback.errors)
	}
	if !filesystem.FileExists(filepath.Join(pair.RightBase, "a.txt")) {
		t.Error("verified file missing")
	}
}

// TestStatistics tests workload calculation.
func TestStatistics(t *testing.T) {
	hierarchy := NewHierarchy()
	hierarchy.AddItem(-1, fileItem(OperationCreateNewRight, "a", true, false, 100, 0))
	hierarchy.AddItem(-1, fileItem(OperationDeleteLeft, "b", true, false, 50, 0))
	hierarchy.AddItem(-1, Item{Kind: KindFile, Op: OperationUnresolvedConflict})
	hierarchy.AddItem(-1, fileItem(OperationEqual, "c", true, true, 10, 0))

	statistics := CalculateStatistics(hierarchy)
	if statistics.CreateRight != 1 || statistics.DeleteLeft != 1 || statistics.Conflicts != 1 {
		t.Error("unexpected statistics:", statistics)
	}
	if statistics.BytesToProcess != 100 {
		t.Error("unexpected byte total:", statistics.BytesToProcess)
	}
	if statistics.Rows != 4 {
		t.Error("unexpected row count:", statistics.Rows)
	}
	if statistics.ItemsToProcess() != 2 {
		t.Error("unexpected item total:", statistics.ItemsToProcess())
	}
}

// TestUnlinkMovePair tests move pair degradation.
func TestUnlinkMovePair(t *testing.T) {
	hierarchy := NewHierarchy()
	source := hierarchy.AddItem(-1, fileItem(OperationMoveLeftSource, "old", true, false, 1, 0))
	target := hierarchy.AddItem(-1, fileItem(OperationMoveLeftTarget, "new", false, true, 1, 0))
	hierarchy.LinkMovePair(source, target)

	hierarchy.UnlinkMovePair(source)
	if hierarchy.Item(source).MoveRef != invalidIndex || hierarchy.Item(target).MoveRef != invalidIndex {
		t.Error("cross-references survive unlinking")
	}
	if hierarchy.Item(source).Op != OperationDeleteLeft {
		t.Error("source not degraded to delete:", hierarchy.Item(source).Op)
	}
	if hierarchy.Item(target).Op != OperationCreateNewLeft {
		t.Error("target not degraded to create:", hierarchy.Item(target).Op)
	}
}
