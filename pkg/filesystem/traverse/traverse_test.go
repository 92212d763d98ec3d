package traverse

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// recordingVisitor records enumeration callbacks for inspection.
type recordingVisitor struct {
	files    []string
	symlinks []string
	dirs     []string
	recurse  bool
	follow   bool
}

func (v *recordingVisitor) OnFile(shortName, fullPath string, info FileInfo) error {
	v.files = append(v.files, shortName)
	return nil
}

func (v *recordingVisitor) OnSymlink(shortName, fullPath string, info SymlinkInfo) (SymlinkAction, error) {
	v.symlinks = append(v.symlinks, shortName)
	if v.follow {
		return SymlinkFollow, nil
	}
	return SymlinkSkip, nil
}

func (v *recordingVisitor) OnDir(shortName, fullPath string) (Visitor, error) {
	v.dirs = append(v.dirs, shortName)
	if v.recurse {
		return v, nil
	}
	return nil, nil
}

func (v *recordingVisitor) OnError(message string, retryCount int, shortName string) (ErrorResponse, error) {
	return ErrorIgnore, nil
}

// TestTraverseSingleLevel tests single-level enumeration with typed
// dispatch.
func TestTraverseSingleLevel(t *testing.T) {
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "a.txt"), []byte("a"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.Mkdir(filepath.Join(directory, "sub"), 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
	if err := os.WriteFile(filepath.Join(directory, "sub", "inner.txt"), []byte("i"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.Symlink(filepath.Join(directory, "a.txt"), filepath.Join(directory, "link")); err != nil {
		t.Skip("unable to create symlink:", err)
	}

	visitor := &recordingVisitor{}
	if err := Traverse(directory, visitor); err != nil {
		t.Fatal("unable to traverse:", err)
	}
	if len(visitor.files) != 1 || visitor.files[0] != "a.txt" {
		t.Error("unexpected files:", visitor.files)
	}
	if len(visitor.symlinks) != 1 || visitor.symlinks[0] != "link" {
		t.Error("unexpected symlinks:", visitor.symlinks)
	}
	if len(visitor.dirs) != 1 || visitor.dirs[0] != "sub" {
		t.Error("unexpected directories:", visitor.dirs)
	}
}

// TestTraverseRecursion tests that a returned sub-visitor descends.
func TestTraverseRecursion(t *testing.T) {
	directory := t.TempDir()
	if err := os.MkdirAll(filepath.Join(directory, "one", "two"), 0700); err != nil {
		t.Fatal("unable to create tree:", err)
	}
	if err := os.WriteFile(filepath.Join(directory, "one", "two", "deep.txt"), []byte("d"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}

	visitor := &recordingVisitor{recurse: true}
	if err := Traverse(directory, visitor); err != nil {
		t.Fatal("unable to traverse:", err)
	}
	sort.Strings(visitor.dirs)
	if len(visitor.dirs) != 2 {
		t.Error("unexpected directories:", visitor.dirs)
	}
	if len(visitor.files) != 1 || visitor.files[0] != "deep.txt" {
		t.Error("unexpected files:", visitor.files)
	}
}

// TestTraverseFollowSymlink tests that a followed file symlink reports the
// target's metadata with link information attached.
func TestTraverseFollowSymlink(t *testing.T) {
	directory := t.TempDir()
	target := filepath.Join(directory, "scope")
	if err := os.Mkdir(target, 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
	real := filepath.Join(directory, "real.txt")
	if err := os.WriteFile(real, []byte("12345"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.Symlink(real, filepath.Join(target, "link.txt")); err != nil {
		t.Skip("unable to create symlink:", err)
	}

	var reported []FileInfo
	visitor := &followingVisitor{onFile: func(info FileInfo) { reported = append(reported, info) }}
	if err := Traverse(target, visitor); err != nil {
		t.Fatal("unable to traverse:", err)
	}
	if len(reported) != 1 {
		t.Fatal("unexpected file report count:", len(reported))
	}
	if reported[0].Size != 5 {
		t.Error("unexpected followed size:", reported[0].Size)
	}
	if reported[0].SymlinkInfo == nil {
		t.Error("followed file carries no symlink information")
	}
}

// followingVisitor follows all symlinks and records file reports.
type followingVisitor struct {
	onFile func(FileInfo)
}

func (v *followingVisitor) OnFile(shortName, fullPath string, info FileInfo) error {
	v.onFile(info)
	return nil
}

func (v *followingVisitor) OnSymlink(shortName, fullPath string, info SymlinkInfo) (SymlinkAction, error) {
	return SymlinkFollow, nil
}

func (v *followingVisitor) OnDir(shortName, fullPath string) (Visitor, error) {
	return nil, nil
}

func (v *followingVisitor) OnError(message string, retryCount int, shortName string) (ErrorResponse, error) {
	return ErrorIgnore, nil
}
