package sync

import (
	"path/filepath"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
)

// SideState describes one side of a hierarchy item.
type SideState struct {
	// Exists indicates whether or not the side is occupied.
	Exists bool
	// Name is the short name on this side. It may differ from the other
	// side's name in case only. Empty for a non-existent side.
	Name string
	// Size is the file size in bytes. Zero for directories and symlinks.
	Size uint64
	// ModTime is the modification time in seconds UTC.
	ModTime int64
	// FileID is the file identifier, if the OS provided one.
	FileID filesystem.FileID
	// FollowedSymlink indicates that the entry is a symlink whose target is
	// treated as the item itself.
	FollowedSymlink bool
}

// invalidIndex marks the absence of an item reference.
const invalidIndex = -1

// Item is a node in the comparison hierarchy: a file, symlink, or directory
// pair carrying the state of both sides and the operation to execute. Items
// live in the arena owned by their Hierarchy and reference each other by
// index, which keeps move pair cross-references cheap to establish and to
// break.
type Item struct {
	// Kind is the item shape.
	Kind Kind
	// Left is the left-side state.
	Left SideState
	// Right is the right-side state.
	Right SideState
	// Op is the operation to execute.
	Op Operation
	// MoveRef is the arena index of the move peer, or invalidIndex when the
	// item does not participate in a move.
	MoveRef int

	// parent is the arena index of the containing directory pair, or
	// invalidIndex at the base level.
	parent int
	// children are the arena indices of contained items.
	children []int
	// removed marks an item pruned from the hierarchy.
	removed bool
	// skipped marks an item that reported an ignored failure.
	skipped bool
}

// Side returns the state of the specified side.
func (i *Item) Side(side Side) *SideState {
	if side == SideLeft {
		return &i.Left
	}
	return &i.Right
}

// NameOn returns the item's short name on the specified side, falling back
// to the opposite side's name when the side does not exist yet.
func (i *Item) NameOn(side Side) string {
	if name := i.Side(side).Name; name != "" {
		return name
	}
	return i.Side(side.Opposite()).Name
}

// Hierarchy is the comparison tree of one folder pair, stored as an arena.
type Hierarchy struct {
	// items is the item arena. Indices remain stable; removed items are
	// tombstoned rather than compacted.
	items []Item
	// roots are the arena indices of base-level items.
	roots []int
}

// NewHierarchy creates an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{}
}

// AddItem appends an item under the specified parent (invalidIndex or a
// negative value for the base level) and returns its arena index. Move
// cross-references are established afterwards with LinkMovePair.
func (h *Hierarchy) AddItem(parent int, item Item) int {
	item.parent = parent
	item.MoveRef = invalidIndex
	index := len(h.items)
	h.items = append(h.items, item)
	if parent < 0 {
		h.items[index].parent = invalidIndex
		h.roots = append(h.roots, index)
	} else {
		h.items[parent].children = append(h.items[parent].children, index)
	}
	return index
}

// Item returns the item at the specified arena index.
func (h *Hierarchy) Item(index int) *Item {
	return &h.items[index]
}

// Roots returns the base-level item indices.
func (h *Hierarchy) Roots() []int {
	return h.roots
}

// Children returns the child indices of the specified item.
func (h *Hierarchy) Children(index int) []int {
	return h.items[index].children
}

// Parent returns the parent index of the specified item, or invalidIndex.
func (h *Hierarchy) Parent(index int) int {
	return h.items[index].parent
}

// Remove prunes the item at the specified index and its whole subtree.
func (h *Hierarchy) Remove(index int) {
	item := &h.items[index]
	item.removed = true
	for _, child := range item.children {
		h.Remove(child)
	}
}

// Removed indicates whether or not the item at the specified index has been
// pruned.
func (h *Hierarchy) Removed(index int) bool {
	return h.items[index].removed
}

// RelativePath computes the item's path relative to the base directory on
// the specified side, using each ancestor's side-specific name.
func (h *Hierarchy) RelativePath(index int, side Side) string {
	if index == invalidIndex {
		return ""
	}
	item := &h.items[index]
	parentPath := h.RelativePath(item.parent, side)
	return filepath.Join(parentPath, item.NameOn(side))
}

// FullPath computes the item's absolute path on the specified side under
// the specified base directory.
func (h *Hierarchy) FullPath(baseDir string, index int, side Side) string {
	return filepath.Join(baseDir, h.RelativePath(index, side))
}

// Walk visits the hierarchy in pre-order depth-first order, skipping
// removed items and their subtrees. The visitor may mutate the visited item
// but must not reorder the arena.
func (h *Hierarchy) Walk(visit func(index int) error) error {
	var walk func(indices []int) error
	walk = func(indices []int) error {
		for _, index := range indices {
			if h.items[index].removed {
				continue
			}
			if err := visit(index); err != nil {
				return err
			}
			if err := walk(h.items[index].children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(h.roots)
}

// LinkMovePair establishes the move cross-reference between a move source
// item and its move target item.
func (h *Hierarchy) LinkMovePair(sourceIndex, targetIndex int) {
	h.items[sourceIndex].MoveRef = targetIndex
	h.items[targetIndex].MoveRef = sourceIndex
}

// UnlinkMovePair breaks the move cross-reference between the item at the
// specified index and its peer, degrading the move into an independent
// delete at the source and create at the target. Both peers lose their
// reference; the invariant that either both sides of a move are set or both
// are clear always holds.
func (h *Hierarchy) UnlinkMovePair(index int) {
	item := &h.items[index]
	peer := item.MoveRef
	item.MoveRef = invalidIndex
	switch item.Op {
	case OperationMoveLeftSource:
		item.Op = OperationDeleteLeft
	case OperationMoveRightSource:
		item.Op = OperationDeleteRight
	case OperationMoveLeftTarget:
		item.Op = OperationCreateNewLeft
	case OperationMoveRightTarget:
		item.Op = OperationCreateNewRight
	}
	if peer != invalidIndex {
		h.UnlinkMovePair(peer)
	}
}

// SetSynced records a completed operation: both sides now carry the source
// side's metadata, the item's operation becomes OperationEqual, and a
// subsequent comparison would see the pair as synchronized.
func (i *Item) SetSynced(sourceSide Side, targetID filesystem.FileID) {
	source := i.Side(sourceSide)
	target := i.Side(sourceSide.Opposite())
	target.Exists = true
	target.Name = source.Name
	if target.Name == "" {
		target.Name = i.NameOn(sourceSide)
	}
	target.Size = source.Size
	target.ModTime = source.ModTime
	target.FileID = targetID
	i.Op = OperationEqual
}

// BaseDirPair is the root of one folder pair's comparison hierarchy,
// carrying base-side information alongside the tree.
type BaseDirPair struct {
	// LeftBase is the left base directory path.
	LeftBase string
	// RightBase is the right base directory path.
	RightBase string
	// LeftExisting indicates whether or not the left base existed at
	// compare time.
	LeftExisting bool
	// RightExisting indicates whether or not the right base existed at
	// compare time.
	RightExisting bool
	// Hierarchy is the comparison tree.
	Hierarchy *Hierarchy
}

// Base returns the base directory path of the specified side.
func (p *BaseDirPair) Base(side Side) string {
	if side == SideLeft {
		return p.LeftBase
	}
	return p.RightBase
}

// BaseExisting indicates whether or not the specified side's base directory
// existed at compare time.
func (p *BaseDirPair) BaseExisting(side Side) bool {
	if side == SideLeft {
		return p.LeftExisting
	}
	return p.RightExisting
}
