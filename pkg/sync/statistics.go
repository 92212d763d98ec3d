package sync

// Statistics summarizes the work a hierarchy implies: item counts per
// category and side, plus the data volume to transfer.
type Statistics struct {
	// CreateLeft and CreateRight count items to create per side.
	CreateLeft, CreateRight int64
	// UpdateLeft and UpdateRight count items to overwrite or re-stamp per
	// side.
	UpdateLeft, UpdateRight int64
	// DeleteLeft and DeleteRight count items to delete per side.
	DeleteLeft, DeleteRight int64
	// Conflicts counts items with no chosen direction.
	Conflicts int64
	// BytesToProcess is the total data volume to transfer.
	BytesToProcess int64
	// Rows counts all items in the hierarchy.
	Rows int64
}

// ItemsToProcess returns the total number of items requiring work.
func (s Statistics) ItemsToProcess() int64 {
	return s.CreateLeft + s.CreateRight +
		s.UpdateLeft + s.UpdateRight +
		s.DeleteLeft + s.DeleteRight
}

// WritesTo returns the number of items that write to the specified side.
func (s Statistics) WritesTo(side Side) int64 {
	if side == SideLeft {
		return s.CreateLeft + s.UpdateLeft + s.DeleteLeft
	}
	return s.CreateRight + s.UpdateRight + s.DeleteRight
}

// MismatchedRows returns the number of rows that are not already in sync.
func (s Statistics) MismatchedRows() int64 {
	return s.ItemsToProcess() + s.Conflicts
}

// add accumulates the contribution of a single item.
func (s *Statistics) add(item *Item) {
	s.Rows++
	switch item.Op {
	case OperationCreateNewLeft:
		s.CreateLeft++
		if item.Kind == KindFile {
			s.BytesToProcess += int64(item.Right.Size)
		}
	case OperationCreateNewRight:
		s.CreateRight++
		if item.Kind == KindFile {
			s.BytesToProcess += int64(item.Left.Size)
		}
	case OperationDeleteLeft:
		s.DeleteLeft++
	case OperationDeleteRight:
		s.DeleteRight++
	case OperationOverwriteLeft:
		s.UpdateLeft++
		if item.Kind == KindFile {
			s.BytesToProcess += int64(item.Right.Size)
		}
	case OperationOverwriteRight:
		s.UpdateRight++
		if item.Kind == KindFile {
			s.BytesToProcess += int64(item.Left.Size)
		}
	case OperationCopyMetadataToLeft, OperationMoveLeftTarget:
		s.UpdateLeft++
	case OperationCopyMetadataToRight, OperationMoveRightTarget:
		s.UpdateRight++
	case OperationMoveLeftSource:
		s.DeleteLeft++
	case OperationMoveRightSource:
		s.DeleteRight++
	case OperationUnresolvedConflict:
		s.Conflicts++
	}
}

// CalculateStatistics computes statistics over an entire hierarchy.
func CalculateStatistics(hierarchy *Hierarchy) Statistics {
	var statistics Statistics
	hierarchy.Walk(func(index int) error {
		statistics.add(hierarchy.Item(index))
		return nil
	})
	return statistics
}

// calculateSubtreeStatistics computes statistics over the subtree rooted at
// the specified index, including the root item itself.
func calculateSubtreeStatistics(hierarchy *Hierarchy, index int) Statistics {
	var statistics Statistics
	var walk func(index int)
	walk = func(index int) {
		if hierarchy.Removed(index) {
			return
		}
		statistics.add(hierarchy.Item(index))
		for _, child := range hierarchy.Children(index) {
			walk(child)
		}
	}
	walk(index)
	return statistics
}
