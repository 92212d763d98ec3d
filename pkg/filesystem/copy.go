package filesystem

import (
	"bytes"
	"io"
	"os"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

const (
	// copyChunkSize is the streaming buffer size used by file copies and
	// content comparison.
	copyChunkSize = 1024 * 1024
)

// CopyProgress receives the number of bytes written since the previous
// invocation. It may return an error (typically fserror.ErrAborted) to
// cancel the copy.
type CopyProgress func(bytesDelta uint64) error

// InSyncAttributes captures the metadata recorded by a successful file copy:
// the size and modification time observed on the source at the moment of the
// read, plus the identifiers of both file objects. Callers persist these
// values so a subsequent comparison sees the pair as synchronized.
type InSyncAttributes struct {
	// Size is the copied file size in bytes.
	Size uint64
	// ModTime is the modification time in seconds UTC.
	ModTime int64
	// SourceFileID is the identifier of the source file object.
	SourceFileID FileID
	// TargetFileID is the identifier of the target file object.
	TargetFileID FileID
}

// CopyFile copies the file at sourcePath to targetPath.
//
// In transactional mode the data is first streamed to a sibling scratch file
// which is then renamed over the final name, so that at no instant does a
// partially written file exist under the final name: on failure, either the
// target never existed or it has been removed before the error propagates.
// The scratch name derives from the target name with the temporary extension
// and is uniquified with a bounded numeric suffix on collision.
//
// onBeforeDeleteTarget, if non-nil, fires after read access on the source
// has been confirmed and before the entity at the final target name is
// removed, enabling fail-safe overwrite handling such as versioning the old
// target. onProgress, if non-nil, fires once per streamed chunk.
//
// A symlink source is dereferenced and the target file's bytes are copied. A
// symlink resolving to a directory is an error; callers detect that shape
// and route it to directory creation instead.
func CopyFile(sourcePath, targetPath string, copyPermissions, transactional bool, onBeforeDeleteTarget func() error, onProgress CopyProgress) (*InSyncAttributes, error) {
	// Open the source and confirm read access.
	source, err := os.Open(sourcePath)
	if err != nil {
		if isLockViolation(err) {
			return nil, fserror.NewFileLocked(sourcePath, lockingProcessNames(sourcePath))
		}
		return nil, fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(sourcePath)+".", err)
	}
	defer source.Close()

	// Capture source metadata at read time. The returned attributes reflect
	// this instant, not any later state of the source.
	sourceInfo, err := source.Stat()
	if err != nil {
		return nil, fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(sourcePath)+".", err)
	}
	if sourceInfo.IsDir() {
		return nil, fserror.NewError("Cannot copy " + fserror.QuotePath(sourcePath) + ": the path is a directory.")
	}
	sourceID, _ := GetFileID(sourcePath)

	// Choose the write path.
	writePath := targetPath
	if transactional {
		if writePath, err = UnusedTemporaryName(targetPath); err != nil {
			return nil, fserror.NewErrorWithCause("Cannot create scratch file for "+fserror.QuotePath(targetPath)+".", err)
		}
	} else if onBeforeDeleteTarget != nil {
		// Without a scratch file the target has to be cleared before the
		// stream starts.
		if err := onBeforeDeleteTarget(); err != nil {
			return nil, err
		}
	}

	// Stream the data, cleaning up the scratch on any failure.
	if err := streamCopy(source, writePath, onProgress); err != nil {
		if transactional {
			os.Remove(writePath)
		}
		return nil, err
	}

	// Preserve attributes: extended attributes where supported, then
	// creation time, then modification time last so nothing disturbs it.
	if err := copyExtendedAttributes(sourcePath, writePath); err != nil {
		if transactional {
			os.Remove(writePath)
		}
		return nil, fserror.NewErrorWithCause("Cannot copy file attributes to "+fserror.QuotePath(writePath)+".", err)
	}
	if creationTime, err := CreationTime(sourcePath); err == nil {
		setCreationTime(writePath, creationTime)
	}
	if err := SetFileTime(writePath, sourceInfo.ModTime(), true); err != nil {
		if transactional {
			os.Remove(writePath)
		}
		return nil, err
	}

	// Copy access control information if requested. This is best-effort: a
	// non-privileged process keeps the data copy even when it cannot
	// reproduce ownership.
	if copyPermissions {
		CopyPermissions(sourcePath, writePath)
	}

	// Swap the scratch file into place.
	if transactional {
		if onBeforeDeleteTarget != nil {
			if err := onBeforeDeleteTarget(); err != nil {
				os.Remove(writePath)
				return nil, err
			}
		}
		if err := RenameDisplacingClash(writePath, targetPath); err != nil {
			os.Remove(writePath)
			return nil, err
		}
	}

	// Capture the target identity.
	targetID, _ := GetFileID(targetPath)

	// Success.
	return &InSyncAttributes{
		Size:         uint64(sourceInfo.Size()),
		ModTime:      sourceInfo.ModTime().Unix(),
		SourceFileID: sourceID,
		TargetFileID: targetID,
	}, nil
}

// streamCopy streams the contents of an open source file to a new file at
// the specified path in fixed-size chunks.
func streamCopy(source *os.File, writePath string, onProgress CopyProgress) error {
	// Create the destination. Creation must be exclusive so a concurrent
	// writer cannot be clobbered.
	destination, err := os.OpenFile(writePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		if os.IsExist(err) {
			return fserror.NewTargetExisting(writePath)
		}
		if os.IsNotExist(err) {
			return fserror.NewTargetPathMissing(writePath)
		}
		if isLockViolation(err) {
			return fserror.NewFileLocked(writePath, lockingProcessNames(writePath))
		}
		return fserror.NewErrorWithCause("Cannot write file "+fserror.QuotePath(writePath)+".", err)
	}

	// Stream chunks.
	buffer := make([]byte, copyChunkSize)
	for {
		read, readErr := source.Read(buffer)
		if read > 0 {
			if _, writeErr := destination.Write(buffer[:read]); writeErr != nil {
				destination.Close()
				return fserror.NewErrorWithCause("Cannot write file "+fserror.QuotePath(writePath)+".", writeErr)
			}
			if onProgress != nil {
				if progressErr := onProgress(uint64(read)); progressErr != nil {
					destination.Close()
					return progressErr
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			destination.Close()
			return fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(source.Name())+".", readErr)
		}
	}

	// Close out the destination.
	if err := destination.Close(); err != nil {
		return fserror.NewErrorWithCause("Cannot write file "+fserror.QuotePath(writePath)+".", err)
	}

	// Success.
	return nil
}

// CompareFileContent compares the contents of two files chunk by chunk,
// bypassing any write-back caching hints the platform honors for sequential
// reads. It returns true if and only if both files have identical content.
// onProgress, if non-nil, fires once per compared chunk of the first file.
func CompareFileContent(firstPath, secondPath string, onProgress CopyProgress) (bool, error) {
	// Open both files.
	first, err := openUnbuffered(firstPath)
	if err != nil {
		return false, fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(firstPath)+".", err)
	}
	defer first.Close()
	second, err := openUnbuffered(secondPath)
	if err != nil {
		return false, fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(secondPath)+".", err)
	}
	defer second.Close()

	// Compare chunk pairs.
	firstBuffer := make([]byte, copyChunkSize)
	secondBuffer := make([]byte, copyChunkSize)
	for {
		firstRead, firstErr := io.ReadFull(first, firstBuffer)
		secondRead, secondErr := io.ReadFull(second, secondBuffer)
		if firstRead != secondRead {
			return false, nil
		}
		if !bytes.Equal(firstBuffer[:firstRead], secondBuffer[:secondRead]) {
			return false, nil
		}
		if onProgress != nil && firstRead > 0 {
			if progressErr := onProgress(uint64(firstRead)); progressErr != nil {
				return false, progressErr
			}
		}
		firstDone := firstErr == io.EOF || firstErr == io.ErrUnexpectedEOF
		secondDone := secondErr == io.EOF || secondErr == io.ErrUnexpectedEOF
		if firstDone != secondDone {
			return false, nil
		}
		if firstDone {
			return true, nil
		}
		if firstErr != nil {
			return false, fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(firstPath)+".", firstErr)
		}
		if secondErr != nil {
			return false, fserror.NewErrorWithCause("Cannot read file "+fserror.QuotePath(secondPath)+".", secondErr)
		}
	}
}
