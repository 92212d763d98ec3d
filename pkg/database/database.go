// Package database persists the last-known-synchronous state of a folder
// pair: one record per leaf carrying the size, modification time, and file
// identities both sides agreed on. The comparison engine consumes this to
// distinguish genuine changes from clock and identity drift; the
// synchronization engine only loads and saves the blob.
package database

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dchest/siphash"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
)

const (
	// FileName is the database file name created under a base directory.
	FileName = "sync" + filesystem.DatabaseExtension

	// formatVersion is the current blob format version.
	formatVersion = 1
)

// blobMagic identifies a database blob.
var blobMagic = []byte("DSDB")

// Checksum keys. The checksum guards against truncation and bit rot, not
// against adversaries, so fixed keys are fine.
const (
	checksumKey0 = 0x647269667473796e
	checksumKey1 = 0x2e6666735f64620a
)

// FileID mirrors a filesystem identifier in serializable form.
type FileID struct {
	// Valid indicates whether or not the identifier is set.
	Valid bool `json:"valid"`
	// Device is the device identifier.
	Device uint64 `json:"device,omitempty"`
	// Index is the file index on the device.
	Index uint64 `json:"index,omitempty"`
}

// EntryState is the synchronized state of one leaf.
type EntryState struct {
	// Size is the agreed file size in bytes.
	Size uint64 `json:"size"`
	// ModTime is the agreed modification time in seconds UTC.
	ModTime int64 `json:"modTime"`
	// LeftID is the identifier of the left-side file object.
	LeftID FileID `json:"leftId"`
	// RightID is the identifier of the right-side file object.
	RightID FileID `json:"rightId"`
}

// PairState is the synchronized state of one folder pair.
type PairState struct {
	// InstanceID identifies this database instance across saves.
	InstanceID string `json:"instanceId"`
	// RunID identifies the synchronization run that produced the state.
	RunID string `json:"runId"`
	// SavedAt is the save time in seconds UTC.
	SavedAt int64 `json:"savedAt"`
	// Entries maps relative paths to their synchronized state.
	Entries map[string]EntryState `json:"entries"`
}

// NewPairState creates an empty pair state with a fresh instance
// identifier.
func NewPairState() *PairState {
	return &PairState{
		InstanceID: uuid.NewString(),
		Entries:    make(map[string]EntryState),
	}
}

// PathForBase computes the database path for a base directory.
func PathForBase(baseDir string) string {
	return filepath.Join(baseDir, FileName)
}

// Save writes the pair state atomically to the specified path.
func Save(path string, state *PairState) error {
	// Marshal the payload.
	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "unable to marshal state")
	}

	// Assemble the blob: magic, version, checksum, payload length, payload.
	buffer := &bytes.Buffer{}
	buffer.Write(blobMagic)
	var header [20]byte
	binary.LittleEndian.PutUint32(header[0:4], formatVersion)
	binary.LittleEndian.PutUint64(header[4:12], siphash.Hash(checksumKey0, checksumKey1, payload))
	binary.LittleEndian.PutUint64(header[12:20], uint64(len(payload)))
	buffer.Write(header[:])
	buffer.Write(payload)

	// Write atomically so a crashed save never leaves a torn database.
	if err := filesystem.WriteFileAtomic(path, buffer.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "unable to write database")
	}

	// Success.
	return nil
}

// Load reads the pair state from the specified path. A missing file yields
// os.ErrNotExist; a truncated or corrupted blob yields
// fserror.ErrUnexpectedEndOfStream.
func Load(path string) (*PairState, error) {
	// Read the blob.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "unable to read database")
	}

	// Validate the header.
	headerLength := len(blobMagic) + 20
	if len(data) < headerLength {
		return nil, fserror.ErrUnexpectedEndOfStream
	}
	if !bytes.Equal(data[:len(blobMagic)], blobMagic) {
		return nil, errors.New("unrecognized database format")
	}
	header := data[len(blobMagic):headerLength]
	version := binary.LittleEndian.Uint32(header[0:4])
	if version != formatVersion {
		return nil, errors.Errorf("unsupported database version %d", version)
	}
	checksum := binary.LittleEndian.Uint64(header[4:12])
	payloadLength := binary.LittleEndian.Uint64(header[12:20])

	// Validate the payload.
	payload := data[headerLength:]
	if uint64(len(payload)) < payloadLength {
		return nil, fserror.ErrUnexpectedEndOfStream
	}
	payload = payload[:payloadLength]
	if siphash.Hash(checksumKey0, checksumKey1, payload) != checksum {
		return nil, fserror.ErrUnexpectedEndOfStream
	}

	// Unmarshal.
	state := &PairState{}
	if err := json.Unmarshal(payload, state); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal state")
	}
	if state.Entries == nil {
		state.Entries = make(map[string]EntryState)
	}

	// Success.
	return state, nil
}

// ConvertFileID converts a filesystem identifier into serializable form.
func ConvertFileID(id filesystem.FileID) FileID {
	return FileID{Valid: id.Valid(), Device: id.Device, Index: id.Index}
}
