package vox

import (
	"errors"
	"fmt"

	"github.com/andreyvit/vox/chunk"
)

// ErrNoModels is returned when writing a file without models.
var ErrNoModels = errors.New("vox: cannot write a file with no models")

// MagicError is returned when a file does not start with "VOX ".
type MagicError struct {
	Got [4]byte
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("vox: expected file to start with %q, got %q (%x)", Magic, e.Got[:], e.Got[:])
}

// UnexpectedChunkError is returned when the top-level chunk is not MAIN.
type UnexpectedChunkError struct {
	Got chunk.Frame
}

func (e *UnexpectedChunkError) Error() string {
	return fmt.Sprintf("vox: expected %v chunk, got %v", chunk.Main, e.Got)
}

// DuplicateChunkError is returned when a chunk that may appear at most once
// (PACK or RGBA) appears twice.
type DuplicateChunkError struct {
	First  chunk.Frame
	Second chunk.Frame
}

func (e *DuplicateChunkError) Error() string {
	return fmt.Sprintf("vox: found multiple %v chunks (at 0x%x and 0x%x)", e.First.ID, e.First.Offset, e.Second.Offset)
}

// ModelCountError is returned when the number of SIZE and XYZI chunks does
// not match the model count declared by PACK (or 1 without PACK).
type ModelCountError struct {
	SizeChunks  int
	VoxelChunks int
	Declared    int
}

func (e *ModelCountError) Error() string {
	return fmt.Sprintf("vox: found %d SIZE chunks and %d XYZI chunks, but expected %d models", e.SizeChunks, e.VoxelChunks, e.Declared)
}

// MaterialTypeError is returned for an unknown material type byte. Off is -1
// when the material was rejected while writing.
type MaterialTypeError struct {
	Got uint8
	Off int64
}

func (e *MaterialTypeError) Error() string {
	if e.Off < 0 {
		return fmt.Sprintf("vox: invalid material type %d", e.Got)
	}
	return fmt.Sprintf("vox: invalid material type %d at 0x%x", e.Got, e.Off)
}

// OverflowError is returned when a count does not fit into its on-disk field.
type OverflowError struct {
	What  string
	Value int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("vox: %s %d does not fit into uint32", e.What, e.Value)
}

// DataError describes malformed or truncated chunk content.
type DataError struct {
	Chunk chunk.ID
	Off   int64
	Err   error
	Msg   string
}

func dataErrf(id chunk.ID, off int64, err error, format string, args ...any) error {
	return &DataError{id, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vox: %v chunk at 0x%x: %s: %v", e.Chunk, e.Off, e.Msg, e.Err)
	} else {
		return fmt.Sprintf("vox: %v chunk at 0x%x: %s", e.Chunk, e.Off, e.Msg)
	}
}
