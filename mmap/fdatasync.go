package mmap

import "os"

// Fdatasync triggers the fastest fsync-like operation that ensures durability
// of the data written to the given file.
//
// Fdatasync might be faster than f.Sync() aka fsync thanks to not syncing
// metadata (last modification/access time) that isn't necessary to ensure
// durability of the data.
//
// Errors returned by this function are not recoverable: many file systems
// mark pages clean after a failed fsync, so the file must be treated as
// corrupted and rewritten.
func Fdatasync(f *os.File) error {
	return fdatasync(f)
}
