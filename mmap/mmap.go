// Package mmap maps files into memory read-only, so that VOX files can be
// decoded without copying them into the heap first.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 0

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 1
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// File is a read-only mapping of a whole file.
type File struct {
	name string
	data []byte
}

// Open maps the named file. Empty files are not mapped; their Bytes are nil.
func Open(path string, opt Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size > MaxSize || int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: %s is too large to map (%d bytes)", path, size)
	}

	m := &File{name: path}
	if size == 0 {
		return m, nil
	}
	m.data, err = mmap(f, int(size), opt)
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	return m, nil
}

// Bytes returns the mapped contents. The slice must not be used after Close.
func (m *File) Bytes() []byte {
	return m.data
}

func (m *File) Name() string {
	return m.name
}

// Close unmaps the file. It is safe to call more than once.
func (m *File) Close() error {
	if m.data == nil {
		return nil
	}
	b := m.data
	m.data = nil
	return munmap(b)
}
