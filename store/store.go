// Package store keeps decoded VOX files in a bbolt database, keyed by name
// and deduplicated by content digest.
//
// Two buckets are used: "files" maps a name to the 8-byte big-endian digest
// of the raw file, and "data" maps a digest to the stored record. Loading a
// file whose digest is already known skips decoding entirely.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/vox"
)

var (
	ErrNotFound = errors.New("store: not found")

	filesBucket = []byte("files")
	dataBucket  = []byte("data")
)

// Digest identifies the raw bytes of a VOX file.
type Digest uint64

// DigestOf returns the digest of raw file bytes.
func DigestOf(raw []byte) Digest {
	return Digest(xxhash.Sum64(raw))
}

func (dg Digest) String() string {
	return fmt.Sprintf("%016x", uint64(dg))
}

func (dg Digest) key() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(dg))
}

func digestFromKey(k []byte) (Digest, bool) {
	if len(k) != 8 {
		return 0, false
	}
	return Digest(binary.BigEndian.Uint64(k)), true
}

type Options struct {
	Logger  *slog.Logger
	Verbose bool

	// Timeout limits waiting for the database file lock; zero means one second.
	Timeout time.Duration

	ReadOnly  bool
	IsTesting bool
}

type Store struct {
	bdb     *bbolt.DB
	logger  *slog.Logger
	verbose bool

	DecodeCount atomic.Uint64
	ReuseCount  atomic.Uint64
}

func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = time.Second
	}
	bopt.ReadOnly = opt.ReadOnly
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	if !opt.ReadOnly {
		err = bdb.Update(func(tx *bbolt.Tx) error {
			for _, name := range [][]byte{filesBucket, dataBucket} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			bdb.Close()
			return nil, fmt.Errorf("store: creating buckets: %w", err)
		}
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		bdb:     bdb,
		logger:  logger,
		verbose: opt.Verbose,
	}, nil
}

func (s *Store) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

// Put decodes raw and stores it under name, replacing whatever name referred
// to before. If a file with the same digest is already stored, raw is not
// decoded again.
func (s *Store) Put(name string, raw []byte) (Digest, error) {
	dg := DigestOf(raw)
	key := dg.key()

	var known bool
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(dataBucket); b != nil {
			known = (b.Get(key) != nil)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = s.put(name, raw, key, known)
	if err == errRecordGone {
		// deleted between the two transactions
		known = false
		err = s.put(name, raw, key, false)
	}
	if err != nil {
		return 0, fmt.Errorf("store: %s: %w", name, err)
	}

	if s.verbose {
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "store: put", slog.String("name", name), slog.String("digest", dg.String()), slog.Bool("reused", known), slog.Int("size", len(raw)))
	}
	return dg, nil
}

var errRecordGone = errors.New("record gone")

func (s *Store) put(name string, raw, key []byte, known bool) error {
	var value []byte
	if known {
		s.ReuseCount.Add(1)
	} else {
		d, err := vox.Read(bytes.NewReader(raw), vox.Options{Logger: s.logger, Verbose: s.verbose})
		if err != nil {
			return err
		}
		value, err = encodeValue(d)
		if err != nil {
			return err
		}
		s.DecodeCount.Add(1)
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		files, data := tx.Bucket(filesBucket), tx.Bucket(dataBucket)
		if files == nil || data == nil {
			return bbolt.ErrBucketNotFound
		}
		if data.Get(key) == nil {
			if value == nil {
				return errRecordGone
			}
			if err := data.Put(key, value); err != nil {
				return err
			}
		}
		prev, hadPrev := digestFromKey(files.Get([]byte(name)))
		if err := files.Put([]byte(name), key); err != nil {
			return err
		}
		if hadPrev && string(prev.key()) != string(key) {
			return deleteUnreferenced(files, data, prev)
		}
		return nil
	})
}

// Load reads the file at path and stores it under name.
func (s *Store) Load(name, path string) (Digest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return s.Put(name, raw)
}

// Get returns the stored file with the given digest.
func (s *Store) Get(dg Digest) (*vox.Data, error) {
	var d *vox.Data
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		if b == nil {
			return ErrNotFound
		}
		value := b.Get(dg.key())
		if value == nil {
			return ErrNotFound
		}
		var err error
		d, err = decodeValue(value)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w (digest %v)", err, dg)
	}
	return d, nil
}

// Digest returns the digest of the file stored under name.
func (s *Store) Digest(name string) (Digest, error) {
	var dg Digest
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(filesBucket)
		if b == nil {
			return ErrNotFound
		}
		var ok bool
		dg, ok = digestFromKey(b.Get([]byte(name)))
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w (name %q)", err, name)
	}
	return dg, nil
}

// Lookup returns the file stored under name.
func (s *Store) Lookup(name string) (*vox.Data, Digest, error) {
	dg, err := s.Digest(name)
	if err != nil {
		return nil, 0, err
	}
	d, err := s.Get(dg)
	if err != nil {
		return nil, 0, err
	}
	return d, dg, nil
}

// Delete removes name. The stored record goes away with the last name that
// refers to it.
func (s *Store) Delete(name string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		files, data := tx.Bucket(filesBucket), tx.Bucket(dataBucket)
		if files == nil || data == nil {
			return bbolt.ErrBucketNotFound
		}
		dg, ok := digestFromKey(files.Get([]byte(name)))
		if !ok {
			return fmt.Errorf("%w (name %q)", ErrNotFound, name)
		}
		if err := files.Delete([]byte(name)); err != nil {
			return err
		}
		return deleteUnreferenced(files, data, dg)
	})
}

func deleteUnreferenced(files, data *bbolt.Bucket, dg Digest) error {
	key := dg.key()
	c := files.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if string(v) == string(key) {
			return nil
		}
	}
	return data.Delete(key)
}

// Names returns all stored names in ascending byte order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(filesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Stats summarizes the database contents.
type Stats struct {
	Names   int
	Records int
	Size    int64
}

func (s *Stats) String() string {
	return "names=" + strconv.Itoa(s.Names) + " records=" + strconv.Itoa(s.Records) + " size=" + strconv.FormatInt(s.Size, 10)
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.bdb.View(func(tx *bbolt.Tx) error {
		st.Size = tx.Size()
		if b := tx.Bucket(filesBucket); b != nil {
			st.Names = b.Stats().KeyN
		}
		if b := tx.Bucket(dataBucket); b != nil {
			st.Records = b.Stats().KeyN
		}
		return nil
	})
	return st, err
}
