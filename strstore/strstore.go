// Package strstore is the append-only string interner. Every distinct
// spelling (identifier, literal) is written once and addressed by its byte
// offset; offset 0 means "no string". The store is external to the node
// cache: symbol and AST records hold string offsets, never string bytes.
package strstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

const readCacheSize = 256

// Store interns strings in a flat file of uvarint-length-prefixed entries.
// A deduplication map over the whole file is kept in memory (spellings are
// small and few); reads by offset go through a bounded LRU cache.
type Store struct {
	f      *os.File
	size   int64
	dedup  map[string]uint32
	cache  *lru.Cache[uint32, string]
	closed bool
}

func newStore(f *os.File, size int64) (*Store, error) {
	cache, err := lru.New[uint32, string](readCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{
		f:     f,
		size:  size,
		dedup: make(map[string]uint32),
		cache: cache,
	}, nil
}

// Create makes a new, empty string store. A single header byte keeps offset
// 0 reserved.
func Create(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("strstore: create %s: %w", path, err)
	}
	if _, err := f.Write([]byte{0}); err != nil {
		f.Close()
		return nil, fmt.Errorf("strstore: write header: %w", err)
	}
	return newStore(f, 1)
}

// Open opens an existing store and rebuilds the deduplication map by
// scanning the file.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("strstore: open %s: %w", path, err)
	}
	bz, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("strstore: scan %s: %w", path, err)
	}
	if len(bz) == 0 {
		f.Close()
		return nil, fmt.Errorf("strstore: %s is missing its header byte", path)
	}
	s, err := newStore(f, int64(len(bz)))
	if err != nil {
		f.Close()
		return nil, err
	}
	off := int64(1)
	for off < int64(len(bz)) {
		n, w := binary.Uvarint(bz[off:])
		if w <= 0 || off+int64(w)+int64(n) > int64(len(bz)) {
			f.Close()
			return nil, fmt.Errorf("strstore: corrupt entry at offset %d", off)
		}
		s.dedup[string(bz[off+int64(w):off+int64(w)+int64(n)])] = uint32(off)
		off += int64(w) + int64(n)
	}
	return s, nil
}

// Put interns str and returns its offset. Interning the same spelling twice
// returns the same offset without growing the file.
func (s *Store) Put(str string) (uint32, error) {
	if s.closed {
		return 0, fmt.Errorf("strstore: closed")
	}
	if off, ok := s.dedup[str]; ok {
		return off, nil
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(str)))
	off := s.size
	if _, err := s.f.WriteAt(lenBuf[:n], off); err != nil {
		return 0, fmt.Errorf("strstore: put %q: %w", str, err)
	}
	if _, err := s.f.WriteAt([]byte(str), off+int64(n)); err != nil {
		return 0, fmt.Errorf("strstore: put %q: %w", str, err)
	}
	s.size = off + int64(n) + int64(len(str))
	s.dedup[str] = uint32(off)
	return uint32(off), nil
}

// Get returns the string at off. Offset 0 yields the empty string.
func (s *Store) Get(off uint32) (string, error) {
	if s.closed {
		return "", fmt.Errorf("strstore: closed")
	}
	if off == 0 {
		return "", nil
	}
	if str, ok := s.cache.Get(off); ok {
		return str, nil
	}
	if int64(off) >= s.size {
		return "", fmt.Errorf("strstore: offset %d beyond store size %d", off, s.size)
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n, err := s.f.ReadAt(lenBuf[:], int64(off))
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("strstore: read length at %d: %w", off, err)
	}
	strLen, w := binary.Uvarint(lenBuf[:n])
	if w <= 0 {
		return "", fmt.Errorf("strstore: corrupt length at offset %d", off)
	}
	buf := make([]byte, strLen)
	if _, err := s.f.ReadAt(buf, int64(off)+int64(w)); err != nil {
		return "", fmt.Errorf("strstore: read %d bytes at %d: %w", strLen, off, err)
	}
	str := string(buf)
	s.cache.Add(off, str)
	return str, nil
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("strstore: sync: %w", err)
	}
	return s.f.Close()
}
