package store

import (
	"fmt"
	"os"
)

// RecordFile is a Store over a flat file of fixed-size records. The record at
// index i lives at byte offset (i-1)*recSize. The record count is established
// from the file size on open.
type RecordFile struct {
	f       *os.File
	recSize int
	count   uint32
	closed  bool
}

var _ Store = (*RecordFile)(nil)

// Create makes a new, empty record file, truncating any existing file at path.
func Create(path string, recSize int) (*RecordFile, error) {
	if recSize <= 0 {
		return nil, fmt.Errorf("store: invalid record size %d", recSize)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}
	return &RecordFile{f: f, recSize: recSize}, nil
}

// OpenFile opens an existing record file for read/write.
func OpenFile(path string, recSize int) (*RecordFile, error) {
	if recSize <= 0 {
		return nil, fmt.Errorf("store: invalid record size %d", recSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: stat %s: %w", path, err)
	}
	if info.Size()%int64(recSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("store: %s size %d is not a multiple of record size %d",
			path, info.Size(), recSize)
	}
	return &RecordFile{
		f:       f,
		recSize: recSize,
		count:   uint32(info.Size() / int64(recSize)),
	}, nil
}

func (r *RecordFile) Allocate() (uint32, error) {
	if r.closed {
		return 0, ErrClosed
	}
	rec := make([]byte, r.recSize)
	if _, err := r.f.WriteAt(rec, int64(r.count)*int64(r.recSize)); err != nil {
		return 0, fmt.Errorf("store: allocate record %d: %w", r.count+1, err)
	}
	r.count++
	return r.count, nil
}

func (r *RecordFile) Read(idx uint32, rec []byte) error {
	if r.closed {
		return ErrClosed
	}
	if len(rec) != r.recSize {
		return ErrRecordSize
	}
	if idx == 0 || idx > r.count {
		zero(rec)
		return nil
	}
	if _, err := r.f.ReadAt(rec, int64(idx-1)*int64(r.recSize)); err != nil {
		return fmt.Errorf("store: read record %d: %w", idx, err)
	}
	return nil
}

func (r *RecordFile) Write(idx uint32, rec []byte) error {
	if r.closed {
		return ErrClosed
	}
	if len(rec) != r.recSize {
		return ErrRecordSize
	}
	if idx == 0 || idx > r.count {
		return fmt.Errorf("store: write record %d of %d: %w", idx, r.count, ErrOutOfRange)
	}
	if _, err := r.f.WriteAt(rec, int64(idx-1)*int64(r.recSize)); err != nil {
		return fmt.Errorf("store: write record %d: %w", idx, err)
	}
	return nil
}

func (r *RecordFile) Count() uint32 {
	return r.count
}

func (r *RecordFile) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.f.Sync(); err != nil {
		r.f.Close()
		return fmt.Errorf("store: sync: %w", err)
	}
	return r.f.Close()
}
