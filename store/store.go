// Package store provides fixed-record, index-addressed storage backends for
// the node cache. Records are addressed by a 1-based index; index 0 is
// reserved and always reads as the zero record.
package store

import "errors"

// Store is the backing-store contract consumed by the node cache. Allocate
// appends one zero-valued record and returns its index. Read fills rec from
// the record at idx, or zeroes it when idx is 0 or beyond the current extent.
// Write overwrites an existing record and fails on out-of-range indices.
type Store interface {
	Allocate() (uint32, error)
	Read(idx uint32, rec []byte) error
	Write(idx uint32, rec []byte) error
	Count() uint32
	Close() error
}

var (
	ErrRecordSize = errors.New("store: record length does not match store record size")
	ErrOutOfRange = errors.New("store: record index out of range")
	ErrClosed     = errors.New("store: closed")
)

func zero(rec []byte) {
	for i := range rec {
		rec[i] = 0
	}
}
