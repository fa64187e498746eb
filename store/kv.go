package store

import (
	"encoding/binary"
	"fmt"

	dbm "github.com/cosmos/cosmos-db"
)

var kvCountKey = []byte("count")

// KVStore implements the Store contract over a key-value database. Records
// are keyed by their big-endian index; the record count is persisted under a
// meta key on Close so a reopened store resumes at the right extent.
type KVStore struct {
	db      dbm.DB
	recSize int
	count   uint32
	closed  bool
}

var _ Store = (*KVStore)(nil)

func NewKVStore(db dbm.DB, recSize int) (*KVStore, error) {
	if recSize <= 0 {
		return nil, fmt.Errorf("store: invalid record size %d", recSize)
	}
	kv := &KVStore{db: db, recSize: recSize}
	bz, err := db.Get(kvCountKey)
	if err != nil {
		return nil, fmt.Errorf("store: read count: %w", err)
	}
	if bz != nil {
		if len(bz) != 4 {
			return nil, fmt.Errorf("store: corrupt count key, %d bytes", len(bz))
		}
		kv.count = binary.BigEndian.Uint32(bz)
	}
	return kv, nil
}

func kvRecordKey(idx uint32) []byte {
	k := make([]byte, 5)
	k[0] = 'r'
	binary.BigEndian.PutUint32(k[1:], idx)
	return k
}

func (kv *KVStore) Allocate() (uint32, error) {
	if kv.closed {
		return 0, ErrClosed
	}
	kv.count++
	if err := kv.db.Set(kvRecordKey(kv.count), make([]byte, kv.recSize)); err != nil {
		kv.count--
		return 0, fmt.Errorf("store: allocate record %d: %w", kv.count+1, err)
	}
	return kv.count, nil
}

func (kv *KVStore) Read(idx uint32, rec []byte) error {
	if kv.closed {
		return ErrClosed
	}
	if len(rec) != kv.recSize {
		return ErrRecordSize
	}
	if idx == 0 || idx > kv.count {
		zero(rec)
		return nil
	}
	bz, err := kv.db.Get(kvRecordKey(idx))
	if err != nil {
		return fmt.Errorf("store: read record %d: %w", idx, err)
	}
	if bz == nil {
		zero(rec)
		return nil
	}
	if len(bz) != kv.recSize {
		return fmt.Errorf("store: record %d has %d bytes, want %d", idx, len(bz), kv.recSize)
	}
	copy(rec, bz)
	return nil
}

func (kv *KVStore) Write(idx uint32, rec []byte) error {
	if kv.closed {
		return ErrClosed
	}
	if len(rec) != kv.recSize {
		return ErrRecordSize
	}
	if idx == 0 || idx > kv.count {
		return fmt.Errorf("store: write record %d of %d: %w", idx, kv.count, ErrOutOfRange)
	}
	bz := make([]byte, len(rec))
	copy(bz, rec)
	if err := kv.db.Set(kvRecordKey(idx), bz); err != nil {
		return fmt.Errorf("store: write record %d: %w", idx, err)
	}
	return nil
}

func (kv *KVStore) Count() uint32 {
	return kv.count
}

func (kv *KVStore) Close() error {
	if kv.closed {
		return nil
	}
	kv.closed = true
	bz := make([]byte, 4)
	binary.BigEndian.PutUint32(bz, kv.count)
	if err := kv.db.SetSync(kvCountKey, bz); err != nil {
		return fmt.Errorf("store: persist count: %w", err)
	}
	return nil
}
