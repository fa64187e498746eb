// Package hmap is the bounded-memory node cache between the compiler's
// working set and its two record stores. A fixed arena of slots gives the
// parser and the code generator the illusion of an unbounded, randomly
// addressable node graph: lookups are served from a hash index, misses fault
// records in from the backing store, and dirty payloads are written back when
// a slot is evicted or the pool is closed.
//
// The pool is single-threaded by contract. Callers hold a *Slot only until
// their next pool call on a different identity; eviction may silently
// repurpose any slot that is not the most recently touched.
package hmap

import (
	"fmt"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/core"
	"github.com/thobo70/stcc1-sub000/store"
	"github.com/thobo70/stcc1-sub000/symbol"
)

// hash buckets, power of two
const defaultBuckets = 8

// Pool owns the slot arena, the hash index and both rings. Metrics may be
// set right after construction; nil disables collection.
type Pool struct {
	slots   []Slot
	buckets []int32
	mask    uint32

	freeHead  int32
	mru       int32
	freeLen   int
	activeLen int

	syms store.Store
	asts store.Store

	Metrics *core.Metrics

	closed bool
}

// NewPool builds a pool of exactly capacity slots, all chained into the free
// ring. The pool never grows and slot acquisition never fails; only backing
// store I/O can.
func NewPool(capacity int, syms, asts store.Store) *Pool {
	if capacity < 1 {
		panic("hmap: capacity must be positive")
	}
	p := &Pool{
		slots:    make([]Slot, capacity),
		buckets:  make([]int32, defaultBuckets),
		mask:     defaultBuckets - 1,
		freeHead: nilFrame,
		mru:      nilFrame,
		syms:     syms,
		asts:     asts,
	}
	for i := range p.buckets {
		p.buckets[i] = nilFrame
	}
	for i := len(p.slots) - 1; i >= 0; i-- {
		s := &p.slots[i]
		s.frame = int32(i)
		s.hashNext, s.hashPrev = nilFrame, nilFrame
		p.ringPush(s.frame, ringFree)
	}
	return p
}

func (p *Pool) Capacity() int  { return len(p.slots) }
func (p *Pool) FreeLen() int   { return p.freeLen }
func (p *Pool) ActiveLen() int { return p.activeLen }

func (p *Pool) ensureOpen() {
	if p.closed {
		panic("hmap: pool used after Close")
	}
}

func (p *Pool) storeFor(kind Kind) store.Store {
	switch kind {
	case KindSym:
		return p.syms
	case KindAST:
		return p.asts
	}
	panic("hmap: no store for kind " + kind.String())
}

// flush writes a dirty payload back to its backing store and clears the
// dirty bit. Clean and unused slots are left alone.
func (p *Pool) flush(s *Slot) error {
	if s.kind == KindUnused || !s.dirty {
		return nil
	}
	var err error
	switch s.kind {
	case KindSym:
		var rec [symbol.RecordSize]byte
		s.sym.Encode(rec[:])
		err = p.syms.Write(s.index, rec[:])
	case KindAST:
		var rec [ast.RecordSize]byte
		s.ast.Encode(rec[:])
		err = p.asts.Write(s.index, rec[:])
	}
	if err != nil {
		return fmt.Errorf("hmap: flush (%d, %s): %w", s.index, s.kind, err)
	}
	s.dirty = false
	if p.Metrics != nil {
		p.Metrics.PoolFlush++
	}
	return nil
}

// reload reads the record at the slot's identity into the payload and clears
// the dirty bit. Reads of index 0 or past the store extent yield the zero
// record, never an error.
func (p *Pool) reload(s *Slot) error {
	var err error
	switch s.kind {
	case KindSym:
		var rec [symbol.RecordSize]byte
		if err = p.syms.Read(s.index, rec[:]); err == nil {
			s.sym.Decode(rec[:])
		}
	case KindAST:
		var rec [ast.RecordSize]byte
		if err = p.asts.Read(s.index, rec[:]); err == nil {
			s.ast.Decode(rec[:])
		}
	default:
		panic("hmap: reload on unused slot")
	}
	if err != nil {
		return fmt.Errorf("hmap: reload (%d, %s): %w", s.index, s.kind, err)
	}
	s.dirty = false
	if p.Metrics != nil {
		p.Metrics.PoolReload++
	}
	return nil
}

// rebind prepares a victim slot for a new identity: the old dirty payload is
// written back first, then the old hash entry is dropped.
func (p *Pool) rebind(s *Slot) error {
	if err := p.flush(s); err != nil {
		return err
	}
	if s.kind != KindUnused && p.Metrics != nil {
		p.Metrics.PoolEvict++
	}
	p.hashRemove(s.frame)
	return nil
}

// New binds a slot to a freshly allocated record of the given kind and
// returns it at the MRU position, already marked dirty. The caller populates
// the payload and marks the slot dirty again after later mutations.
func (p *Pool) New(kind Kind) (*Slot, error) {
	p.ensureOpen()
	if kind == KindUnused {
		panic("hmap: New with unused kind")
	}
	s := p.victim(kind)
	if err := p.rebind(s); err != nil {
		return nil, err
	}
	idx, err := p.storeFor(kind).Allocate()
	if err != nil {
		return nil, fmt.Errorf("hmap: allocate %s record: %w", kind, err)
	}
	// an earlier out-of-extent Get may have cached idx as a default record;
	// that slot must be unbound so it cannot shadow the new binding
	if f := p.hashFind(idx, kind); f != nilFrame {
		stale := &p.slots[f]
		p.hashRemove(f)
		stale.kind = KindUnused
		stale.dirty = false
		stale.resetPayload()
	}
	s.index = idx
	s.kind = kind
	s.resetPayload()
	s.dirty = true
	p.hashAdd(s.frame)
	p.Touch(s)
	if p.Metrics != nil {
		p.Metrics.PoolNew++
	}
	return s, nil
}

// Get returns the slot caching (index, kind), faulting the record in from
// the backing store on a miss. Get never reports "not found": an index of 0
// or one past the store extent yields the kind's zero record.
func (p *Pool) Get(index uint32, kind Kind) (*Slot, error) {
	p.ensureOpen()
	if kind == KindUnused {
		panic("hmap: Get with unused kind")
	}
	if f := p.hashFind(index, kind); f != nilFrame {
		s := &p.slots[f]
		if s.ring == ringFree {
			// Soft-deleted slot found through its retained hash entry. Its
			// payload was discarded by Delete, so it is reloaded before being
			// put back in service.
			if err := p.reload(s); err != nil {
				return nil, err
			}
		}
		if p.Metrics != nil {
			p.Metrics.PoolHit++
		}
		p.Touch(s)
		return s, nil
	}
	if p.Metrics != nil {
		p.Metrics.PoolMiss++
	}
	s := p.victim(kind)
	if err := p.rebind(s); err != nil {
		return nil, err
	}
	s.index = index
	s.kind = kind
	if err := p.reload(s); err != nil {
		return nil, err
	}
	p.hashAdd(s.frame)
	p.Touch(s)
	return s, nil
}

// Flush writes the slot's payload back to its backing store if it is dirty.
// Callers use it to make an entity durable before soft-deleting its slot.
func (p *Pool) Flush(s *Slot) error {
	p.ensureOpen()
	return p.flush(s)
}

// Touch promotes the slot to the active ring's MRU position. A slot that is
// already the MRU is left alone.
func (p *Pool) Touch(s *Slot) {
	p.ensureOpen()
	if s.frame == p.mru {
		return
	}
	p.ringUnlink(s.frame)
	p.ringPush(s.frame, ringActive)
}

// Delete returns the slot to the free ring as its new head and discards any
// pending write; deletion is not persisted. The hash entry is retained, so a
// later Get of the same identity finds this slot and reloads it.
func (p *Pool) Delete(s *Slot) {
	p.ensureOpen()
	s.dirty = false
	if s.ring == ringFree {
		return
	}
	p.ringUnlink(s.frame)
	p.ringPush(s.frame, ringFree)
	if p.Metrics != nil {
		p.Metrics.PoolDelete++
	}
}

// Close flushes every slot, free ring first, then the active ring in MRU
// order, and retires the pool. A failed flush does not stop the traversal;
// the first error is returned after every slot has been attempted. Pool
// operations after Close panic. Close does not close the backing stores;
// their owner does.
func (p *Pool) Close() error {
	p.ensureOpen()
	p.closed = true
	err := p.flushRing(p.freeHead)
	if err2 := p.flushRing(p.mru); err == nil {
		err = err2
	}
	p.freeHead, p.mru = nilFrame, nilFrame
	p.freeLen, p.activeLen = 0, 0
	return err
}

func (p *Pool) flushRing(head int32) error {
	if head == nilFrame {
		return nil
	}
	var firstErr error
	f := head
	for {
		if err := p.flush(&p.slots[f]); err != nil && firstErr == nil {
			firstErr = err
		}
		f = p.slots[f].ringNext
		if f == head {
			return firstErr
		}
	}
}
