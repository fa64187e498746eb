package hmap

// The hash index gives O(1) average lookup of a slot by (index, kind).
// Buckets hold doubly linked chains of frame indices. A slot stays indexed
// from the moment it is first bound to an identity until that identity is
// evicted or rebound; soft-deleted slots keep their entry.

func (p *Pool) bucket(index uint32) int32 {
	return int32(index & p.mask)
}

func (p *Pool) hashAdd(f int32) {
	s := &p.slots[f]
	b := p.bucket(s.index)
	s.hashPrev = nilFrame
	s.hashNext = p.buckets[b]
	if s.hashNext != nilFrame {
		p.slots[s.hashNext].hashPrev = f
	}
	p.buckets[b] = f
	s.hashed = true
}

// hashRemove unlinks the slot from its bucket chain. Calling it on a slot
// that is not indexed is a no-op.
func (p *Pool) hashRemove(f int32) {
	s := &p.slots[f]
	if !s.hashed {
		return
	}
	if s.hashPrev != nilFrame {
		p.slots[s.hashPrev].hashNext = s.hashNext
	} else {
		p.buckets[p.bucket(s.index)] = s.hashNext
	}
	if s.hashNext != nilFrame {
		p.slots[s.hashNext].hashPrev = s.hashPrev
	}
	s.hashed = false
	s.hashNext, s.hashPrev = nilFrame, nilFrame
}

// hashFind returns the frame caching (index, kind), or nilFrame. A matching
// index with the wrong kind is a miss, not an error.
func (p *Pool) hashFind(index uint32, kind Kind) int32 {
	for f := p.buckets[p.bucket(index)]; f != nilFrame; f = p.slots[f].hashNext {
		s := &p.slots[f]
		if s.index == index && s.kind == kind {
			return f
		}
	}
	return nilFrame
}
