package hmap

// Every slot is a member of exactly one of two circular doubly linked rings
// at all times: the free ring (not caching a live entity) or the active ring
// (ordered most-recently-used first, the LRU sitting just before the MRU in
// ring order). Both rings are threaded through the slots' frame-index links.

// ringUnlink removes the slot from whichever ring currently holds it,
// adjusting that ring's head pointer when the slot is the head.
func (p *Pool) ringUnlink(f int32) {
	s := &p.slots[f]
	head, size := &p.freeHead, &p.freeLen
	if s.ring == ringActive {
		head, size = &p.mru, &p.activeLen
	}
	if s.ringNext == f {
		*head = nilFrame
	} else {
		p.slots[s.ringPrev].ringNext = s.ringNext
		p.slots[s.ringNext].ringPrev = s.ringPrev
		if *head == f {
			*head = s.ringNext
		}
	}
	*size--
	s.ringNext, s.ringPrev = nilFrame, nilFrame
}

// ringPush splices the slot in just before the ring's head and makes it the
// new head: the new MRU on the active ring, the new free head on the free
// ring. The previous head's predecessor (the LRU) is untouched.
func (p *Pool) ringPush(f int32, r ringID) {
	s := &p.slots[f]
	s.ring = r
	head, size := &p.freeHead, &p.freeLen
	if r == ringActive {
		head, size = &p.mru, &p.activeLen
	}
	if *head == nilFrame {
		s.ringNext, s.ringPrev = f, f
	} else {
		h := &p.slots[*head]
		s.ringNext = *head
		s.ringPrev = h.ringPrev
		p.slots[h.ringPrev].ringNext = f
		h.ringPrev = f
	}
	*head = f
	*size++
}

// victim selects the slot to (re)use for a cache miss or a fresh binding.
// A non-empty free ring is scanned from its head for a slot already holding
// the requested kind, or an unused one, to avoid an identity swap; failing
// that the free head is taken regardless of kind. With no free slot the
// active ring's LRU element is the victim.
func (p *Pool) victim(kind Kind) *Slot {
	if p.freeHead != nilFrame {
		f := p.freeHead
		for {
			s := &p.slots[f]
			if s.kind == kind || s.kind == KindUnused {
				return s
			}
			f = s.ringNext
			if f == p.freeHead {
				break
			}
		}
		return &p.slots[p.freeHead]
	}
	return &p.slots[p.slots[p.mru].ringPrev]
}
