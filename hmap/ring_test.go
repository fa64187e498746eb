package hmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ringOrder walks a ring from head and returns the frame sequence.
func ringOrder(p *Pool, head int32) []int32 {
	if head == nilFrame {
		return nil
	}
	var out []int32
	for f := head; ; {
		out = append(out, f)
		f = p.slots[f].ringNext
		if f == head {
			return out
		}
	}
}

func TestRing_PushMakesHead(t *testing.T) {
	p, _, _ := testPool(t, 3)
	require.Equal(t, []int32{0, 1, 2}, ringOrder(p, p.freeHead))

	for i := 0; i < 3; i++ {
		_, err := p.New(KindAST)
		require.NoError(t, err)
	}
	// each binding became the MRU in turn; the first is now the LRU,
	// sitting just before the MRU in ring order
	require.Equal(t, []int32{2, 1, 0}, ringOrder(p, p.mru))
	require.Equal(t, int32(0), p.slots[p.mru].ringPrev)
}

func TestRing_TouchReordersOnly(t *testing.T) {
	p, _, _ := testPool(t, 3)
	var slots []*Slot
	for i := 0; i < 3; i++ {
		s, err := p.New(KindAST)
		require.NoError(t, err)
		slots = append(slots, s)
	}

	p.Touch(slots[0])
	require.Equal(t, []int32{0, 2, 1}, ringOrder(p, p.mru))
	require.Equal(t, 3, p.activeLen)

	// touching the MRU is a no-op
	p.Touch(slots[0])
	require.Equal(t, []int32{0, 2, 1}, ringOrder(p, p.mru))
}

func TestRing_DeleteSplicesAtFreeHead(t *testing.T) {
	p, _, _ := testPool(t, 3)
	a, err := p.New(KindSym)
	require.NoError(t, err)
	b, err := p.New(KindAST)
	require.NoError(t, err)

	p.Delete(a)
	require.Equal(t, []int32{0, 2}, ringOrder(p, p.freeHead))
	p.Delete(b)
	require.Equal(t, []int32{1, 0, 2}, ringOrder(p, p.freeHead))
	require.Equal(t, 3, p.freeLen)
	require.Equal(t, 0, p.activeLen)
	require.Equal(t, nilFrame, p.mru)
}

func TestVictim_PrefersMatchingKindOnFreeRing(t *testing.T) {
	p, _, _ := testPool(t, 3)
	a, err := p.New(KindSym) // frame 0
	require.NoError(t, err)
	b, err := p.New(KindAST) // frame 1
	require.NoError(t, err)
	p.Delete(a)
	p.Delete(b)
	// free ring is now b, a, unused

	// a matching-kind slot deeper in the ring wins over the head
	require.Equal(t, int32(0), p.victim(KindSym).frame)
	require.Equal(t, int32(1), p.victim(KindAST).frame)
}

func TestVictim_FreeHeadFallback(t *testing.T) {
	p, _, _ := testPool(t, 1)
	a, err := p.New(KindSym)
	require.NoError(t, err)
	p.Delete(a)

	// no AST or unused slot on the free ring: the head is taken anyway
	require.Equal(t, int32(0), p.victim(KindAST).frame)
}

func TestVictim_FallsBackToLRU(t *testing.T) {
	p, _, _ := testPool(t, 2)
	a, err := p.New(KindAST)
	require.NoError(t, err)
	_, err = p.New(KindAST)
	require.NoError(t, err)

	require.Equal(t, 0, p.freeLen)
	require.Equal(t, a.frame, p.victim(KindAST).frame)
}

func TestHash_KindDiscriminates(t *testing.T) {
	p, _, _ := testPool(t, 4)
	s, err := p.New(KindSym)
	require.NoError(t, err)
	f := p.hashFind(s.index, KindSym)
	require.Equal(t, s.frame, f)
	require.Equal(t, nilFrame, p.hashFind(s.index, KindAST))

	p.hashRemove(s.frame)
	require.Equal(t, nilFrame, p.hashFind(s.index, KindSym))
	p.hashRemove(s.frame) // no-op on an unindexed slot
}

func TestHash_ChainsCollidingIndices(t *testing.T) {
	// indices 1 and 1+buckets share a bucket; both must stay findable
	p, _, _ := testPool(t, 2*defaultBuckets)
	var made []*Slot
	for i := 0; i < defaultBuckets+1; i++ {
		s, err := p.New(KindAST)
		require.NoError(t, err)
		made = append(made, s)
	}
	first := made[0]
	last := made[len(made)-1]
	require.Equal(t, p.bucket(first.index), p.bucket(last.index))
	require.Equal(t, first.frame, p.hashFind(first.index, KindAST))
	require.Equal(t, last.frame, p.hashFind(last.index, KindAST))
}
