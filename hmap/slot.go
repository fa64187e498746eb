package hmap

import (
	"fmt"

	"github.com/thobo70/stcc1-sub000/ast"
	"github.com/thobo70/stcc1-sub000/symbol"
)

// Kind tags what a slot currently caches. It selects both the payload
// interpretation and the backing store.
type Kind uint8

const (
	KindUnused Kind = iota
	KindSym
	KindAST
)

func (k Kind) String() string {
	switch k {
	case KindUnused:
		return "unused"
	case KindSym:
		return "sym"
	case KindAST:
		return "ast"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

const nilFrame = int32(-1)

type ringID uint8

const (
	ringFree ringID = iota
	ringActive
)

// Slot is one fixed unit of the pool. It holds at most one entity's payload;
// kind is the sole discriminator between the symbol and AST interpretations.
// Ring and hash-chain membership is expressed as frame indices into the pool
// arena, never as heap pointers.
type Slot struct {
	index  uint32 // record index in the backing store, 0 = unassigned
	kind   Kind
	dirty  bool
	hashed bool
	ring   ringID

	sym symbol.Record
	ast ast.Record

	frame    int32
	hashNext int32
	hashPrev int32
	ringNext int32
	ringPrev int32
}

func (s *Slot) Index() uint32 { return s.index }
func (s *Slot) Kind() Kind    { return s.kind }
func (s *Slot) Dirty() bool   { return s.dirty }

// MarkDirty records that the payload has been mutated and must be written
// back before the slot is reused. The pool does not detect writes on its own;
// callers mark after every payload mutation.
func (s *Slot) MarkDirty() { s.dirty = true }

// Sym returns the symbol payload. Panics if the slot does not hold a symbol.
func (s *Slot) Sym() *symbol.Record {
	if s.kind != KindSym {
		panic(fmt.Sprintf("hmap: Sym() on %s slot %d", s.kind, s.index))
	}
	return &s.sym
}

// AST returns the AST-node payload. Panics if the slot does not hold a node.
func (s *Slot) AST() *ast.Record {
	if s.kind != KindAST {
		panic(fmt.Sprintf("hmap: AST() on %s slot %d", s.kind, s.index))
	}
	return &s.ast
}

func (s *Slot) resetPayload() {
	s.sym = symbol.Record{}
	s.ast = ast.Record{}
}
