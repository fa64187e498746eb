// Package symbol defines the fixed-size symbol-table record persisted in the
// symbol backing store. Symbols within one scope form a doubly linked chain
// through their Next/Prev record indices; the parser keeps only the chain
// head and walks it through the node cache.
package symbol

import (
	"encoding/binary"
	"fmt"
)

// Kind classifies a symbol record.
type Kind uint16

const (
	SymNone Kind = iota
	SymVariable
	SymParam
	SymFunction
	SymConstant
)

var kindNames = [...]string{
	SymNone:     "None",
	SymVariable: "Variable",
	SymParam:    "Param",
	SymFunction: "Function",
	SymConstant: "Constant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Base is the base type encoded in the low byte of a type word.
type Base uint8

const (
	TypeVoid Base = iota
	TypeInt
	TypeChar
)

// MakeType packs a base type and a pointer level into a type word.
func MakeType(b Base, ptr int) uint32 {
	return uint32(b) | uint32(ptr)<<8
}

func (b Base) String() string {
	switch b {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeChar:
		return "char"
	}
	return fmt.Sprintf("Base(%d)", uint8(b))
}

func BaseOf(t uint32) Base  { return Base(t & 0xff) }
func PtrLevel(t uint32) int { return int(t >> 8 & 0xff) }

// RecordSize is the fixed on-disk size of one symbol record.
const RecordSize = 24

// Record is one symbol-table entry as stored in the symbol backing store.
// Name is an offset into the string store. Next/Prev are 1-based indices of
// the scope-chain neighbors, 0 terminating the chain. Value holds a constant
// value, a variable's storage cell or a function's entry label.
type Record struct {
	Kind  Kind
	Depth uint16
	Name  uint32
	Type  uint32
	Value int32
	Next  uint32
	Prev  uint32
}

func (r *Record) Encode(rec []byte) {
	_ = rec[RecordSize-1]
	binary.LittleEndian.PutUint16(rec[0:], uint16(r.Kind))
	binary.LittleEndian.PutUint16(rec[2:], r.Depth)
	binary.LittleEndian.PutUint32(rec[4:], r.Name)
	binary.LittleEndian.PutUint32(rec[8:], r.Type)
	binary.LittleEndian.PutUint32(rec[12:], uint32(r.Value))
	binary.LittleEndian.PutUint32(rec[16:], r.Next)
	binary.LittleEndian.PutUint32(rec[20:], r.Prev)
}

func (r *Record) Decode(rec []byte) {
	_ = rec[RecordSize-1]
	r.Kind = Kind(binary.LittleEndian.Uint16(rec[0:]))
	r.Depth = binary.LittleEndian.Uint16(rec[2:])
	r.Name = binary.LittleEndian.Uint32(rec[4:])
	r.Type = binary.LittleEndian.Uint32(rec[8:])
	r.Value = int32(binary.LittleEndian.Uint32(rec[12:]))
	r.Next = binary.LittleEndian.Uint32(rec[16:])
	r.Prev = binary.LittleEndian.Uint32(rec[20:])
}
