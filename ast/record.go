package ast

import "encoding/binary"

// RecordSize is the fixed on-disk size of one AST-node record.
const RecordSize = 20

// Record is one AST node as stored in the AST backing store. Left and Right
// are 1-based indices into the same store, 0 meaning "no child". Token is a
// 1-based index into the token log. Value is interpreted per NodeType.
type Record struct {
	Type  NodeType
	Flags uint16
	Token uint32
	Left  uint32
	Right uint32
	Value uint32
}

func (r *Record) Encode(rec []byte) {
	_ = rec[RecordSize-1]
	binary.LittleEndian.PutUint16(rec[0:], uint16(r.Type))
	binary.LittleEndian.PutUint16(rec[2:], r.Flags)
	binary.LittleEndian.PutUint32(rec[4:], r.Token)
	binary.LittleEndian.PutUint32(rec[8:], r.Left)
	binary.LittleEndian.PutUint32(rec[12:], r.Right)
	binary.LittleEndian.PutUint32(rec[16:], r.Value)
}

func (r *Record) Decode(rec []byte) {
	_ = rec[RecordSize-1]
	r.Type = NodeType(binary.LittleEndian.Uint16(rec[0:]))
	r.Flags = binary.LittleEndian.Uint16(rec[2:])
	r.Token = binary.LittleEndian.Uint32(rec[4:])
	r.Left = binary.LittleEndian.Uint32(rec[8:])
	r.Right = binary.LittleEndian.Uint32(rec[12:])
	r.Value = binary.LittleEndian.Uint32(rec[16:])
}
