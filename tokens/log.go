package tokens

import (
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/tidwall/wal"
)

var _ proto.Message = (*TokenRecord)(nil)

// TokenRecord is the wire form of a Token in the log.
type TokenRecord struct {
	Type uint32 `protobuf:"varint,1,opt,name=type,proto3" json:"type,omitempty"`
	Line uint32 `protobuf:"varint,2,opt,name=line,proto3" json:"line,omitempty"`
	Col  uint32 `protobuf:"varint,3,opt,name=col,proto3" json:"col,omitempty"`
	Str  uint32 `protobuf:"varint,4,opt,name=str,proto3" json:"str,omitempty"`
}

func (r *TokenRecord) Reset() { *r = TokenRecord{} }

func (r *TokenRecord) String() string { return "" }

func (r *TokenRecord) ProtoMessage() {}

// Log is the append-only token log. The lexer appends one record per token;
// the parser replays them by 1-based index. The log is not managed by the
// node cache.
type Log struct {
	wal   *wal.Log
	count uint64
}

// OpenLog opens (or creates) a token log at path.
func OpenLog(path string) (*Log, error) {
	opts := wal.DefaultOptions
	opts.NoSync = true
	opts.NoCopy = true
	w, err := wal.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("tokens: open log %s: %w", path, err)
	}
	last, err := w.LastIndex()
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("tokens: last index: %w", err)
	}
	return &Log{wal: w, count: last}, nil
}

// Append writes one token and returns its 1-based index.
func (l *Log) Append(t Token) (uint32, error) {
	rec := &TokenRecord{
		Type: uint32(t.Type),
		Line: t.Line,
		Col:  t.Col,
		Str:  t.Str,
	}
	bz, err := proto.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("tokens: marshal: %w", err)
	}
	idx := l.count + 1
	if err := l.wal.Write(idx, bz); err != nil {
		return 0, fmt.Errorf("tokens: append %d: %w", idx, err)
	}
	l.count = idx
	return uint32(idx), nil
}

// At returns the token at the 1-based index idx.
func (l *Log) At(idx uint32) (Token, error) {
	bz, err := l.wal.Read(uint64(idx))
	if err != nil {
		return Token{}, fmt.Errorf("tokens: read %d: %w", idx, err)
	}
	rec := &TokenRecord{}
	if err := proto.Unmarshal(bz, rec); err != nil {
		return Token{}, fmt.Errorf("tokens: unmarshal %d: %w", idx, err)
	}
	return Token{
		Type: Type(rec.Type),
		Line: rec.Line,
		Col:  rec.Col,
		Str:  rec.Str,
	}, nil
}

// Count returns the number of tokens in the log.
func (l *Log) Count() uint32 {
	return uint32(l.count)
}

func (l *Log) Close() error {
	return l.wal.Close()
}
