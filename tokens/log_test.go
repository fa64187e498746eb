package tokens

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog_AppendAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.wal")
	l, err := OpenLog(path)
	require.NoError(t, err)

	want := []Token{
		{Type: TokenInt, Line: 1, Col: 1},
		{Type: TokenIdent, Line: 1, Col: 5, Str: 17},
		{Type: TokenSemicolon, Line: 1, Col: 9},
		{Type: TokenEOF, Line: 2, Col: 1},
	}
	for i, tok := range want {
		idx, err := l.Append(tok)
		require.NoError(t, err)
		require.Equal(t, uint32(i+1), idx)
	}
	require.Equal(t, uint32(len(want)), l.Count())

	for i, tok := range want {
		got, err := l.At(uint32(i + 1))
		require.NoError(t, err)
		require.Equal(t, tok, got)
	}
	require.NoError(t, l.Close())

	// the log is durable: reopen and replay
	l2, err := OpenLog(path)
	require.NoError(t, err)
	defer l2.Close()
	require.Equal(t, uint32(len(want)), l2.Count())
	got, err := l2.At(2)
	require.NoError(t, err)
	require.Equal(t, want[1], got)
}

func TestLog_AtOutOfRange(t *testing.T) {
	l, err := OpenLog(filepath.Join(t.TempDir(), "tokens.wal"))
	require.NoError(t, err)
	defer l.Close()

	_, err = l.At(1)
	require.Error(t, err)
}
