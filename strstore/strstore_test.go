package strstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "strings.db"))
	require.NoError(t, err)
	defer s.Close()

	off, err := s.Put("main")
	require.NoError(t, err)
	require.NotZero(t, off, "offset 0 is reserved")

	got, err := s.Get(off)
	require.NoError(t, err)
	require.Equal(t, "main", got)

	// offset 0 means "no string"
	got, err = s.Get(0)
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestStore_Dedup(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "strings.db"))
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Put("counter")
	require.NoError(t, err)
	sizeAfterFirst := s.size
	b, err := s.Put("counter")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, sizeAfterFirst, s.size, "re-interning must not grow the file")
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.db")
	s, err := Create(path)
	require.NoError(t, err)

	offs := make(map[string]uint32)
	for _, str := range []string{"x", "fib", "a longer spelling", ""} {
		off, err := s.Put(str)
		require.NoError(t, err)
		offs[str] = off
	}
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	for str, off := range offs {
		got, err := s2.Get(off)
		require.NoError(t, err)
		require.Equal(t, str, got)
		// the rebuilt dedup map must hand out the old offsets
		again, err := s2.Put(str)
		require.NoError(t, err)
		require.Equal(t, off, again)
	}
}

func TestStore_BadOffset(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "strings.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(9999)
	require.Error(t, err)
}
