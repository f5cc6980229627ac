package labserver

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, maxBytes int64) *store {
	t.Helper()
	s, err := openStore(filepath.Join(t.TempDir(), "db"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.close() })
	return s
}

func rec(path string, body string) record {
	return record{Method: "GET", Host: "h", Path: path, Current: snapshot{Status: 200, Body: []byte(body)}}
}

func TestStorePutGetDelete(t *testing.T) {
	s := openTestStore(t, 0)
	require.NoError(t, s.Put("GET h/a", rec("/a", `"x"`)))
	require.NoError(t, s.Put("GET h/a", rec("/a", `"longer value"`)))

	got, ok := s.Get("GET h/a")
	require.True(t, ok)
	assert.Equal(t, `"longer value"`, string(got.Current.Body))
	assert.Equal(t, 1, s.Len())
	first := s.TotalSize()
	assert.Positive(t, first)

	require.NoError(t, s.Delete("GET h/a"))
	_, ok = s.Peek("GET h/a")
	assert.False(t, ok)
	assert.Zero(t, s.TotalSize())
	assert.Empty(t, s.Keys())
}

func TestStoreIndexSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := openStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Put("GET h/b", rec("/b", "1")))
	require.NoError(t, s.Put("GET h/a", rec("/a", "2")))
	size := s.TotalSize()
	require.NoError(t, s.close())

	s, err = openStore(path, 0)
	require.NoError(t, err)
	defer s.close()
	assert.Equal(t, []string{"GET h/a", "GET h/b"}, s.Keys())
	assert.Equal(t, size, s.TotalSize())
}

func TestStoreEvictsUnpinned(t *testing.T) {
	s := openTestStore(t, 1)

	pinned := rec("/pinned", `"p"`)
	pinned.Original = &snapshot{Status: 200}
	require.NoError(t, s.Put("GET h/pinned", pinned))

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("GET h/%d", i)
		require.NoError(t, s.Put(key, rec(fmt.Sprintf("/%d", i), `"v"`)))
	}

	_, ok := s.Peek("GET h/pinned")
	assert.True(t, ok, "records with overrides are never evicted")
	_, ok = s.Peek("GET h/4")
	assert.True(t, ok, "the record just written is kept")
	assert.Equal(t, 2, s.Len())
}
