package prefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestGetMissing(t *testing.T) {
	s, _ := openTemp(t)
	var v string
	ok, err := s.Get(KeyUserID, &v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSetOverwrites(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Set(KeyUserID, "ann"))
	require.NoError(t, s.Set(KeyUserID, "bob"))

	var v string
	ok, err := s.Get(KeyUserID, &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", v)
}

func TestValuesSurviveReopen(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Set(KeyExpandedProviders, []string{"api.example.com", "auth.example.com"}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var got []string
	ok, err := s2.Get(KeyExpandedProviders, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"api.example.com", "auth.example.com"}, got)
}

func TestDelete(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Set(KeySelectedEntry, "GET a/b"))
	require.NoError(t, s.Delete(KeySelectedEntry))
	require.NoError(t, s.Delete("never-set"))

	var v string
	ok, err := s.Get(KeySelectedEntry, &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetDecodeError(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Set(KeyUserID, map[string]int{"a": 1}))

	var v string
	_, err := s.Get(KeyUserID, &v)
	assert.ErrorContains(t, err, "decode user_id")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("APPDATA", "/data")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "prefs.db", filepath.Base(p))
	assert.Equal(t, "cachelab", filepath.Base(filepath.Dir(p)))
}
