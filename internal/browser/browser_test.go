package browser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachelab/internal/model"
	"cachelab/internal/prefs"
)

func tree() []model.ProviderNode {
	return []model.ProviderNode{
		{
			Name: "api.example.com",
			Endpoints: []model.EndpointNode{
				{Method: "GET", Path: "/v1/users", CacheKey: "GET api.example.com/v1/users", Status: 200},
				{Method: "POST", Path: "/v1/orders", CacheKey: "POST api.example.com/v1/orders", Status: 500},
			},
			Stats: model.ProviderStats{TotalEntries: 2, ModifiedCount: 1},
		},
		{
			Name: "auth.example.com",
			Endpoints: []model.EndpointNode{
				{Method: "GET", Path: "/token", CacheKey: "GET auth.example.com/token", Status: 200},
			},
			Stats: model.ProviderStats{TotalEntries: 1},
		},
	}
}

func keys(providers []model.ProviderNode) []string {
	var out []string
	for _, p := range providers {
		for _, e := range p.Endpoints {
			out = append(out, e.CacheKey)
		}
	}
	return out
}

func TestTotals(t *testing.T) {
	b := New()
	b.SetProviders(tree())
	assert.Equal(t, Totals{Providers: 2, Entries: 3, Modified: 1}, b.Totals())
}

func TestFiltered(t *testing.T) {
	testCases := []struct {
		name     string
		search   string
		statuses []int
		want     []string
	}{
		{name: "no_filter", want: []string{"GET api.example.com/v1/users", "POST api.example.com/v1/orders", "GET auth.example.com/token"}},
		{name: "path", search: "ORDERS", want: []string{"POST api.example.com/v1/orders"}},
		{name: "method", search: "get", want: []string{"GET api.example.com/v1/users", "GET auth.example.com/token"}},
		{name: "provider_name", search: "auth.", want: []string{"GET auth.example.com/token"}},
		{name: "status", statuses: []int{500}, want: []string{"POST api.example.com/v1/orders"}},
		{name: "search_and_status", search: "example", statuses: []int{200}, want: []string{"GET api.example.com/v1/users", "GET auth.example.com/token"}},
		{name: "nothing", search: "zzz"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := New()
			b.SetProviders(tree())
			b.SetSearch(tc.search)
			b.SetStatusFilter(tc.statuses...)
			assert.Equal(t, tc.want, keys(b.Filtered()))
		})
	}
}

func TestFilteredDoesNotTouchTree(t *testing.T) {
	b := New()
	b.SetProviders(tree())
	b.SetSearch("token")
	require.Len(t, b.Filtered(), 1)
	assert.Len(t, b.Providers()[0].Endpoints, 2)
}

func TestLookups(t *testing.T) {
	b := New()
	b.SetProviders(tree())

	p, ok := b.ProviderByName("auth.example.com")
	require.True(t, ok)
	assert.Len(t, p.Endpoints, 1)
	_, ok = b.ProviderByName("nope")
	assert.False(t, ok)

	e, ok := b.EndpointByKey("POST api.example.com/v1/orders")
	require.True(t, ok)
	assert.Equal(t, 500, e.Status)
	_, ok = b.EndpointByKey("nope")
	assert.False(t, ok)
}

func TestToggle(t *testing.T) {
	b := New()
	assert.True(t, b.Toggle("a"))
	assert.True(t, b.Expanded("a"))
	assert.False(t, b.Toggle("a"))
	assert.False(t, b.Expanded("a"))
}

func TestSaveRestore(t *testing.T) {
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer store.Close()

	b := New()
	b.Toggle("api.example.com")
	b.Select("GET api.example.com/v1/users")
	require.NoError(t, b.Save(store))

	restored := New()
	require.NoError(t, restored.Restore(store))
	assert.Equal(t, "GET api.example.com/v1/users", restored.Selected())
	assert.True(t, restored.Expanded("api.example.com"))
}

func TestRestoreEmpty(t *testing.T) {
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer store.Close()

	b := New()
	b.Select("kept")
	require.NoError(t, b.Restore(store))
	assert.Equal(t, "kept", b.Selected())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(-1))
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 kB", FormatSize(1500))
}
