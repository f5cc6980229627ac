// Package browser holds the provider tree of the remote cache with search and
// status filtering, expanded providers and the current selection.
package browser

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"cachelab/internal/model"
	"cachelab/internal/prefs"
)

// Prefs is the subset of the preferences store the browser persists to.
type Prefs interface {
	Get(key string, dst any) (bool, error)
	Set(key string, value any) error
}

type Totals struct {
	Providers int
	Entries   int
	Modified  int
}

type Browser struct {
	providers []model.ProviderNode
	totals    Totals

	search   string
	statuses []int

	expanded []string
	selected string
}

func New() *Browser { return &Browser{} }

// SetProviders replaces the tree and recomputes totals from provider stats.
func (b *Browser) SetProviders(providers []model.ProviderNode) {
	b.providers = providers
	b.totals = Totals{
		Providers: len(providers),
		Entries:   lo.SumBy(providers, func(p model.ProviderNode) int { return p.Stats.TotalEntries }),
		Modified:  lo.SumBy(providers, func(p model.ProviderNode) int { return p.Stats.ModifiedCount }),
	}
}

func (b *Browser) Providers() []model.ProviderNode { return b.providers }
func (b *Browser) Totals() Totals { return b.totals }

func (b *Browser) SetSearch(s string) { b.search = s }
func (b *Browser) SetStatusFilter(codes ...int) { b.statuses = codes }

// Filtered returns providers narrowed to endpoints matching the search text
// (path, method or provider name, case-insensitive) and any of the status
// codes. Providers left without endpoints are dropped.
func (b *Browser) Filtered() []model.ProviderNode {
	if b.search == "" && len(b.statuses) == 0 {
		return b.providers
	}
	needle := strings.ToLower(b.search)

	return lo.FilterMap(b.providers, func(p model.ProviderNode, _ int) (model.ProviderNode, bool) {
		nameHit := needle != "" && strings.Contains(strings.ToLower(p.Name), needle)
		p.Endpoints = lo.Filter(p.Endpoints, func(e model.EndpointNode, _ int) bool {
			matchesSearch := needle == "" || nameHit ||
				strings.Contains(strings.ToLower(e.Path), needle) ||
				strings.Contains(strings.ToLower(e.Method), needle)
			matchesStatus := len(b.statuses) == 0 || lo.Contains(b.statuses, e.Status)
			return matchesSearch && matchesStatus
		})
		return p, len(p.Endpoints) > 0
	})
}

func (b *Browser) ProviderByName(name string) (model.ProviderNode, bool) {
	return lo.Find(b.providers, func(p model.ProviderNode) bool { return p.Name == name })
}

func (b *Browser) EndpointByKey(key string) (model.EndpointNode, bool) {
	all := lo.FlatMap(b.providers, func(p model.ProviderNode, _ int) []model.EndpointNode { return p.Endpoints })
	return lo.Find(all, func(e model.EndpointNode) bool { return e.CacheKey == key })
}

// Toggle flips the expanded state of a provider and reports the new state.
func (b *Browser) Toggle(name string) bool {
	if lo.Contains(b.expanded, name) {
		b.expanded = lo.Without(b.expanded, name)
		return false
	}
	b.expanded = append(b.expanded, name)
	return true
}

func (b *Browser) Expanded(name string) bool { return lo.Contains(b.expanded, name) }

func (b *Browser) Select(key string) { b.selected = key }
func (b *Browser) Selected() string { return b.selected }

// Save stores selection and expanded providers.
func (b *Browser) Save(p Prefs) error {
	if err := p.Set(prefs.KeySelectedEntry, b.selected); err != nil {
		return err
	}
	return p.Set(prefs.KeyExpandedProviders, b.expanded)
}

// Restore loads selection and expanded providers saved earlier. Missing keys
// leave the current values untouched.
func (b *Browser) Restore(p Prefs) error {
	var selected string
	ok, err := p.Get(prefs.KeySelectedEntry, &selected)
	if err != nil {
		return err
	}
	if ok {
		b.selected = selected
	}

	var expanded []string
	ok, err = p.Get(prefs.KeyExpandedProviders, &expanded)
	if err != nil {
		return err
	}
	if ok {
		b.expanded = expanded
	}
	return nil
}

// FormatSize renders a byte count for display, e.g. "1.2 kB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
