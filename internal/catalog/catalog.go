// Package catalog holds a session's clothing items and the filtered views
// derived from them.
package catalog

import (
	"strconv"
	"sync"

	"github.com/erazemk/tryon/internal/model"
)

// Catalog is an ordered, in-memory collection of clothing items.
// It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	items []model.ClothingItem
	ids   map[string]struct{}
	gen   IDGenerator
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithIDGenerator overrides the default counter-based generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Catalog) { c.gen = gen }
}

// New builds a catalog from seed items. Seed data is trusted and not
// validated. Unless overridden, new IDs continue after the largest numeric
// seed ID.
func New(seed []model.ClothingItem, opts ...Option) *Catalog {
	c := &Catalog{
		items: make([]model.ClothingItem, len(seed)),
		ids:   make(map[string]struct{}, len(seed)),
	}
	copy(c.items, seed)

	var maxID uint64
	for _, item := range seed {
		c.ids[item.ID] = struct{}{}
		if n, err := strconv.ParseUint(item.ID, 10, 64); err == nil && n > maxID {
			maxID = n
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.gen == nil {
		c.gen = NewCounter(maxID)
	}
	return c
}

// Add assigns a fresh ID to item, appends it, and returns the stored item.
// Generated IDs that are already taken are skipped, so IDs stay unique for
// any generator.
func (c *Catalog) Add(item model.NewItem) model.ClothingItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.gen.NextID()
	for {
		if _, taken := c.ids[id]; !taken {
			break
		}
		id = c.gen.NextID()
	}

	stored := model.ClothingItem{
		ID:       id,
		Name:     item.Name,
		Category: item.Category,
		Tags:     model.NewTagSet(item.Tags.Slice()...),
		ImageURL: item.ImageURL,
		Favorite: item.Favorite,
	}
	c.items = append(c.items, stored)
	c.ids[id] = struct{}{}
	return stored
}

// VisibleItems returns the items matching q in insertion order. The result
// is a copy and may be modified by the caller.
func (c *Catalog) VisibleItems(q model.Query) []model.ClothingItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	visible := make([]model.ClothingItem, 0, len(c.items))
	for _, item := range c.items {
		if q.Match(item) {
			visible = append(visible, item)
		}
	}
	return visible
}

// Items returns every item in insertion order.
func (c *Catalog) Items() []model.ClothingItem {
	return c.VisibleItems(model.Query{})
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats summarizes a catalog for the dashboard.
type Stats struct {
	Total      int
	Favorites  int
	ByCategory map[model.Category]int
}

// Stats counts items overall, favorites, and per category.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Total:      len(c.items),
		ByCategory: make(map[model.Category]int, len(model.Categories)),
	}
	for _, cat := range model.Categories {
		s.ByCategory[cat] = 0
	}
	for _, item := range c.items {
		if item.Favorite {
			s.Favorites++
		}
		s.ByCategory[item.Category]++
	}
	return s
}
