// Package closet keeps one wardrobe per signed-in session.
package closet

import (
	"sync"

	"github.com/erazemk/tryon/internal/catalog"
	"github.com/erazemk/tryon/internal/draft"
)

// Closet is a session's catalog and its add-item workflow.
type Closet struct {
	Catalog *catalog.Catalog
	AddItem *draft.Workflow
}

// Registry maps session ids to closets. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	closets map[string]*Closet
	opts    []catalog.Option
}

// NewRegistry returns an empty registry. opts apply to every catalog it
// creates.
func NewRegistry(opts ...catalog.Option) *Registry {
	return &Registry{
		closets: make(map[string]*Closet),
		opts:    opts,
	}
}

// Get returns the closet for session id, seeding a new one from the fixture
// on first use.
func (r *Registry) Get(id string) *Closet {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.closets[id]; ok {
		return c
	}

	cat := catalog.New(catalog.Fixture(), r.opts...)
	c := &Closet{Catalog: cat, AddItem: draft.NewWorkflow(cat)}
	r.closets[id] = c
	return c
}

// Drop forgets the closet for session id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.closets, id)
}

// Len returns the number of live closets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closets)
}
