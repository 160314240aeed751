package core

import (
	"github.com/loomworks/loom/internal/graph"
)

// Context pairs one node's identity with shared access to the Core. It is
// the value handed to each unit of computation, and it is cheap: deriving a
// Context copies an integer and a pointer, never engine resources.
type Context struct {
	EntryID graph.EntryID
	core    *Core
}

// NewContext creates a Context for the given node identity.
// Plain construction: no I/O, cannot fail.
func NewContext(id graph.EntryID, c *Core) Context {
	return Context{EntryID: id, core: c}
}

// Core returns the shared Core. All Contexts derived from the same ancestor
// return the identical pointer.
func (c Context) Core() *Core {
	return c.core
}

// ContextFactory derives per-node Contexts that share one Core. The graph
// executor uses it to hand every node a context without re-deriving engine
// resources.
type ContextFactory interface {
	// Create returns a Context for the given node identity sharing this
	// factory's Core. O(1), cannot fail.
	Create(id graph.EntryID) Context

	// Pool acquires a read guard on the shared Core's current pool.
	Pool() PoolGuard
}

// Create derives a Context for a new node identity. The Core reference is
// shared, not copied - the derived Context observes the same graph, stores,
// and current pool as its source.
func (c Context) Create(id graph.EntryID) Context {
	return Context{EntryID: id, core: c.core}
}

// Pool delegates to the shared Core.
func (c Context) Pool() PoolGuard {
	return c.core.Pool()
}

var _ ContextFactory = Context{}
