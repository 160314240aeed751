// Package graph provides the dependency graph collaborator consumed by the
// core substrate: entry-ID allocation and a concurrent node table.
//
// The memoization and invalidation algorithm that runs over this structure
// lives above this layer; the graph's contract here is only that lookup and
// insert are safe from many contexts at once.
package graph

import (
	"sync"
	"sync/atomic"
)

// EntryID identifies one vertex in the dependency graph.
//
// It is an opaque, copyable lookup key with no ownership semantics - holding
// an EntryID does not pin the node or any engine resource.
type EntryID uint64

// Node is one vertex in the dependency graph.
type Node struct {
	ID  EntryID
	Key string
}

// Graph is the concurrent node table.
//
// Thread-safety: all methods are safe for concurrent use. Reads take the
// shared lock; Ensure takes the exclusive lock only when inserting.
type Graph struct {
	mu     sync.RWMutex
	byKey  map[string]EntryID
	byID   map[EntryID]*Node
	nextID atomic.Uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byKey: make(map[string]EntryID),
		byID:  make(map[EntryID]*Node),
	}
}

// Ensure returns the EntryID for key, inserting a new node if absent.
//
// IDs are allocated from a monotonic counter: each distinct key observed by
// this graph instance gets a unique, strictly increasing ID. IDs are never
// reused, so a stale EntryID can never alias a different node.
func (g *Graph) Ensure(key string) EntryID {
	g.mu.RLock()
	if id, ok := g.byKey[key]; ok {
		g.mu.RUnlock()
		return id
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Re-check: another goroutine may have inserted between the locks.
	if id, ok := g.byKey[key]; ok {
		return id
	}

	id := EntryID(g.nextID.Add(1))
	g.byKey[key] = id
	g.byID[id] = &Node{ID: id, Key: key}
	return id
}

// Node returns the node for id, or (nil, false) if the id was never
// allocated by this graph.
func (g *Graph) Node(id EntryID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	return n, ok
}

// Lookup returns the EntryID for key without inserting.
func (g *Graph) Lookup(key string) (EntryID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byKey[key]
	return id, ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}
