// Package core implements the shared execution substrate of the engine: the
// single process-wide Core shared by every running graph-node computation,
// and the fork-safety protocol that keeps the engine usable after the owning
// process forks.
//
// ARCHITECTURE:
//
// One Core per engine instance:
// The Core owns the dependency graph, the task and type registries, the
// snapshot store, the virtual filesystem, and the resource pool. Everything
// except the pool is fixed at construction and never structurally replaced.
// Ownership is plain shared-pointer sharing under the garbage collector;
// nothing is reachable through ambient globals.
//
// Pool access protocol:
// The pool is the one field whose identity changes during the process
// lifetime, so it sits behind a read/write lock. Dispatching work takes the
// read path and is fully concurrent across callers; replacement (PostFork)
// takes the exclusive path, waits out current readers, swaps the pool, and
// releases. Guards are scoped to a single dispatch and never retained
// across a point that could span a fork.
//
// Contexts:
// Each node computation receives a Context: an EntryID plus a shared
// reference to the Core. Deriving a Context for another node copies the
// identity and shares the Core - derived contexts can never diverge in
// which Core they observe.
package core
