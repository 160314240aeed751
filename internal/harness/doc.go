// Package harness provides a conformance testing framework for the engine
// core.
//
// Scenarios are YAML files describing an engine session: files to seed into
// a build root, then a sequence of steps that capture snapshots, dispatch
// work through the pool, trigger the post-fork protocol, or scan the virtual
// filesystem. Each run constructs a real Core over fresh temp directories,
// executes the steps against it, and records a trace.
//
// Traces are deterministic: sequence numbers come from a resettable logical
// clock, run tokens are fixed per scenario, and every content identifier in
// the trace is a content-addressed digest. Pool names carry random suffixes
// and therefore never appear in traces; pool identity is traced as a
// generation counter that increments on each post-fork replacement.
//
// Golden comparison serializes the trace as canonical JSON, so golden files
// are byte-stable across runs and platforms.
package harness
