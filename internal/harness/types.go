package harness

// TraceEvent records one executed step. Every field that appears in a trace
// is deterministic for a given scenario.
type TraceEvent struct {
	// Type is "snapshot", "dispatch", "post_fork", or "scan".
	Type string `json:"type"`

	// Seq is the logical clock value assigned to this event.
	Seq int64 `json:"seq"`

	// Paths are the captured paths (snapshot).
	Paths []string `json:"paths,omitempty"`

	// Digest is the manifest digest (snapshot) or job output digest
	// (dispatch).
	Digest string `json:"digest,omitempty"`

	// Entries is the manifest entry count (snapshot).
	Entries int `json:"entries,omitempty"`

	// Label identifies the dispatched job (dispatch).
	Label string `json:"label,omitempty"`

	// Generation is the pool generation the event observed. It starts at 1
	// and increments on each post-fork replacement.
	Generation int `json:"generation,omitempty"`

	// Files is the scan result (scan).
	Files []string `json:"files,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step failure messages. Empty on success.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{Trace: []TraceEvent{}}
}

// AddError records a step failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Passed reports whether the run completed without errors.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}
