// Package registry provides the rule (task) and type registries handed to
// the core at construction. Both are built by the engine bootstrap, sealed,
// and treated as immutable read-only tables for the life of the core.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Task describes one registered rule: a named computation that produces a
// value of Product when given inputs of the listed types.
type Task struct {
	// Name uniquely identifies the rule (e.g. "sources_for_target").
	Name string

	// Product is the type name this rule produces.
	Product string

	// Inputs lists the type names the rule consumes, in declaration order.
	Inputs []string
}

// Tasks is the rule registry.
//
// Registration happens during bootstrap; Seal() freezes the table before it
// is handed to the core. After sealing, all mutation attempts fail - the
// core relies on the table never changing underneath running computations.
type Tasks struct {
	mu     sync.Mutex
	sealed bool
	byName map[string]Task
}

// NewTasks creates an empty, unsealed task registry.
func NewTasks() *Tasks {
	return &Tasks{byName: make(map[string]Task)}
}

// Register adds a rule. Duplicate names are rejected so that a later
// registration can never silently shadow an earlier one.
func (t *Tasks) Register(task Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("register %q: registry is sealed", task.Name)
	}
	if task.Name == "" {
		return fmt.Errorf("register: task name is required")
	}
	if _, exists := t.byName[task.Name]; exists {
		return fmt.Errorf("register %q: duplicate task name", task.Name)
	}
	t.byName[task.Name] = task
	return nil
}

// Seal freezes the registry. Idempotent.
func (t *Tasks) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
}

// Sealed reports whether the registry has been frozen.
func (t *Tasks) Sealed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sealed
}

// Get returns the task registered under name.
func (t *Tasks) Get(name string) (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.byName[name]
	return task, ok
}

// ForProduct returns all tasks producing the given type name, sorted by task
// name for deterministic iteration.
func (t *Tasks) ForProduct(product string) []Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Task
	for _, task := range t.byName {
		if task.Product == product {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tasks.
func (t *Tasks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}
