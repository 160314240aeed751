package registry

import (
	"fmt"
	"sync"
)

// TypeID identifies a registered value type.
type TypeID uint32

// Types is the type registry: a table of the value types that rules consume
// and produce. Like Tasks, it is built during bootstrap, sealed, and then
// read-only for the life of the core.
type Types struct {
	mu     sync.Mutex
	sealed bool
	byName map[string]TypeID
	names  []string
}

// NewTypes creates an empty, unsealed type registry.
func NewTypes() *Types {
	return &Types{byName: make(map[string]TypeID)}
}

// Intern registers name and returns its TypeID. Interning an existing name
// returns the existing ID; interning after Seal fails.
func (t *Types) Intern(name string) (TypeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byName[name]; ok {
		return id, nil
	}
	if t.sealed {
		return 0, fmt.Errorf("intern %q: registry is sealed", name)
	}
	if name == "" {
		return 0, fmt.Errorf("intern: type name is required")
	}

	id := TypeID(len(t.names))
	t.byName[name] = id
	t.names = append(t.names, name)
	return id, nil
}

// Seal freezes the registry. Idempotent.
func (t *Types) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
}

// Lookup returns the TypeID for name.
func (t *Types) Lookup(name string) (TypeID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name for id.
func (t *Types) Name(id TypeID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Len returns the number of registered types.
func (t *Types) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}
