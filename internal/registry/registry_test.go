package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks_RegisterAndGet(t *testing.T) {
	tasks := NewTasks()

	err := tasks.Register(Task{Name: "sources_for_target", Product: "Sources", Inputs: []string{"Target"}})
	require.NoError(t, err)

	task, ok := tasks.Get("sources_for_target")
	require.True(t, ok)
	assert.Equal(t, "Sources", task.Product)
	assert.Equal(t, 1, tasks.Len())
}

func TestTasks_DuplicateNameRejected(t *testing.T) {
	tasks := NewTasks()

	require.NoError(t, tasks.Register(Task{Name: "parse", Product: "AST"}))
	err := tasks.Register(Task{Name: "parse", Product: "Tokens"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate task name")
}

func TestTasks_EmptyNameRejected(t *testing.T) {
	tasks := NewTasks()
	require.Error(t, tasks.Register(Task{Product: "AST"}))
}

func TestTasks_SealedRejectsRegistration(t *testing.T) {
	tasks := NewTasks()
	require.NoError(t, tasks.Register(Task{Name: "parse", Product: "AST"}))

	tasks.Seal()
	assert.True(t, tasks.Sealed())

	err := tasks.Register(Task{Name: "link", Product: "Binary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sealed")

	// Reads still work after sealing.
	_, ok := tasks.Get("parse")
	assert.True(t, ok)
}

func TestTasks_ForProductDeterministicOrder(t *testing.T) {
	tasks := NewTasks()
	require.NoError(t, tasks.Register(Task{Name: "zeta", Product: "Sources"}))
	require.NoError(t, tasks.Register(Task{Name: "alpha", Product: "Sources"}))
	require.NoError(t, tasks.Register(Task{Name: "other", Product: "Binary"}))

	got := tasks.ForProduct("Sources")
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, "zeta", got[1].Name)
}

func TestTypes_InternIdempotent(t *testing.T) {
	types := NewTypes()

	a, err := types.Intern("Snapshot")
	require.NoError(t, err)
	b, err := types.Intern("Snapshot")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, types.Len())
}

func TestTypes_RoundTrip(t *testing.T) {
	types := NewTypes()

	id, err := types.Intern("Sources")
	require.NoError(t, err)

	name, ok := types.Name(id)
	require.True(t, ok)
	assert.Equal(t, "Sources", name)

	got, ok := types.Lookup("Sources")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestTypes_SealedRejectsNewNames(t *testing.T) {
	types := NewTypes()
	id, err := types.Intern("Sources")
	require.NoError(t, err)

	types.Seal()

	// Existing names still intern to the same ID.
	again, err := types.Intern("Sources")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// New names fail.
	_, err = types.Intern("Binary")
	require.Error(t, err)
}
