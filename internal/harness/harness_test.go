package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/digest"
)

func TestRun_SnapshotStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "snap",
		Description: "captures one file",
		Files: []FileSpec{
			{Path: "a.txt", Content: "alpha"},
		},
		Steps: []Step{
			{Snapshot: &SnapshotStep{Paths: []string{"a.txt"}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed(), "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, "snapshot", ev.Type)
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, []string{"a.txt"}, ev.Paths)
	assert.Equal(t, 1, ev.Entries)

	// The manifest digest is fully determined by the file contents.
	want := digest.MustManifest(map[string]any{"a.txt": digest.Blob([]byte("alpha"))})
	assert.Equal(t, want, ev.Digest)
}

func TestRun_DispatchRunsOnPool(t *testing.T) {
	scenario := &Scenario{
		Name:        "dispatch",
		Description: "runs a labeled job",
		RunToken:    "run-7",
		Steps: []Step{
			{Dispatch: &DispatchStep{Label: "compile"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, "dispatch", ev.Type)
	assert.Equal(t, "compile", ev.Label)
	assert.Equal(t, 1, ev.Generation)
	assert.Equal(t, digest.Blob([]byte("run-7/compile")), ev.Digest,
		"traced digest must come from the executed closure")
}

func TestRun_PostForkBumpsGeneration(t *testing.T) {
	scenario := &Scenario{
		Name:        "fork",
		Description: "dispatch on both sides of a fork",
		Steps: []Step{
			{Dispatch: &DispatchStep{Label: "before"}},
			{PostFork: &PostForkStep{}},
			{Dispatch: &DispatchStep{Label: "after"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.Len(t, result.Trace, 3)

	assert.Equal(t, 1, result.Trace[0].Generation)
	assert.Equal(t, "post_fork", result.Trace[1].Type)
	assert.Equal(t, 2, result.Trace[1].Generation)
	assert.Equal(t, 2, result.Trace[2].Generation,
		"work after the fork must run on the replacement pool")
}

func TestRun_ScanHonorsIgnore(t *testing.T) {
	scenario := &Scenario{
		Name:        "scan",
		Description: "scan with ignore patterns",
		Ignore:      []string{".git/", "**/*.tmp"},
		Files: []FileSpec{
			{Path: "keep.txt", Content: "yes"},
			{Path: ".git/config", Content: "no"},
			{Path: "build/out.tmp", Content: "no"},
		},
		Steps: []Step{
			{Scan: &ScanStep{}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed())
	require.Len(t, result.Trace, 1)
	assert.Equal(t, []string{"keep.txt"}, result.Trace[0].Files)
}

func TestRun_SeqIsContinuous(t *testing.T) {
	scenario := &Scenario{
		Name:        "seq",
		Description: "one seq per step, in order",
		Files: []FileSpec{
			{Path: "a.txt", Content: "x"},
		},
		Steps: []Step{
			{Scan: &ScanStep{}},
			{Snapshot: &SnapshotStep{Paths: []string{"a.txt"}}},
			{PostFork: &PostForkStep{}},
			{Scan: &ScanStep{}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestRun_MissingSnapshotFileFailsStep(t *testing.T) {
	// Bypass LoadScenario validation to hit the runtime error path.
	scenario := &Scenario{
		Name:        "missing",
		Description: "snapshot of an absent file",
		Steps: []Step{
			{Snapshot: &SnapshotStep{Paths: []string{"ghost.txt"}}},
			{Scan: &ScanStep{}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0")
	assert.Empty(t, result.Trace, "failed step aborts the remaining steps")
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	scenario := &Scenario{
		Name:        "repeat",
		Description: "identical trace on every run",
		RunToken:    "run-repeat",
		Files: []FileSpec{
			{Path: "src/a.txt", Content: "alpha"},
		},
		Steps: []Step{
			{Snapshot: &SnapshotStep{Paths: []string{"src/a.txt"}}},
			{Dispatch: &DispatchStep{Label: "compile"}},
			{PostFork: &PostForkStep{}},
			{Scan: &ScanStep{}},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	s1 := TraceSnapshot{ScenarioName: scenario.Name, RunToken: scenario.RunToken, Trace: first.Trace}
	s2 := TraceSnapshot{ScenarioName: scenario.Name, RunToken: scenario.RunToken, Trace: second.Trace}

	d1, err := s1.Digest()
	require.NoError(t, err)
	d2, err := s2.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
