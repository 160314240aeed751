package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden scenarios live in testdata/scenarios; each compares its trace
// against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update

func runGoldenScenario(t *testing.T, name string) {
	t.Helper()

	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	require.Equal(t, name, scenario.Name, "scenario name must match its file name")

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestGolden_CaptureDispatchFork(t *testing.T) {
	runGoldenScenario(t, "capture-dispatch-fork")
}

func TestGolden_IgnoredPaths(t *testing.T) {
	runGoldenScenario(t, "ignored-paths")
}
