package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/loomworks/loom/internal/digest"
)

// TraceSnapshot is the golden-file payload for a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to the map shape canonical JSON
// accepts. Zero-valued fields are omitted so absent data never serializes.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if len(event.Paths) > 0 {
			paths := make([]any, len(event.Paths))
			for j, p := range event.Paths {
				paths[j] = p
			}
			eventMap["paths"] = paths
		}
		if event.Digest != "" {
			eventMap["digest"] = event.Digest
		}
		if event.Entries > 0 {
			eventMap["entries"] = event.Entries
		}
		if event.Label != "" {
			eventMap["label"] = event.Label
		}
		if event.Generation > 0 {
			eventMap["generation"] = event.Generation
		}
		if len(event.Files) > 0 {
			files := make([]any, len(event.Files))
			for j, f := range event.Files {
				files[j] = f
			}
			eventMap["files"] = files
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.RunToken != "" {
		result["run_token"] = s.RunToken
	}
	return result
}

// Digest returns the content-addressed identity of this trace.
func (s *TraceSnapshot) Digest() (string, error) {
	return digest.Trace(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
//
// Returns an error if the run itself fails; a trace mismatch fails t via
// goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		RunToken:     scenario.RunToken,
		Trace:        result.Trace,
	}
	return assertGolden(t, scenario.Name, &snapshot)
}

// AssertGolden compares an already-obtained result against the golden file
// for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	return assertGolden(t, scenarioName, &snapshot)
}

func assertGolden(t *testing.T, name string, snapshot *TraceSnapshot) error {
	t.Helper()

	traceJSON, err := digest.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
