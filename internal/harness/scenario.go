package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a seeded build root plus a
// sequence of engine operations to drive against a real Core.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken is an optional fixed run token for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// PoolSize sets the engine pool parallelism; 0 means one per CPU.
	PoolSize int `yaml:"pool_size,omitempty"`

	// Ignore holds VFS ignore patterns for the scenario's build root.
	Ignore []string `yaml:"ignore,omitempty"`

	// Files seeds the build root before any step runs.
	Files []FileSpec `yaml:"files,omitempty"`

	// Steps is the operation sequence. Each step records one trace event.
	Steps []Step `yaml:"steps"`
}

// FileSpec is one file seeded into the scenario's build root.
type FileSpec struct {
	// Path is slash-separated and relative to the build root.
	Path string `yaml:"path"`

	// Content is the file's full contents.
	Content string `yaml:"content"`
}

// Step is a single engine operation. Exactly one of the fields must be set.
type Step struct {
	// Snapshot captures the named paths into the snapshot store.
	Snapshot *SnapshotStep `yaml:"snapshot,omitempty"`

	// Dispatch submits a unit of work through the current pool.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// PostFork runs the post-fork resource replacement protocol.
	PostFork *PostForkStep `yaml:"post_fork,omitempty"`

	// Scan lists the build root through the VFS ignore rules.
	Scan *ScanStep `yaml:"scan,omitempty"`
}

// SnapshotStep captures files relative to the build root.
type SnapshotStep struct {
	Paths []string `yaml:"paths"`
}

// DispatchStep runs a labeled job on the engine pool. The job digests its
// own label, so the trace proves the submitted closure actually executed.
type DispatchStep struct {
	Label string `yaml:"label"`
}

// PostForkStep has no parameters; presence triggers the protocol.
type PostForkStep struct{}

// ScanStep has no parameters; presence scans the build root.
type ScanStep struct{}

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file is missing, malformed, contains unknown fields (typos), or fails
// validation.
func LoadScenario(scenarioPath string) (*Scenario, error) {
	data, err := os.ReadFile(scenarioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and step shape.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Files))
	for i, f := range s.Files {
		if f.Path == "" {
			return fmt.Errorf("files[%d]: path is required", i)
		}
		if path.IsAbs(f.Path) || strings.Contains(f.Path, "..") {
			return fmt.Errorf("files[%d]: path must be relative and stay inside the build root: %s", i, f.Path)
		}
		if seen[f.Path] {
			return fmt.Errorf("files[%d]: duplicate path %s", i, f.Path)
		}
		seen[f.Path] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step, files map[string]bool) error {
	set := 0
	if step.Snapshot != nil {
		set++
	}
	if step.Dispatch != nil {
		set++
	}
	if step.PostFork != nil {
		set++
	}
	if step.Scan != nil {
		set++
	}
	if set == 0 {
		return fmt.Errorf("steps[%d]: one of snapshot, dispatch, post_fork, scan is required", index)
	}
	if set > 1 {
		return fmt.Errorf("steps[%d]: exactly one step type allowed, got %d", index, set)
	}

	if step.Snapshot != nil {
		if len(step.Snapshot.Paths) == 0 {
			return fmt.Errorf("steps[%d]: snapshot paths list must be non-empty", index)
		}
		for _, p := range step.Snapshot.Paths {
			if !files[p] {
				return fmt.Errorf("steps[%d]: snapshot path %s is not a seeded file", index, p)
			}
		}
	}
	if step.Dispatch != nil && step.Dispatch.Label == "" {
		return fmt.Errorf("steps[%d]: dispatch label is required", index)
	}
	return nil
}
