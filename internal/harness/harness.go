package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/loomworks/loom/internal/core"
	"github.com/loomworks/loom/internal/digest"
	"github.com/loomworks/loom/internal/registry"
	"github.com/loomworks/loom/internal/testutil"
)

// Harness executes one scenario against a real Core.
type Harness struct {
	core   *core.Core
	clock  *testutil.DeterministicClock
	tokens *testutil.FixedTokenGenerator
	logger *slog.Logger

	// generation counts pool replacements; the initial pool is generation 1.
	generation int
}

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh build root and work directory, both
// removed when the run finishes; the trace is the only durable output. Step
// failures are recorded in the result and abort the remaining steps; only
// environment failures return a non-nil error.
func Run(scenario *Scenario) (*Result, error) {
	buildRoot, err := os.MkdirTemp("", "loom-harness-root-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create build root: %w", err)
	}
	defer os.RemoveAll(buildRoot)

	workDir, err := os.MkdirTemp("", "loom-harness-work-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	for _, f := range scenario.Files {
		dst := filepath.Join(buildRoot, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", f.Path, err)
		}
		if err := os.WriteFile(dst, []byte(f.Content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", f.Path, err)
		}
	}

	tasks := registry.NewTasks()
	tasks.Seal()
	types := registry.NewTypes()
	types.Seal()

	c, err := core.New(tasks, types, buildRoot, scenario.Ignore, workDir,
		core.Options{PoolSize: scenario.PoolSize})
	if err != nil {
		return nil, fmt.Errorf("failed to construct core: %w", err)
	}
	defer c.Close()

	h := &Harness{
		core:       c,
		clock:      testutil.NewDeterministicClock(),
		tokens:     testutil.NewFixedTokenGenerator(scenario.RunToken),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		generation: 1,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, buildRoot, &step, result); err != nil {
			result.AddError(fmt.Sprintf("step %d: %v", i, err))
			break
		}
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, buildRoot string, step *Step, result *Result) error {
	switch {
	case step.Snapshot != nil:
		return h.executeSnapshot(ctx, buildRoot, step.Snapshot, result)
	case step.Dispatch != nil:
		return h.executeDispatch(ctx, step.Dispatch, result)
	case step.PostFork != nil:
		return h.executePostFork(result)
	case step.Scan != nil:
		return h.executeScan(ctx, result)
	default:
		return fmt.Errorf("empty step") // unreachable after validation
	}
}

// executeSnapshot captures the step's paths and traces the manifest digest.
func (h *Harness) executeSnapshot(ctx context.Context, buildRoot string, step *SnapshotStep, result *Result) error {
	seq := h.clock.Next()

	snap, err := h.core.Snapshots.Capture(ctx, buildRoot, step.Paths)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	paths := make([]string, len(step.Paths))
	copy(paths, step.Paths)
	sort.Strings(paths)

	result.Trace = append(result.Trace, TraceEvent{
		Type:    "snapshot",
		Seq:     seq,
		Paths:   paths,
		Digest:  snap.Digest,
		Entries: len(snap.Entries),
	})

	h.logger.Info("snapshot captured", "seq", seq, "digest", snap.Digest)
	return nil
}

// executeDispatch submits a job through a derived Context's pool guard. The
// job digests the run token and its label, so the traced digest proves the
// closure ran on the pool rather than being manufactured by the harness.
func (h *Harness) executeDispatch(ctx context.Context, step *DispatchStep, result *Result) error {
	seq := h.clock.Next()

	id := h.core.Graph.Ensure("job/" + step.Label)
	factory := core.NewContext(id, h.core)

	// Acquire through the factory as the executor would; the guard is
	// released before waiting so a queued post_fork cannot deadlock on it.
	g := factory.Pool()
	out := make(chan string, 1)
	err := g.Pool().Submit(ctx, func() {
		out <- digest.Blob([]byte(h.tokens.Generate() + "/" + step.Label))
	})
	g.Release()
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", step.Label, err)
	}
	jobDigest := <-out

	result.Trace = append(result.Trace, TraceEvent{
		Type:       "dispatch",
		Seq:        seq,
		Label:      step.Label,
		Digest:     jobDigest,
		Generation: h.generation,
	})

	h.logger.Info("job dispatched", "seq", seq, "label", step.Label, "generation", h.generation)
	return nil
}

// executePostFork runs the replacement protocol and bumps the generation.
func (h *Harness) executePostFork(result *Result) error {
	seq := h.clock.Next()

	if err := h.core.PostFork(); err != nil {
		return fmt.Errorf("post_fork: %w", err)
	}
	h.generation++

	result.Trace = append(result.Trace, TraceEvent{
		Type:       "post_fork",
		Seq:        seq,
		Generation: h.generation,
	})

	h.logger.Info("post-fork completed", "seq", seq, "generation", h.generation)
	return nil
}

// executeScan lists the build root through the VFS ignore rules.
func (h *Harness) executeScan(ctx context.Context, result *Result) error {
	seq := h.clock.Next()

	files, err := h.core.VFS.Scan(ctx, ".")
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	result.Trace = append(result.Trace, TraceEvent{
		Type:  "scan",
		Seq:   seq,
		Files: files,
	})

	h.logger.Info("scan completed", "seq", seq, "files", len(files))
	return nil
}
