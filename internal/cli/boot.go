package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/core"
	"github.com/loomworks/loom/internal/registry"
)

// BootOptions holds flags for the boot command.
type BootOptions struct {
	*RootOptions
	CollectAll bool
}

// BootReport summarizes a successfully booted core.
type BootReport struct {
	BuildRoot string `json:"build_root"`
	WorkDir   string `json:"work_dir"`
	Pool      string `json:"pool"`
	PoolSize  int    `json:"pool_size"`
	Files     int    `json:"files"`
	Manifests int    `json:"manifests"`
}

func (r BootReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "build root: %s\n", r.BuildRoot)
	fmt.Fprintf(&b, "work dir:   %s\n", r.WorkDir)
	fmt.Fprintf(&b, "pool:       %s (size %d)\n", r.Pool, r.PoolSize)
	fmt.Fprintf(&b, "files:      %d\n", r.Files)
	fmt.Fprintf(&b, "manifests:  %d", r.Manifests)
	return b.String()
}

// NewBootCommand creates the boot command.
func NewBootCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BootOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "boot <config-dir>",
		Short: "Construct a core and report its state",
		Long: `Load CUE configuration, construct the engine core over the configured
build root, and report the resulting pool, filesystem, and snapshot store
state.

Example:
  loom boot ./myproject
  loom boot ./myproject --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "report all config errors instead of stopping at the first")

	return cmd
}

func runBoot(cmd *cobra.Command, opts *BootOptions, configDir string) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, cfg, err := openCore(configDir, opts.CollectAll, 0)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			slog.Error("error closing core", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := c.VFS.Scan(ctx, ".")
	if err != nil {
		return WrapExitError(ExitFailure, "failed to scan build root", err)
	}
	manifests, err := c.Snapshots.ManifestCount(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read snapshot index", err)
	}

	report := BootReport{
		BuildRoot: cfg.BuildRoot,
		WorkDir:   cfg.WorkDir,
		Files:     len(files),
		Manifests: manifests,
	}
	guard := c.Pool()
	report.Pool = guard.Pool().Name()
	report.PoolSize = guard.Pool().Size()
	guard.Release()

	return out.Success(report)
}

// configureLogging installs the default slog handler per the verbose flag.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openCore loads configuration from configDir and constructs a core over it.
// poolSize overrides the configured pool size when > 0. All failures come
// back as *ExitError.
func openCore(configDir string, collectAll bool, poolSize int) (*core.Core, *config.Config, error) {
	mode := config.LoadModeFailFast
	if collectAll {
		mode = config.LoadModeCollectAll
	}

	cfg, errs := config.Load(configDir, mode)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config",
			fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}

	if poolSize > 0 {
		cfg.PoolSize = poolSize
	}

	// The CLI boots a bare core: task and type registration belongs to the
	// embedding build frontend, not to this inspection surface.
	tasks := registry.NewTasks()
	tasks.Seal()
	types := registry.NewTypes()
	types.Seal()

	c, err := core.New(tasks, types, cfg.BuildRoot, cfg.Ignore, cfg.WorkDir,
		core.Options{PoolSize: cfg.PoolSize})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to construct core", err)
	}
	return c, cfg, nil
}
