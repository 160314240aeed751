package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	ConfigDir string
	Dir       string
}

// ScanReport lists the files visible through the VFS ignore rules.
type ScanReport struct {
	Files []string `json:"files"`
}

func (r ScanReport) String() string {
	if len(r.Files) == 0 {
		return "(no files)"
	}
	return strings.Join(r.Files, "\n")
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List build root files through the ignore rules",
		Long: `Walk the configured build root and list every file the engine can see,
applying the configured ignore patterns.

Example:
  loom scan --config ./myproject
  loom scan --config ./myproject --dir src`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config", "", "config directory (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "subdirectory to scan, relative to the build root")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, _, err := openCore(opts.ConfigDir, false, 0)
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

	files, err := c.VFS.Scan(ctx, opts.Dir)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to scan build root", err)
	}

	return out.Success(ScanReport{Files: files})
}
