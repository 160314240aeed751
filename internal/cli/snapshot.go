package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	ConfigDir string
}

// SnapshotReport summarizes a captured snapshot.
type SnapshotReport struct {
	Digest  string `json:"digest"`
	Entries int    `json:"entries"`
}

func (r SnapshotReport) String() string {
	return fmt.Sprintf("captured %d file(s)\ndigest: %s", r.Entries, r.Digest)
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot <path>...",
		Short: "Capture files into the snapshot store",
		Long: `Capture the given build-root-relative paths as a content-addressed
snapshot. Recapturing unchanged content yields the identical digest and
writes nothing new.

Example:
  loom snapshot --config ./myproject src/main.go src/lib.go`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config", "", "config directory (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runSnapshot(cmd *cobra.Command, opts *SnapshotOptions, paths []string) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, cfg, err := openCore(opts.ConfigDir, false, 0)
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

	out.VerboseLog("capturing %d path(s) under %s", len(paths), cfg.BuildRoot)
	snap, err := c.Snapshots.Capture(ctx, cfg.BuildRoot, paths)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to capture snapshot", err)
	}

	return out.Success(SnapshotReport{Digest: snap.Digest, Entries: len(snap.Entries)})
}
