package dreplay

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dseqreplay CLI.
// Diagnostic logs are written to the command's error stream.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dseqreplay",
		Short: "Replay stream arrival scenarios through the ordering engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCENARIO.yaml...",
		Short: "Replay one or more scenario files and print their traces",
		Long: `Replay each scenario file through a fresh engine
and print every admission decision, NACK list, and wake.

Examples:
  dseqreplay run testdata/scenarios/gap.yaml
  dseqreplay run --format json a.yaml b.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

			for _, path := range args {
				s, err := Load(path)
				if err != nil {
					return err
				}
				log.Debug("Loaded scenario", "path", path, "name", s.Name, "steps", len(s.Steps))

				tr := Run(log, s)
				if err := writeTrace(cmd.OutOrStdout(), opts.Format, tr); err != nil {
					return fmt.Errorf("failed to write trace for %s: %w", path, err)
				}
			}
			return nil
		},
	}
}

func writeTrace(w io.Writer, format string, tr Trace) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tr)
	}
	return WriteText(w, tr)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
