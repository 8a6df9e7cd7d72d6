package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simtools/packsum/internal/layout"
	"github.com/simtools/packsum/internal/logging"
	"github.com/simtools/packsum/internal/scan"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Exit codes. Distinguishable per the boundary contract; the values
// live only here.
const (
	exitOK         = 0
	exitPartial    = 1 // Manifest written, but with anomalies or hash failures
	exitConfig     = 2 // Bad override root or config file
	exitNoInstall  = 3 // No package installation found
	exitNothing    = 4 // Roots resolved but nothing to hash
	exitWriteError = 5 // Manifest could not be written
)

var (
	output   string
	roots    []string
	cfgFile  string
	workers  int
	excludes []string
	quiet    bool
)

func newRootCmd() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "packsum",
		Short: "Content-integrity manifests for flight simulator package installations",
		Long: `packsum locates the simulator's installed package roots, hashes every
file beneath them with XXH3-128 across all available CPUs, and writes a
deterministic manifest of "<digest> <size> <path>" lines. Two machines
can diff their manifests with any text tool to compare installations
file by file, with no network or reference server involved.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Path for the manifest file (overwritten if it exists)")
	rootCmd.Flags().StringArrayVarP(&roots, "root", "r", nil, "Package root to scan instead of probing installations (multiple allowed)")
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Explicit UserCfg.opt path (ignored when --root is given)")
	rootCmd.Flags().IntVarP(&workers, "workers", "T", 0, "Number of hash workers (0 means the logical CPU count)")
	rootCmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Exclude patterns, relative to each root (multiple allowed)")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	if err := rootCmd.MarkFlagRequired("output"); err != nil {
		return nil, fmt.Errorf("mark output flag required: %w", err)
	}

	return rootCmd, nil
}

func main() {
	rootCmd, err := newRootCmd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// errPartial marks a run that completed and wrote its manifest but hit
// anomalies or per-file failures along the way.
var errPartial = errors.New("completed with anomalies")

func run(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger(quiet)

	summary, err := scan.Run(context.Background(), scan.Options{
		Output:     output,
		Roots:      roots,
		ConfigFile: cfgFile,
		Workers:    workers,
		Excludes:   excludes,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if summary.Anomalies > 0 || summary.Failures > 0 {
		return fmt.Errorf("%w: %d anomalies, %d hash failures (manifest written to %s)",
			errPartial, summary.Anomalies, summary.Failures, output)
	}

	log.Info("Manifest written to %s", output)
	return nil
}

func exitCode(err error) int {
	var cfgErr *layout.ConfigError
	var writeErr *scan.WriteError
	switch {
	case errors.Is(err, errPartial):
		return exitPartial
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.Is(err, layout.ErrNoInstallation):
		return exitNoInstall
	case errors.Is(err, scan.ErrNothingToHash):
		return exitNothing
	case errors.As(err, &writeErr):
		return exitWriteError
	default:
		return exitConfig
	}
}
