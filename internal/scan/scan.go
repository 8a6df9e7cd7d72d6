// Package scan wires the full pipeline: resolve package roots,
// enumerate files under every root, hash them across the worker pool,
// assemble the manifest, and write it to the destination.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simtools/packsum/internal/engine"
	"github.com/simtools/packsum/internal/layout"
	"github.com/simtools/packsum/internal/logging"
	"github.com/simtools/packsum/internal/manifest"
	"github.com/simtools/packsum/internal/walker"
)

// ErrNothingToHash is returned when roots resolved but no file was
// discovered under any of them. The run writes no manifest in that
// case: an empty manifest is indistinguishable from a clean comparison
// of an empty tree, and the user must not mistake one for the other.
var ErrNothingToHash = errors.New("no files found under the resolved package roots")

// WriteError is a failure to write the destination manifest. All
// hashing work had already completed when it occurred.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write manifest %s: %v", e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Options configures a run.
type Options struct {
	Output     string         // Manifest destination path
	Roots      []string       // Explicit package root overrides
	ConfigFile string         // Explicit UserCfg.opt path
	Workers    int            // 0 selects the logical CPU count
	Excludes   []string       // doublestar patterns, relative to each root
	Probes     []layout.Probe // nil means the default installation layouts
	Logger     *logging.Logger
}

// Summary is the run-level outcome.
type Summary struct {
	Roots     []layout.Root
	Files     int   // Successfully hashed files in the manifest
	Bytes     int64 // Total bytes hashed
	Anomalies int   // Symlinks, irregular and unreadable entries
	Failures  int   // Per-file hash failures
	HardLinks int   // Hashed files flagged hard-link-suspected
	Elapsed   time.Duration
}

// Run performs one complete scan. Per-file and per-subtree problems
// are contained and reported in the summary; the returned error is
// non-nil only for the fatal cases (configuration, resolution, nothing
// to hash, manifest write).
func Run(ctx context.Context, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger(true)
	}
	start := time.Now()

	roots, err := layout.Resolve(layout.Options{
		Overrides:  opts.Roots,
		ConfigFile: opts.ConfigFile,
		Probes:     opts.Probes,
	})
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		log.Info("Scanning package root: %s (%s)", root.Path, root.Source)
	}

	entries, err := enumerate(roots, opts.Excludes)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNothingToHash
	}

	var hashable, anomalies []walker.Entry
	var hardLinks int
	for _, entry := range entries {
		if !entry.Hashable() {
			anomalies = append(anomalies, entry)
			continue
		}
		if entry.Kind == walker.KindHardLink {
			hardLinks++
			log.Warn("hard link suspected: %s", entry.Path)
		}
		hashable = append(hashable, entry)
	}
	pool := engine.NewPool(opts.Workers)
	log.Info("Hashing %d files with %d workers", len(hashable), pool.Workers())
	results := pool.Run(ctx, hashable)

	m := manifest.Build(results, anomalies)
	if err := m.Write(opts.Output); err != nil {
		return nil, &WriteError{Dest: opts.Output, Err: err}
	}

	summary := &Summary{
		Roots:     roots,
		Files:     m.Files(),
		Bytes:     m.TotalBytes(),
		Anomalies: len(anomalies),
		Failures:  len(results) - m.Files(),
		HardLinks: hardLinks,
		Elapsed:   time.Since(start),
	}

	for _, r := range m.Report() {
		if r.Detail != "" {
			log.Error("%s: %s (%s)", r.Kind, r.Path, r.Detail)
		} else {
			log.Error("%s: %s", r.Kind, r.Path)
		}
	}
	log.PrintSummary(summary.Files, summary.Bytes, summary.Anomalies, summary.Failures, summary.Elapsed)

	return summary, nil
}

// enumerate walks every root in order and concatenates the entries,
// deduplicating by resolved path so overlapping roots never yield the
// same file twice.
func enumerate(roots []layout.Root, excludes []string) ([]walker.Entry, error) {
	var entries []walker.Entry
	seen := make(map[string]struct{})

	for _, root := range roots {
		w, err := walker.NewWalker(root.Path, excludes)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", root.Path, err)
		}
		rootEntries, err := w.Walk()
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", root.Path, err)
		}
		for _, entry := range rootEntries {
			if _, dup := seen[entry.Path]; dup {
				continue
			}
			seen[entry.Path] = struct{}{}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
