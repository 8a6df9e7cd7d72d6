// Package manifest turns the unordered result set of a run into the
// deterministic, diff-friendly text manifest, plus a separate report
// of anomalies and failures that never interleaves with it.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/simtools/packsum/internal/engine"
	"github.com/simtools/packsum/internal/walker"
)

// ReportEntry is one anomaly or failure: a discovered object that is
// intentionally excluded from the manifest (symlink, unreadable) or
// whose hashing failed.
type ReportEntry struct {
	Path   string
	Kind   string
	Detail string
}

// Manifest holds the successful results of a run sorted into their
// final order, together with the anomaly report. Every discovered
// entry lands in exactly one of the two sets.
type Manifest struct {
	successes []engine.Result
	report    []ReportEntry
}

// Build partitions hash results and enumeration anomalies into a
// manifest. Successes are sorted by path using plain byte-wise string
// comparison, so two runs over identical content order identically
// regardless of locale or scheduling.
func Build(results []engine.Result, anomalies []walker.Entry) *Manifest {
	m := &Manifest{}

	for _, r := range results {
		if r.Err != nil {
			m.report = append(m.report, ReportEntry{
				Path:   r.Entry.Path,
				Kind:   "hash-failed",
				Detail: r.Err.Error(),
			})
			continue
		}
		m.successes = append(m.successes, r)
	}

	for _, a := range anomalies {
		m.report = append(m.report, ReportEntry{
			Path:   a.Path,
			Kind:   string(a.Kind),
			Detail: a.Detail,
		})
	}

	sort.Slice(m.successes, func(i, j int) bool {
		return m.successes[i].Entry.Path < m.successes[j].Entry.Path
	})
	sort.Slice(m.report, func(i, j int) bool {
		return m.report[i].Path < m.report[j].Path
	})

	return m
}

// Files returns the number of successfully hashed files.
func (m *Manifest) Files() int {
	return len(m.successes)
}

// TotalBytes returns the byte count across all hashed files.
func (m *Manifest) TotalBytes() int64 {
	var total int64
	for _, r := range m.successes {
		total += r.Size
	}
	return total
}

// Report returns the anomaly and failure entries, sorted by path.
func (m *Manifest) Report() []ReportEntry {
	return m.report
}

// Render writes the manifest lines to w: one line per file,
// `<32-hex digest> <decimal size> <path>`, single space separated,
// path last, trailing newline on every line including the last. The
// field order is a format contract; readers split on the first two
// fields so paths containing spaces stay unambiguous.
func (m *Manifest) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, r := range m.successes {
		if _, err := fmt.Fprintf(bw, "%s %d %s\n", r.Digest, r.Size, r.Entry.Path); err != nil {
			return fmt.Errorf("render manifest: %w", err)
		}
	}
	return bw.Flush()
}

// Write renders the manifest to dest atomically: the content goes to a
// temporary file in the destination directory and is renamed over dest
// only once complete. An existing file at dest is overwritten without
// prompting; an interrupted run leaves dest untouched.
func (m *Manifest) Write(dest string) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".packsum-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := m.Render(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	// CreateTemp makes the file 0600; the manifest is a shareable
	// artifact and gets normal file permissions.
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	return nil
}
