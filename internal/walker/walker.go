package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind classifies an enumerated entry.
type Kind string

const (
	// KindFile is an ordinary regular file, eligible for hashing.
	KindFile Kind = ""

	// KindSymlink is a symbolic link (or reparse-style link). Links are
	// never followed and never hashed, which also rules out traversal
	// cycles without visited-set tracking.
	KindSymlink Kind = "symlink"

	// KindHardLink marks a regular file whose link count is greater
	// than one. The file is still hashed; the flag is advisory.
	KindHardLink Kind = "hard-link-suspected"

	// KindIrregular is a non-regular, non-link object (device, socket,
	// fifo). Excluded from hashing.
	KindIrregular Kind = "irregular"

	// KindUnreadable is an entry whose metadata could not be read, or a
	// directory that could not be opened. The subtree below an
	// unreadable directory is skipped; traversal continues with
	// siblings.
	KindUnreadable Kind = "unreadable"
)

// Entry represents one discovered filesystem object.
type Entry struct {
	Path   string // Absolute path
	Size   int64  // Size at enumeration time
	Kind   Kind
	Detail string // Error text for unreadable entries
}

// Hashable reports whether the entry should be submitted for hashing.
func (e Entry) Hashable() bool {
	return e.Kind == KindFile || e.Kind == KindHardLink
}

// Walker enumerates regular files under a single root with exclude
// pattern support. A Walker is stateless between calls; invoking Walk
// again re-walks from scratch.
type Walker struct {
	root     string
	excludes []string
}

// NewWalker creates a new file walker rooted at root.
func NewWalker(root string, excludes []string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	// Validate root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	return &Walker{
		root:     absRoot,
		excludes: excludes,
	}, nil
}

// Walk traverses the tree and returns every reachable entry exactly
// once. Anomalous objects come back with a non-empty Kind; they are
// part of the result set so that nothing discovered is silently
// dropped. A failure to read one directory never aborts the walk.
func (w *Walker) Walk() ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		// Excluded objects produce no entries at all: neither manifest
		// candidates nor anomaly records.
		if err != nil {
			// Unreadable directory or stat failure. Record it and keep
			// going with siblings.
			if !w.excluded(path) {
				entries = append(entries, Entry{
					Path:   path,
					Kind:   KindUnreadable,
					Detail: err.Error(),
				})
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !w.excluded(path) {
				entries = append(entries, Entry{Path: path, Kind: KindSymlink})
			}
			return nil
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		if w.excluded(path) {
			return nil
		}

		if !d.Type().IsRegular() {
			entries = append(entries, Entry{Path: path, Kind: KindIrregular})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			entries = append(entries, Entry{
				Path:   path,
				Kind:   KindUnreadable,
				Detail: err.Error(),
			})
			return nil
		}

		kind := KindFile
		if linkCount(path) > 1 {
			kind = KindHardLink
		}

		entries = append(entries, Entry{
			Path: path,
			Size: info.Size(),
			Kind: kind,
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return entries, nil
}

// excluded checks an absolute path against the exclude patterns using
// its root-relative forward-slash form.
func (w *Walker) excluded(path string) bool {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.isExcluded(filepath.ToSlash(relPath))
}

// isExcluded checks if a path matches any exclude pattern
func (w *Walker) isExcluded(path string) bool {
	for _, pattern := range w.excludes {
		// Handle directory patterns (ending with /)
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			if matched, _ := doublestar.Match(dirPattern, path); matched {
				return true
			}
			// Also check if any parent directory matches
			parts := strings.Split(path, "/")
			for i := 1; i <= len(parts); i++ {
				subPath := strings.Join(parts[:i], "/")
				if matched, _ := doublestar.Match(dirPattern, subPath); matched {
					return true
				}
			}
		} else {
			// Regular file pattern
			if matched, _ := doublestar.Match(pattern, path); matched {
				return true
			}
		}
	}
	return false
}
