package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simtools/packsum/internal/digest"
	"github.com/simtools/packsum/internal/walker"
)

func makeEntries(t *testing.T, n int) []walker.Entry {
	t.Helper()
	tmpDir := t.TempDir()
	entries := make([]walker.Entry, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(tmpDir, fmt.Sprintf("file%03d.dat", i))
		content := []byte(fmt.Sprintf("content of file %d", i))
		require.NoError(t, os.WriteFile(path, content, 0644))
		entries = append(entries, walker.Entry{Path: path, Size: int64(len(content))})
	}
	return entries
}

func TestRunOneResultPerEntry(t *testing.T) {
	entries := makeEntries(t, 50)

	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			results := NewPool(workers).Run(context.Background(), entries)
			require.Len(t, results, len(entries))

			seen := make(map[string]Result)
			for _, r := range results {
				_, dup := seen[r.Entry.Path]
				require.False(t, dup, "entry hashed twice: %s", r.Entry.Path)
				seen[r.Entry.Path] = r
			}
			for _, e := range entries {
				r, ok := seen[e.Path]
				require.True(t, ok, "entry skipped: %s", e.Path)
				assert.NoError(t, r.Err)
				assert.Equal(t, e.Size, r.Size)
			}
		})
	}
}

func TestRunWorkerCountDoesNotChangeResults(t *testing.T) {
	entries := makeEntries(t, 20)

	digests := func(results []Result) map[string]string {
		m := make(map[string]string)
		for _, r := range results {
			require.NoError(t, r.Err)
			m[r.Entry.Path] = r.Digest.String()
		}
		return m
	}

	single := digests(NewPool(1).Run(context.Background(), entries))
	parallel := digests(NewPool(8).Run(context.Background(), entries))
	assert.Equal(t, single, parallel)
}

func TestRunFailureContainment(t *testing.T) {
	entries := makeEntries(t, 10)
	// Entry 5 points at a file that no longer exists
	require.NoError(t, os.Remove(entries[5].Path))

	results := NewPool(4).Run(context.Background(), entries)
	require.Len(t, results, len(entries))

	var failed, ok int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, entries[5].Path, r.Entry.Path)
		} else {
			ok++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 9, ok)
}

func TestRunSizeChanged(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "drifted.dat")
	require.NoError(t, os.WriteFile(path, []byte("now much longer than stat said"), 0644))

	// Enumeration-time size disagrees with what will be read
	entries := []walker.Entry{{Path: path, Size: 5}}

	results := NewPool(1).Run(context.Background(), entries)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)

	var sizeErr *SizeChangedError
	require.ErrorAs(t, results[0].Err, &sizeErr)
	assert.Equal(t, int64(5), sizeErr.Expected)
	assert.Equal(t, int64(30), sizeErr.Actual)
}

func TestRunEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	results := NewPool(2).Run(context.Background(), []walker.Entry{{Path: path, Size: 0}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, digest.EmptyHex, results[0].Digest.String())
	assert.Equal(t, int64(0), results[0].Size)
}

func TestNewPoolDefaults(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewPool(0).Workers())
	assert.Equal(t, runtime.NumCPU(), NewPool(-1).Workers())
	assert.Equal(t, 3, NewPool(3).Workers())
}
