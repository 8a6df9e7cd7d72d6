// Package engine distributes per-file hashing across a fixed-size
// worker pool. Workers complete in arbitrary order; ordering is
// restored downstream when the manifest is assembled.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/simtools/packsum/internal/digest"
	"github.com/simtools/packsum/internal/walker"
)

// Result is the outcome of hashing one entry: either a digest plus the
// byte count actually hashed, or an error. Exactly one Result exists
// per submitted entry; failed entries are never retried.
type Result struct {
	Entry  walker.Entry
	Digest digest.Digest
	Size   int64 // Bytes actually read and hashed
	Err    error
}

// SizeChangedError reports a file whose size at hash time differed
// from its size at enumeration time. The file is failed rather than
// recorded with a digest of a truncated or extended stream.
type SizeChangedError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeChangedError) Error() string {
	return fmt.Sprintf("size changed during run: %s (enumerated %d bytes, read %d)",
		e.Path, e.Expected, e.Actual)
}

// Pool manages concurrent hash workers.
type Pool struct {
	workers int
}

// NewPool creates a worker pool. workers <= 0 selects the number of
// logical CPUs.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run hashes every entry and returns one Result per entry, in
// completion order. Each worker streams one file to completion before
// taking the next; a per-file failure never affects other in-flight or
// pending work.
func (p *Pool) Run(ctx context.Context, entries []walker.Entry) []Result {
	jobs := make(chan walker.Entry, len(entries))
	results := make(chan Result, len(entries))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	// Send jobs
	for _, entry := range entries {
		jobs <- entry
	}
	close(jobs)

	// Wait for workers to finish
	wg.Wait()
	close(results)

	// Collect results
	allResults := make([]Result, 0, len(entries))
	for result := range results {
		allResults = append(allResults, result)
	}

	return allResults
}

// worker processes jobs
func (p *Pool) worker(ctx context.Context, jobs <-chan walker.Entry, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for entry := range jobs {
		select {
		case <-ctx.Done():
			results <- Result{Entry: entry, Err: ctx.Err()}
			continue
		default:
		}

		results <- p.hash(entry)
	}
}

// hash streams one file through the digest.
func (p *Pool) hash(entry walker.Entry) Result {
	d, n, err := digest.File(entry.Path)
	if err != nil {
		return Result{Entry: entry, Size: n, Err: err}
	}
	if n != entry.Size {
		return Result{Entry: entry, Size: n, Err: &SizeChangedError{
			Path:     entry.Path,
			Expected: entry.Size,
			Actual:   n,
		}}
	}
	return Result{Entry: entry, Digest: d, Size: n}
}
