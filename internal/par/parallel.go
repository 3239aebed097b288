// Package par provides deterministic data-parallel loops for the
// per-step kernels.
package par

import "sync"

// For executes fn over [0, n) split into contiguous chunks across
// workers goroutines. Chunks are fixed by n and workers alone, so the
// same inputs always produce the same partition; combined with
// worker-local accumulation buffers this keeps reductions
// deterministic.
func For(n, workers, minChunk int, fn func(worker, start, end int)) {
	if workers < 1 {
		workers = 1
	}
	if n <= minChunk || workers == 1 {
		fn(0, 0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		go func(w, s, e int) {
			defer wg.Done()
			fn(w, s, e)
		}(w, start, end)
	}
	wg.Wait()
}
