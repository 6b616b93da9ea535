package tiff

import (
	"runtime"
	"sync"
)

// parallelForWithError runs fn(i) for i in [0, n) on up to workers goroutines
// and returns the first error. workers <= 0 means GOMAXPROCS.
func parallelForWithError(n, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n <= 1 || workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}(start, end)
	}
	wg.Wait()
	return firstErr
}
