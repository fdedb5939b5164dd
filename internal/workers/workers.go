package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// OverrideEnv is the environment variable that pins the worker count.
const OverrideEnv = "ENCODE_THREADS"

// Count sizes a pool at perCPU workers per usable CPU, at least one and at
// most limit (0 means no cap). GOMAXPROCS follows the container CPU quota.
// A positive ENCODE_THREADS pins the count, still capped by limit.
func Count(perCPU float64, limit int) int {
	n := int(float64(runtime.GOMAXPROCS(0)) * perCPU)
	if v, err := strconv.Atoi(os.Getenv(OverrideEnv)); err == nil && v > 0 {
		n = v
	}
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForCPU sizes a pool of encoder processes, one per CPU.
func ForCPU(limit int) int {
	return Count(1, limit)
}

// Each calls fn for every index in [0, n) using at most workers goroutines.
// The first error cancels the context handed to the remaining calls and is
// returned once all started calls finish.
func Each(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		failed   atomic.Bool
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if failed.Load() {
					continue
				}
				if err := fn(ctx, i); err != nil {
					once.Do(func() {
						firstErr = err
						failed.Store(true)
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
