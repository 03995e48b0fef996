package stepper

import (
	"sync"

	"github.com/san-kum/stepsim/internal/body"
)

// Below this many bodies the goroutine overhead outweighs the fan-out.
const minChunk = 64

// forEachBody runs fn once per body, split across up to workers
// goroutines in contiguous chunks. fn must not touch any body other
// than the one it was given.
func forEachBody(bodies []*body.Body, workers int, fn func(*body.Body)) {
	n := len(bodies)
	if n == 0 {
		return
	}
	if n <= minChunk || workers <= 1 {
		for _, b := range bodies {
			fn(b)
		}
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		go func(chunk []*body.Body) {
			defer wg.Done()
			for _, b := range chunk {
				fn(b)
			}
		}(bodies[start:end])
	}
	wg.Wait()
}
