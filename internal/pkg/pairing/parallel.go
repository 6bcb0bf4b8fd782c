package pairing

import (
	"runtime"
	"sort"
	"sync"
)

// FindBestParallel is FindBest with the A rows chunked across workers. Each
// worker keeps its own bounded heap; the survivors are merged and re-ranked,
// so the output is identical to the sequential sweep. workers <= 0 uses
// runtime.NumCPU().
func FindBestParallel(coordsA, coordsB []float64, targetLat, targetLon float64, topN, workers int) []Result {
	numA := len(coordsA) / 2
	numB := len(coordsB) / 2

	total := Count(numA, numB)
	if topN <= 0 || total == 0 {
		return []Result{}
	}
	n := topN
	if uint64(n) > total {
		n = int(total)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > numA {
		workers = numA
	}
	if workers <= 1 {
		return FindBest(coordsA, coordsB, targetLat, targetLon, topN)
	}

	chunk := (numA + workers - 1) / workers
	candidates := make([][]Result, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := from + chunk
		if to > numA {
			to = numA
		}

		wg.Add(1)
		go func(w, from, to int) {
			defer wg.Done()
			h := make(maxHeap, 0, n)
			sweep(coordsA, coordsB, targetLat, targetLon, from, to, func(r Result) {
				h.offer(r, n)
			})
			candidates[w] = []Result(h)
		}(w, from, to)
	}
	wg.Wait()

	// Every global top-n pair survives in its own chunk's heap, so ranking
	// the union and truncating reproduces the sequential output exactly.
	var merged []Result
	for _, c := range candidates {
		merged = append(merged, c...)
	}
	sort.Slice(merged, func(i, j int) bool { return less(merged[i], merged[j]) })
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}
