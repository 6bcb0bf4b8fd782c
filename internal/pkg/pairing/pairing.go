// Package pairing evaluates the cross product of two coordinate sets and
// ranks every pair by how close its great-circle midpoint lies to a target
// point. Coordinates cross the package boundary as flat slices
// ([lat0, lon0, lat1, lon1, ...]); a trailing unpaired element is ignored.
package pairing

import (
	"container/heap"

	"github.com/samirrijal/halfway/internal/pkg/geospatial"
)

// Result is the outcome for one (A-index, B-index) pair. ScoreKm is the
// great-circle distance in kilometers from the pair's midpoint to the
// target; lower is better.
type Result struct {
	IndexA  int
	IndexB  int
	ScoreKm float64
	MidLat  float64
	MidLon  float64
}

// less orders results ascending by score, breaking ties by IndexA then
// IndexB so equal scores rank the same on every run.
func less(a, b Result) bool {
	if a.ScoreKm != b.ScoreKm {
		return a.ScoreKm < b.ScoreKm
	}
	if a.IndexA != b.IndexA {
		return a.IndexA < b.IndexA
	}
	return a.IndexB < b.IndexB
}

// maxHeap keeps the worst retained result at the root so it can be evicted
// as soon as a better pair shows up.
type maxHeap []Result

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) {
	*h = append(*h, x.(Result))
}

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// offer inserts r while the heap is below capacity n, or replaces the
// current worst when r ranks ahead of it.
func (h *maxHeap) offer(r Result, n int) {
	if h.Len() < n {
		heap.Push(h, r)
	} else if less(r, (*h)[0]) {
		heap.Pop(h)
		heap.Push(h, r)
	}
}

// drain empties the heap into a slice in ascending rank order.
func drain(h maxHeap) []Result {
	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Result)
	}
	return out
}

// FindBest sweeps the full cross product of two flat coordinate slices and
// returns the topN pairs whose midpoint is nearest to the target, ascending
// by score. topN <= 0 or an empty set yields an empty slice, never an error.
//
// The sweep streams through a bounded heap of size min(topN, |A|*|B|), so
// peak memory is on the order of topN rather than the full cross product.
func FindBest(coordsA, coordsB []float64, targetLat, targetLon float64, topN int) []Result {
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

	h := make(maxHeap, 0, n)
	sweep(coordsA, coordsB, targetLat, targetLon, 0, numA, func(r Result) {
		h.offer(r, n)
	})

	return drain(h)
}

// sweep visits rows [fromA, toA) of set A against all of set B in A-major,
// B-minor order.
func sweep(coordsA, coordsB []float64, targetLat, targetLon float64, fromA, toA int, visit func(Result)) {
	numB := len(coordsB) / 2
	for i := fromA; i < toA; i++ {
		latA, lonA := coordsA[2*i], coordsA[2*i+1]
		for j := 0; j < numB; j++ {
			midLat, midLon := geospatial.Midpoint(latA, lonA, coordsB[2*j], coordsB[2*j+1])
			visit(Result{
				IndexA:  i,
				IndexB:  j,
				ScoreKm: geospatial.Haversine(midLat, midLon, targetLat, targetLon),
				MidLat:  midLat,
				MidLon:  midLon,
			})
		}
	}
}

// AllMidpoints computes the midpoint of every pair in the cross product,
// packed flat as [lat, lon] per pair in A-major, B-minor order.
func AllMidpoints(coordsA, coordsB []float64) []float64 {
	numA := len(coordsA) / 2
	numB := len(coordsB) / 2

	out := make([]float64, 0, 2*numA*numB)
	for i := 0; i < numA; i++ {
		for j := 0; j < numB; j++ {
			lat, lon := geospatial.Midpoint(coordsA[2*i], coordsA[2*i+1], coordsB[2*j], coordsB[2*j+1])
			out = append(out, lat, lon)
		}
	}
	return out
}

// Flatten packs results into the flat wire layout, five values per result:
// [indexA, indexB, scoreKm, midLat, midLon]. Indices are carried as floats,
// which is lossless for any realistic set size.
func Flatten(results []Result) []float64 {
	out := make([]float64, 0, len(results)*5)
	for _, r := range results {
		out = append(out, float64(r.IndexA), float64(r.IndexB), r.ScoreKm, r.MidLat, r.MidLon)
	}
	return out
}

// Count returns the size of the cross product of two sets of the given
// sizes, widened to uint64 so realistic set sizes cannot overflow. Negative
// sizes count as zero.
func Count(numA, numB int) uint64 {
	if numA <= 0 || numB <= 0 {
		return 0
	}
	return uint64(numA) * uint64(numB)
}
