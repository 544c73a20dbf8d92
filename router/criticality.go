package router

import "sort"

// criticalNet is the subset of netimport.Net's ranking surface the driver
// orders nets by before each pass.
type criticalNet interface {
	Perimeter() int
	FanOut() int
}

// orderByCriticality returns nets sorted most-critical first: highest
// fan-out (the nets most likely to cause congestion, since every extra sink
// is another chance to contend for a wire) ahead of lower fan-out, ties
// broken by wider bounding box. Routing the hardest nets first, while the
// most wires are still free, is PathFinder's standard net-ordering
// heuristic.
func orderByCriticality[T criticalNet](nets []T) []T {
	ordered := make([]T, len(nets))
	copy(ordered, nets)

	sort.SliceStable(ordered, func(i, j int) bool {
		fi, fj := ordered[i].FanOut(), ordered[j].FanOut()
		if fi != fj {
			return fi > fj
		}
		return ordered[i].Perimeter() > ordered[j].Perimeter()
	})

	return ordered
}
