package kernel

// TargetCapacity is the number of nets a wire can carry before it is
// considered congested — spec.md's "target capacity", fixed at 1 (no two
// nets may share a wire in the final solution). The negotiated-congestion
// driver's own overuse scan (bound_count > capacity) uses the same
// constant, so it is exported rather than duplicated.
const TargetCapacity = 1

// congestionSlope is the k in "1 + k*(count-1)", spec.md §4.5's example
// present_cost growth rate above target capacity.
const congestionSlope = 1.0

// presentCost is PathFinder's present-congestion cost function: 1 while a
// wire is under capacity, growing linearly once it is shared by more nets
// than the target capacity allows.
func presentCost(boundCount uint8) float64 {
	if boundCount <= TargetCapacity {
		return 1
	}
	return 1 + congestionSlope*float64(int(boundCount)-TargetCapacity)
}

// congestionPenalty is cfg.curr_cong_cost * present_cost(bound_count[v]),
// rounded to the same integer cost domain as edge delays.
func congestionPenalty(currCongCost float64, boundCount uint8) int32 {
	return int32(currCongCost * presentCost(boundCount))
}
