// Package kernel implements the Wavefront Expander (C5): the parallel
// bucketed-SSSP relaxation that drives a net's current-cost frontier from
// its seed wires out across the graph, rounds of goroutine-pool "workgroup"
// dispatch standing in for repeated GPU kernel relaunches, with a
// sync.WaitGroup playing the barrier a device-wide kernel boundary would
// enforce.
package kernel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/ocular/arch"
	"github.com/sarchlab/ocular/device"
	"github.com/sarchlab/ocular/graph"
)

// Result reports how a Launch concluded.
type Result struct {
	// Reached lists, in the order of Launch's sinks argument, whether each
	// sink wire was assigned a finite cost.
	Reached []bool

	// Overflowed is set if any workgroup's near, far, or dirty queue ran out
	// of room — a recoverable per-net error (spec.md §7); the caller should
	// retry the net with a smaller bounding box or in isolation.
	Overflowed  bool
	OverflowErr error

	Rounds int
}

// farThreshRaise is the divisor in the far-queue promotion rule: each time
// the near frontier drains with far-queue work still pending, the near/far
// threshold is raised by NearFarThresh/farThreshRaise once the far queue has
// been drained into the near queue — spec.md §9's open question on the
// promotion step size. A fixed divisor was chosen over a caller-supplied
// tuning knob since nothing downstream needs to vary it per net.
const farThreshRaise = 4

// Launch runs bucketed SSSP relaxation for the net occupying pool's slot,
// starting from seeds (wire indices the caller has already bound to cost 0
// via pool.SeedWire) and stopping once the frontier is fully drained — not
// merely the instant every sink in sinks goes finite, since invariant #3
// (predecessor consistency) requires every wire reachable within the
// bounding box to have settled, not just the sinks.
//
// boundCount is the graph's congestion occupancy, shared read-only across
// concurrently in-flight nets; g and pool are likewise shared, with access
// to any given wire limited to the net's bounding box by construction
// (spec.md §5 / invariant #4).
func Launch(ctx context.Context, g *graph.Graph, pool *device.Pool, slot int, seeds, sinks []uint32, boundCount []uint8, iterationCap int) (*Result, error) {
	cfg := &pool.Slots[slot].Config
	wgs := pool.Workgroups[cfg.NetStart:cfg.NetEnd]
	nWG := len(wgs)

	res := &Result{Reached: make([]bool, len(sinks))}

	owner := func(w uint32) int { return int(w) % nWG }

	for _, s := range seeds {
		pool.SeedWire(s)
		wgs[owner(s)].PushDirty(s)
		if !wgs[owner(s)].PushCurrent(s) {
			return overflowResult(res, "near", slot), nil
		}
	}

	counts := make([]int32, nWG)

	for round := 0; iterationCap <= 0 || round < iterationCap; round++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		total := snapshotCurrentCounts(wgs, counts)
		if total == 0 {
			promoted, err := promoteFar(wgs, cfg, counts, slot)
			if err != nil {
				res.Overflowed = true
				res.OverflowErr = err
				return res, nil
			}
			if !promoted {
				res.Rounds = round
				markReached(pool, sinks, res.Reached)
				return res, nil
			}
			total = int32(0)
			for _, c := range counts {
				total += c
			}
		}
		device.PrefixSum(counts)

		for _, w := range wgs {
			_, next := w.Next()
			next.Store(0)
		}

		if err := relaxRound(g, pool, boundCount, wgs, cfg, counts, total, owner, slot); err != nil {
			res.Overflowed = true
			res.OverflowErr = err
			return res, nil
		}

		for _, w := range wgs {
			w.SwapRoles()
		}

		res.Rounds = round + 1
	}

	markReached(pool, sinks, res.Reached)
	return res, nil
}

func overflowResult(res *Result, queue string, slot int) *Result {
	res.Overflowed = true
	res.OverflowErr = &device.OverflowError{Queue: queue, Slot: slot}
	return res
}

func markReached(pool *device.Pool, sinks []uint32, reached []bool) {
	for i, s := range sinks {
		reached[i] = pool.Cost(s) < graph.Inf
	}
}

// snapshotCurrentCounts copies each workgroup's current-queue length into
// counts, leaving them unsummed, and returns the grand total.
func snapshotCurrentCounts(wgs []*device.Workgroup, counts []int32) int32 {
	var total int32
	for i, w := range wgs {
		_, count := w.Current()
		n := count.Load()
		counts[i] = n
		total += n
	}
	return total
}

// relaxRound dispatches one round's worth of edge relaxation across a
// bounded goroutine pool, fanning the flattened [0, total) global work index
// out across workgroups by binary search over the prefix-summed counts — the
// host-side analogue of a GPU kernel computing its workgroup id from
// get_group_id(0). prefix must already be prefix-summed.
func relaxRound(g *graph.Graph, pool *device.Pool, boundCount []uint8, wgs []*device.Workgroup, cfg *device.NetConfig, prefix []int32, total int32, owner func(uint32) int, slot int) error {
	if total <= 0 {
		return nil
	}

	workers := len(wgs) * cfg.GroupNodes
	if workers <= 0 || int32(workers) > total {
		workers = int(total)
	}

	var wg sync.WaitGroup
	var firstErr atomic.Pointer[error]
	work := make(chan int32, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gi := range work {
				wgIdx, local := locate(prefix, gi)
				srcQueue, _ := wgs[wgIdx].Current()
				src := srcQueue[local]

				if err := relaxWire(g, pool, boundCount, cfg, wgs, owner, src, slot); err != nil {
					firstErr.CompareAndSwap(nil, &err)
				}
			}
		}()
	}

	for gi := int32(0); gi < total; gi++ {
		work <- gi
	}
	close(work)
	wg.Wait()

	if p := firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

// relaxWire relaxes every downhill edge from wire src, skipping destinations
// outside the net's bounding box (no further expansion beyond cfg.BBox — see
// device.NetConfig.Slack — so the kernel's writes can never escape the
// region the admission controller reserved for this net).
func relaxWire(g *graph.Graph, pool *device.Pool, boundCount []uint8, cfg *device.NetConfig, wgs []*device.Workgroup, owner func(uint32) int, src uint32, slot int) error {
	srcCost := pool.Cost(src)

	lo, hi := g.Edges(src)
	for e := lo; e < hi; e++ {
		v := g.EdgeDst[e]

		if !inBBox(g, v, cfg.BBox) {
			continue
		}

		tentative := srcCost + g.EdgeCost[e] + congestionPenalty(cfg.CurrCongCost, boundCount[v])

		ok, firstTouch := pool.Relax(v, tentative, e)
		if !ok {
			continue
		}

		wg := wgs[owner(v)]
		if firstTouch && !wg.PushDirty(v) {
			return &device.OverflowError{Queue: "dirty", Slot: slot}
		}

		if tentative < cfg.NearFarThresh {
			if !wg.PushNext(v) {
				return &device.OverflowError{Queue: "near", Slot: slot}
			}
		} else if !wg.PushFar(v) {
			return &device.OverflowError{Queue: "far", Slot: slot}
		}
	}

	return nil
}

func inBBox(g *graph.Graph, w uint32, bb arch.Rect) bool {
	x, y := int(g.WireX[w]), int(g.WireY[w])
	return x >= bb.X0 && x <= bb.X1 && y >= bb.Y0 && y <= bb.Y1
}

// locate resolves a flattened global work index into (workgroup index, local
// index within that workgroup's current queue) via binary search over the
// prefix-summed per-workgroup counts.
func locate(prefix []int32, gi int32) (wgIdx int, local int32) {
	lo, hi := 0, len(prefix)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if prefix[mid] > gi {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	var base int32
	if lo > 0 {
		base = prefix[lo-1]
	}
	return lo, gi - base
}

// promoteFar raises the near/far threshold and drains every far queue into
// the corresponding workgroup's current near queue, leaving raw (unsummed)
// per-workgroup counts in counts. It reports promoted=false once every far
// queue is itself empty, meaning the frontier has genuinely run dry.
func promoteFar(wgs []*device.Workgroup, cfg *device.NetConfig, counts []int32, slot int) (promoted bool, err error) {
	for i, w := range wgs {
		far, farCount := w.Far()
		n := int(farCount.Load())

		for j := 0; j < n; j++ {
			if !w.PushCurrent(far[j]) {
				return false, &device.OverflowError{Queue: "near", Slot: slot}
			}
			promoted = true
		}
		farCount.Store(0)

		_, curCount := w.Current()
		counts[i] = curCount.Load()
	}

	if !promoted {
		return false, nil
	}

	cfg.NearFarThresh += cfg.NearFarThresh / farThreshRaise
	return true, nil
}
