// Package router implements the Negotiated-Congestion Driver (C6): the
// outer PathFinder-style loop that repeatedly dispatches the wavefront
// kernel across batches of spatially-disjoint nets, then — once every net in
// the pass has bound its route — permanently raises the cost of any wire
// found overused and rips up only the nets that collided on it, until every
// wire is used by at most one net.
package router

import (
	"context"
	"sync"

	"github.com/sarchlab/ocular/admission"
	"github.com/sarchlab/ocular/arch"
	"github.com/sarchlab/ocular/device"
	"github.com/sarchlab/ocular/graph"
	"github.com/sarchlab/ocular/internal/hook"
	"github.com/sarchlab/ocular/kernel"
	"github.com/sarchlab/ocular/netimport"
)

// Config tunes the driver. Device sizes the wavefront kernel's buffers;
// the remaining fields control the negotiated-congestion outer loop itself.
type Config struct {
	Device device.Config

	MaxPasses int

	// InitialCongCost and CongCostGrowth drive cfg.curr_cong_cost: it starts
	// at InitialCongCost and is multiplied by CongCostGrowth after every
	// pass that does not converge. This is the transient half of the
	// two-part congestion model: it scales the penalty paid for entering
	// each wire, which is flat up to kernel.TargetCapacity and grows only
	// for a wire already shared by more nets than that.
	InitialCongCost float64
	CongCostGrowth  float64

	// HistoryFactor drives the permanent half of the congestion model:
	// every pass's end, edge_cost[e] += HistoryFactor*overuse for every edge
	// into a wire that pass left overused. Unlike CurrCongCost this never
	// resets, so a wire that is a perennial bottleneck gets permanently more
	// expensive to reach, pass after pass, even after the nets contending
	// for it have been pushed elsewhere.
	HistoryFactor float64

	NearFarThresh int32
	GroupNodes    int

	// Slack is folded into a net's bounding box before admission, per
	// device.NetConfig.Slack.
	Slack int

	// IterationCap bounds how many relaxation rounds a single kernel Launch
	// may run before giving up on a net; 0 means unbounded.
	IterationCap int

	// Hooks are invoked at hook.PosPassStart, PosPassEnd, PosNetDispatch,
	// PosNetBound, PosNetRipup, and PosOveruse — e.g. a tracing.SQLiteEventWriter
	// to persist the pass-by-pass history of a route.
	Hooks []hook.Hook
}

func invoke(hooks []hook.Hook, pos *hook.HookPos, item interface{}) {
	for _, h := range hooks {
		h.Func(hook.HookCtx{Pos: pos, Item: item})
	}
}

// DefaultConfig returns reasonable defaults sized for device.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Device:          device.DefaultConfig(),
		MaxPasses:       30,
		InitialCongCost: 1,
		CongCostGrowth:  1.3,
		HistoryFactor:   1,
		NearFarThresh:   500,
		GroupNodes:      4,
		Slack:           3,
		IterationCap:    0,
	}
}

// Stats reports how Route's negotiated-congestion loop concluded. Success
// mirrors spec.md §6's "route(ctx) → bool": true iff zero overuse remains
// and every net reached every sink. The richer fields alongside it are the
// idiomatic-Go elaboration of that single bool — a caller that only cares
// about the boolean outcome can ignore them.
type Stats struct {
	Success       bool
	Passes        int
	NetsRouted    int
	OverusedWires int

	// FailedNets lists nets still unrouted (either overused or unreached)
	// when the driver gave up, in no particular order. Empty iff Success.
	FailedNets []arch.NetHandle
}

// routableNet pairs a netimport.Net with the graph-index seed and sink wires
// its routing search starts from and must reach.
type routableNet struct {
	*netimport.Net
	SeedWire  uint32
	SinkWires []uint32
}

// Route imports actx's wire/PIP database and nets, then runs
// negotiated-congestion passes until no wire is shared by more than one net
// (spec.md §1's invariant) or cfg.MaxPasses is exhausted. The returned error
// is non-nil only for conditions spec.md §7 calls fatal (malformed
// architecture data, conflicting fixed routing, a predecessor-consistency
// violation); a router that simply failed to converge within cfg.MaxPasses
// is reported via Stats.Success == false, err == nil — spec.md's "returns
// false" outcome, not an exceptional one.
func Route(ctx context.Context, actx arch.Context, cfg Config) (*Stats, error) {
	g, err := graph.Import(actx)
	if err != nil {
		return nil, err
	}

	nets, err := netimport.Import(actx, g)
	if err != nil {
		return nil, err
	}

	routable, err := resolveNets(actx, g, nets)
	if err != nil {
		return nil, err
	}

	pool := device.NewPool(g.NumWires(), cfg.Device)
	admCtl := admission.NewController(g.Width, g.Height)

	congCost := cfg.InitialCongCost

	// active is the set of nets still needing a route this pass. Every net
	// starts active; a net drops out once a pass binds it to wires nothing
	// else is also bound to, and only re-enters active if that pass's
	// binding failed outright or a later overuse scan finds it colliding
	// with something else.
	active := make([]*routableNet, len(routable))
	copy(active, routable)

	for pass := 0; pass < cfg.MaxPasses; pass++ {
		invoke(cfg.Hooks, hook.PosPassStart, pass)

		ordered := orderByCriticality(active)

		unrouted, err := routePass(ctx, actx, g, pool, admCtl, ordered, congCost, cfg)
		if err != nil {
			return nil, err
		}

		overused := overusedWires(g)
		if len(overused) > 0 {
			invoke(cfg.Hooks, hook.PosOveruse, len(overused))
		}
		invoke(cfg.Hooks, hook.PosPassEnd, pass)

		if len(overused) == 0 && len(unrouted) == 0 {
			return &Stats{Success: true, Passes: pass + 1, NetsRouted: len(routable)}, nil
		}

		raiseHistoricalCost(g, overused, cfg.HistoryFactor)
		active = append(unrouted, ripupOverused(actx, g, routable, overused, cfg.Hooks)...)
		congCost *= cfg.CongCostGrowth
	}

	failed := make([]arch.NetHandle, len(active))
	for i, n := range active {
		failed[i] = n.Handle
	}

	return &Stats{
		Success:       false,
		Passes:        cfg.MaxPasses,
		NetsRouted:    len(routable) - len(active),
		OverusedWires: len(overusedWires(g)),
		FailedNets:    failed,
	}, nil
}

// resolveNets drops fixed and undriven nets (nothing for the kernel to
// route) and resolves every remaining net's driver and sink pins to graph
// wire indices, once, since the architecture's wire/PIP database does not
// change between passes.
func resolveNets(actx arch.Context, g *graph.Graph, nets []*netimport.Net) ([]*routableNet, error) {
	out := make([]*routableNet, 0, len(nets))

	for _, n := range nets {
		if n.FixedRouting || n.Undriven {
			continue
		}

		driverWire, ok := actx.NetDriverWire(n.Handle)
		if !ok {
			continue
		}
		seedIdx, ok := g.WireToIndex[driverWire]
		if !ok {
			return nil, &graph.BuildError{Wire: driverWire, Msg: "net driver wire is not in the routing graph"}
		}

		sinks := make([]uint32, 0, len(n.Users))
		for _, u := range n.Users {
			w := actx.UserWire(u)
			idx, ok := g.WireToIndex[w]
			if !ok {
				return nil, &graph.BuildError{Wire: w, Msg: "net sink wire is not in the routing graph"}
			}
			sinks = append(sinks, idx)
		}

		out = append(out, &routableNet{Net: n, SeedWire: seedIdx, SinkWires: sinks})
	}

	return out, nil
}

// admittedNet is a routableNet that has been given a device slot and an
// admission-controller reservation for this pass.
type admittedNet struct {
	net  *routableNet
	slot int
}

// routePass dispatches every net in nets across one or more barriered
// batches, each batch the largest set of spatially-disjoint nets the
// admission controller and device pool can accommodate at once. Every net
// here starts with an empty route — either it has never been routed, or a
// prior pass's overuse scan or a failed kernel launch already ripped it up
// — so this only needs to launch, backtrace, and bind. It returns the nets
// that could not be bound this pass (unreachable sink, or a queue overflow):
// recoverable per spec.md §7, retried next pass rather than aborting Route.
func routePass(ctx context.Context, actx arch.Context, g *graph.Graph, pool *device.Pool, admCtl *admission.Controller, nets []*routableNet, congCost float64, cfg Config) ([]*routableNet, error) {
	remaining := make([]*routableNet, len(nets))
	copy(remaining, nets)

	var unrouted []*routableNet

	for len(remaining) > 0 {
		batch, rest := admitBatch(g, pool, admCtl, remaining, congCost, cfg)
		if len(batch) == 0 {
			return nil, &AdmissionDeadlockError{NetsRemaining: len(remaining)}
		}
		remaining = rest

		for _, b := range batch {
			invoke(cfg.Hooks, hook.PosNetDispatch, b.net.Handle)
		}

		results := make([]*kernel.Result, len(batch))
		errs := make([]error, len(batch))

		var wg sync.WaitGroup
		for i, b := range batch {
			wg.Add(1)
			go func(i int, b *admittedNet) {
				defer wg.Done()
				seeds := []uint32{b.net.SeedWire}
				results[i], errs[i] = kernel.Launch(ctx, g, pool, b.slot, seeds, b.net.SinkWires, g.BoundCount, cfg.IterationCap)
			}(i, b)
		}
		wg.Wait()

		// Binding, backtrace, and admission/pool release are host-side
		// bookkeeping over shared state (g.BoundCount, the net's
		// RoutedWires, actx itself) — spec.md §5 keeps this off the
		// concurrent path, run here single-threaded once every net in the
		// batch has finished its (parallel, device-side) kernel launch.
		for i, b := range batch {
			n := b.net
			bb := pool.Slots[b.slot].Config.BBox

			switch {
			case errs[i] != nil:
				admCtl.Release(bb)
				pool.Release(b.slot)
				return nil, errs[i]

			case results[i].Overflowed || !allReached(results[i]):
				unrouted = append(unrouted, n)

			default:
				if err := bindRoute(actx, g, pool, n); err != nil {
					admCtl.Release(bb)
					pool.Release(b.slot)
					return nil, err
				}
				invoke(cfg.Hooks, hook.PosNetBound, n.Handle)
			}

			admCtl.Release(bb)
			pool.Release(b.slot)
		}
	}

	return unrouted, nil
}

func allReached(res *kernel.Result) bool {
	for _, r := range res.Reached {
		if !r {
			return false
		}
	}
	return true
}

// admitBatch greedily admits as many of remaining's nets as the device pool
// and admission controller currently allow, in order, and returns the
// admitted batch alongside everything still waiting for the next one.
func admitBatch(g *graph.Graph, pool *device.Pool, admCtl *admission.Controller, remaining []*routableNet, congCost float64, cfg Config) (batch []*admittedNet, rest []*routableNet) {
	for _, n := range remaining {
		slot, ok := pool.FreeSlot()
		if !ok {
			rest = append(rest, n)
			continue
		}

		bb := expandBBox(n.BBox, cfg.Slack, g.Width, g.Height)
		if !admCtl.TryAdmit(bb, slot) {
			rest = append(rest, n)
			continue
		}

		pool.Occupy(slot, slot, device.NetConfig{
			BBox:           bb,
			NearQueueSize:  pool.Config().NearQueueLen,
			FarQueueSize:   pool.Config().FarQueueLen,
			DirtyQueueSize: pool.Config().DirtyQueueLen,
			CurrCongCost:   congCost,
			NearFarThresh:  cfg.NearFarThresh,
			GroupNodes:     cfg.GroupNodes,
			Slack:          cfg.Slack,
		})

		batch = append(batch, &admittedNet{net: n, slot: slot})
	}

	return batch, rest
}

// expandBBox grows bb by slack in every direction, clamped to the grid, so
// the bounding box the admission controller reserves and the kernel enforces
// (the same rectangle — see device.NetConfig.Slack) already has margin for
// the router to find a detour around congestion.
func expandBBox(bb arch.Rect, slack, width, height int) arch.Rect {
	bb.X0 -= slack
	bb.Y0 -= slack
	bb.X1 += slack
	bb.Y1 += slack

	if bb.X0 < 0 {
		bb.X0 = 0
	}
	if bb.Y0 < 0 {
		bb.Y0 = 0
	}
	if bb.X1 > width-1 {
		bb.X1 = width - 1
	}
	if bb.Y1 > height-1 {
		bb.Y1 = height - 1
	}

	return bb
}

// bindRoute backtraces a net's freshly settled predecessor chain from every
// sink to its seed and commits the result onto the architecture and the
// graph's congestion counters. Called only from routePass's single-threaded
// bookkeeping loop, never concurrently with another net's bindRoute.
func bindRoute(actx arch.Context, g *graph.Graph, pool *device.Pool, n *routableNet) error {
	for _, sink := range n.SinkWires {
		if err := backtrace(pool, g, n.Net, n.SeedWire, sink); err != nil {
			return err
		}
	}
	n.RoutedWires[n.SeedWire] = graph.None

	bind(actx, g, n.Net)
	return nil
}

// ripup releases a net's current routing, on both the graph's congestion
// counters and the architecture itself, leaving RoutedWires empty.
func ripup(actx arch.Context, g *graph.Graph, n *netimport.Net) {
	for wireIdx := range n.RoutedWires {
		if g.BoundCount[wireIdx] > 0 {
			g.BoundCount[wireIdx]--
		}
	}

	actx.RipupNet(n.Handle)
	n.RoutedWires = make(map[uint32]uint32)
}

// backtrace walks the predecessor chain the kernel left behind from sink
// back to seed, recording each wire's uphill edge into n.RoutedWires.
func backtrace(pool *device.Pool, g *graph.Graph, n *netimport.Net, seed, sink uint32) error {
	cur := sink
	for cur != seed {
		if _, already := n.RoutedWires[cur]; already {
			return nil
		}

		e := pool.Predecessor(cur)
		if e == graph.None {
			return &InconsistentPredecessorError{Net: n.Handle, Wire: cur}
		}

		n.RoutedWires[cur] = e
		cur = g.EdgeSrc(e)
	}

	return nil
}

// bind commits a net's freshly backtraced RoutedWires onto the
// architecture and the graph's congestion counters.
func bind(actx arch.Context, g *graph.Graph, n *netimport.Net) {
	for wireIdx, edgeIdx := range n.RoutedWires {
		wire := g.IndexToWire[wireIdx]
		actx.BindWire(wire, n.Handle, arch.StrengthWeak)

		if edgeIdx != graph.None {
			actx.BindPip(g.EdgePip[edgeIdx], n.Handle, arch.StrengthWeak)
		}

		g.BoundCount[wireIdx]++
	}
}

// overusedWires returns the set of wire indices currently bound by more nets
// than kernel.TargetCapacity allows — the negotiated-congestion loop's
// convergence condition is that this set is empty.
func overusedWires(g *graph.Graph) map[uint32]bool {
	overused := make(map[uint32]bool)
	for w, c := range g.BoundCount {
		if int(c) > kernel.TargetCapacity {
			overused[uint32(w)] = true
		}
	}
	return overused
}

// raiseHistoricalCost permanently raises edge_cost for every edge whose
// destination is in overused, by historyFactor times how far that wire's
// bound_count exceeds target capacity. Unlike curr_cong_cost (a multiplier
// copied into each launch's NetConfig and scaled pass to pass) this mutates graph.Graph.EdgeCost directly and never comes back down — a
// wire that has been a bottleneck for several passes accumulates a
// permanently higher cost to route through, which is what eventually forces
// contending nets apart instead of oscillating between the same two paths.
func raiseHistoricalCost(g *graph.Graph, overused map[uint32]bool, historyFactor float64) {
	for e, dst := range g.EdgeDst {
		if !overused[dst] {
			continue
		}
		overuse := int(g.BoundCount[dst]) - kernel.TargetCapacity
		g.EdgeCost[e] += int32(historyFactor * float64(overuse))
	}
}

// ripupOverused rips up every net in all (not just the nets active this
// pass — a net left untouched this pass can still have been pushed into
// overuse by another net's fresh route landing on one of its wires) whose
// current routing touches any wire in overused, and returns that subset as
// part of the set the next pass must re-route. Nets that touch no overused
// wire are left bound exactly as they are: spec.md's negotiated-congestion
// loop only disturbs the nets actually in conflict.
func ripupOverused(actx arch.Context, g *graph.Graph, all []*routableNet, overused map[uint32]bool, hooks []hook.Hook) []*routableNet {
	var next []*routableNet
	for _, n := range all {
		touches := false
		for wireIdx := range n.RoutedWires {
			if overused[wireIdx] {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		ripup(actx, g, n.Net)
		invoke(hooks, hook.PosNetRipup, n.Handle)
		next = append(next, n)
	}
	return next
}
