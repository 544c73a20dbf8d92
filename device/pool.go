// Package device implements the Buffer/Device Pool (C3): the device-resident
// arrays backing in-flight net routing — paired near queues, a far queue, a
// dirtied-node list, per-workgroup counters, and per-in-flight-net config
// records, adapted from Akita's sim.Buffer / parallel-engine queue idiom.
package device

import (
	"sync/atomic"

	"github.com/sarchlab/ocular/arch"
	"github.com/sarchlab/ocular/graph"
)

// Config sizes the pool. The fields mirror ocular.cc's magic constants
// directly; spec.md §9 notes these should eventually become dynamic, so they
// are plumbed through as a value rather than hardcoded.
type Config struct {
	NumWorkgroups   int
	WorkgroupSize   int
	NearQueueLen    int
	FarQueueLen     int
	DirtyQueueLen   int
	MaxNetsInFlight int
}

// DefaultConfig returns the sizing ocular.cc uses.
func DefaultConfig() Config {
	return Config{
		NumWorkgroups:   64,
		WorkgroupSize:   128,
		NearQueueLen:    15000,
		FarQueueLen:     100000,
		DirtyQueueLen:   100000,
		MaxNetsInFlight: 32,
	}
}

// OverflowError reports a near/far/dirty queue that would exceed its
// capacity — a recoverable, per-slot error per spec.md §7.
type OverflowError struct {
	Queue string
	Slot  int
}

func (e *OverflowError) Error() string {
	return "kernel overflow: " + e.Queue + " queue exceeded capacity in slot"
}

// Workgroup is one device-resident work partition. Two near queues (A and B)
// swap the current/next role every relaxation round; the far queue
// accumulates the over-threshold frontier; the dirty list records every wire
// first touched by the net occupying this workgroup's net slot, so it can be
// reset to graph.Inf at teardown.
type Workgroup struct {
	nearA, nearB []uint32
	countA       atomic.Int32
	countB       atomic.Int32
	roleAIsCurrent bool

	far      []uint32
	farCount atomic.Int32

	dirty      []uint32
	dirtyCount atomic.Int32
}

func newWorkgroup(cfg Config) *Workgroup {
	return &Workgroup{
		nearA:          make([]uint32, cfg.NearQueueLen),
		nearB:          make([]uint32, cfg.NearQueueLen),
		far:            make([]uint32, cfg.FarQueueLen),
		dirty:          make([]uint32, cfg.DirtyQueueLen),
		roleAIsCurrent: true,
	}
}

// Reset clears all queues and counters, preparing the workgroup for a new
// net slot.
func (w *Workgroup) Reset() {
	w.countA.Store(0)
	w.countB.Store(0)
	w.farCount.Store(0)
	w.dirtyCount.Store(0)
	w.roleAIsCurrent = true
}

// Current returns the slice and count-cell playing the "current near queue"
// role this round.
func (w *Workgroup) Current() ([]uint32, *atomic.Int32) {
	if w.roleAIsCurrent {
		return w.nearA, &w.countA
	}
	return w.nearB, &w.countB
}

// Next returns the slice and count-cell playing the "next near queue" role
// this round.
func (w *Workgroup) Next() ([]uint32, *atomic.Int32) {
	if w.roleAIsCurrent {
		return w.nearB, &w.countB
	}
	return w.nearA, &w.countA
}

// SwapRoles exchanges the current/next near queue roles between rounds.
func (w *Workgroup) SwapRoles() {
	w.roleAIsCurrent = !w.roleAIsCurrent
}

// Far returns the far queue slice and its atomic counter.
func (w *Workgroup) Far() ([]uint32, *atomic.Int32) {
	return w.far, &w.farCount
}

// Dirty returns the dirtied-node list and its atomic counter.
func (w *Workgroup) Dirty() ([]uint32, *atomic.Int32) {
	return w.dirty, &w.dirtyCount
}

// PushNext appends v to the next near queue; ok is false if the queue is
// full (kernel overflow).
func (w *Workgroup) PushNext(v uint32) bool {
	q, count := w.Next()
	i := count.Add(1) - 1
	if int(i) >= len(q) {
		return false
	}
	q[i] = v
	return true
}

// PushCurrent appends v to the current near queue; used only to seed a fresh
// slot's frontier before the first round runs. ok is false if the queue is
// full.
func (w *Workgroup) PushCurrent(v uint32) bool {
	q, count := w.Current()
	i := count.Add(1) - 1
	if int(i) >= len(q) {
		return false
	}
	q[i] = v
	return true
}

// PushFar appends v to the far queue; ok is false if the queue is full.
func (w *Workgroup) PushFar(v uint32) bool {
	i := w.farCount.Add(1) - 1
	if int(i) >= len(w.far) {
		return false
	}
	w.far[i] = v
	return true
}

// PushDirty appends v to the dirtied-node list; ok is false if the list is
// full.
func (w *Workgroup) PushDirty(v uint32) bool {
	i := w.dirtyCount.Add(1) - 1
	if int(i) >= len(w.dirty) {
		return false
	}
	w.dirty[i] = v
	return true
}

// NetConfig is the per-in-flight-net configuration record of spec.md §3.
type NetConfig struct {
	BBox arch.Rect

	NearQueueSize, FarQueueSize, DirtyQueueSize int

	// NetStart/NetEnd is the [start, end) workgroup range assigned to this
	// net for the duration of its kernel launch.
	NetStart, NetEnd int

	CurrCongCost  float64
	NearFarThresh int32
	GroupNodes    int

	// Slack records the margin already folded into BBox by the driver
	// before admission (spec.md §4.5's "bounding box extended by current
	// iteration slack"). BBox itself — not a further expansion of it at
	// kernel time — is what both the admission controller and the kernel
	// enforce, so the two stay in lockstep: a wire outside BBox was never
	// reserved for this net, and the kernel must not write to it either.
	Slack int
}

// NetSlot is an in-flight-net resource handle on the device.
type NetSlot struct {
	NetIdx int // -1 if free
	Config NetConfig
}

// Pool owns the device-resident buffers: the per-workgroup queues, the
// shared current-cost/uphill-edge state (partitioned by bounding box across
// in-flight slots), and the in-flight-net slots themselves.
type Pool struct {
	cfg Config

	Workgroups []*Workgroup
	Slots      []*NetSlot

	// state holds, per wire, the current-cost and uphill-edge pair packed
	// into one 64-bit word (cost in the high 32 bits, edge index in the
	// low 32). A cost update and its predecessor must land together or
	// not at all: a CAS that lands a new, lower cost but loses the race to
	// write the matching edge index — because two writers' cost-write and
	// edge-write interleaved — would leave a cost with someone else's
	// predecessor, which breaks spec.md's predecessor-consistency
	// invariant. Packing both into one word CAS'd at once rules that out.
	state []uint64
}

func packState(cost int32, edge uint32) uint64 {
	return uint64(uint32(cost))<<32 | uint64(edge)
}

func unpackState(s uint64) (int32, uint32) {
	return int32(uint32(s >> 32)), uint32(s)
}

// NewPool allocates a Pool sized for a graph with numWires wires.
func NewPool(numWires int, cfg Config) *Pool {
	// Every slot needs at least one workgroup of its own, so a pool with
	// fewer workgroups than MaxNetsInFlight gets one slot per workgroup.
	slots := cfg.MaxNetsInFlight
	if slots > cfg.NumWorkgroups {
		slots = cfg.NumWorkgroups
	}

	p := &Pool{
		cfg:        cfg,
		Workgroups: make([]*Workgroup, cfg.NumWorkgroups),
		Slots:      make([]*NetSlot, slots),
		state:      make([]uint64, numWires),
	}

	for i := range p.Workgroups {
		p.Workgroups[i] = newWorkgroup(cfg)
	}
	for i := range p.Slots {
		p.Slots[i] = &NetSlot{NetIdx: -1}
	}

	init := packState(graph.Inf, graph.None)
	for i := range p.state {
		p.state[i] = init
	}

	return p
}

// Cost returns wire w's current tentative cost.
func (p *Pool) Cost(w uint32) int32 {
	cost, _ := unpackState(atomic.LoadUint64(&p.state[w]))
	return cost
}

// Predecessor returns the edge index wire w was last reached by, or
// graph.None if it has never been reached.
func (p *Pool) Predecessor(w uint32) uint32 {
	_, edge := unpackState(atomic.LoadUint64(&p.state[w]))
	return edge
}

// Relax attempts to lower wire w's cost to tentative via edge e. ok is true
// if this call won the race and installed the new cost/edge pair; firstTouch
// is true if w had never been reached before this call.
//
// Comparing the full packed word rather than just the cost gives spec.md's
// determinism rule — lower edge index wins a cost tie — for free: edge sits
// in the low 32 bits, so two candidates with equal cost order exactly by
// edge index, and neither ever increases the stored cost.
func (p *Pool) Relax(w uint32, tentative int32, e uint32) (ok, firstTouch bool) {
	want := packState(tentative, e)
	for {
		old := atomic.LoadUint64(&p.state[w])
		if want >= old {
			return false, false
		}
		if atomic.CompareAndSwapUint64(&p.state[w], old, want) {
			oldCost, _ := unpackState(old)
			return true, oldCost == graph.Inf
		}
	}
}

// ResetWire returns wire w to its unreached state, for round-tripping the
// dirtied list at slot teardown.
func (p *Pool) ResetWire(w uint32) {
	atomic.StoreUint64(&p.state[w], packState(graph.Inf, graph.None))
}

// SeedWire sets wire w's cost to 0 with no predecessor, marking it as an
// SSSP source.
func (p *Pool) SeedWire(w uint32) {
	atomic.StoreUint64(&p.state[w], packState(0, graph.None))
}

// Config returns the sizing the pool was built with.
func (p *Pool) Config() Config { return p.cfg }

// WorkgroupsPerSlot returns how many workgroups each in-flight net slot is
// given, dividing the pool evenly across its slots.
func (p *Pool) WorkgroupsPerSlot() int {
	return p.cfg.NumWorkgroups / len(p.Slots)
}

// FreeSlot returns the index of a free slot, or ok=false if none remain.
func (p *Pool) FreeSlot() (int, bool) {
	for i, s := range p.Slots {
		if s.NetIdx == -1 {
			return i, true
		}
	}
	return 0, false
}

// Occupy assigns netIdx to slot s with the given config, and resets the
// slot's workgroup range ready for a fresh kernel launch.
func (p *Pool) Occupy(s int, netIdx int, cfg NetConfig) {
	wgPerSlot := p.WorkgroupsPerSlot()
	cfg.NetStart = s * wgPerSlot
	cfg.NetEnd = cfg.NetStart + wgPerSlot

	p.Slots[s].NetIdx = netIdx
	p.Slots[s].Config = cfg

	for g := cfg.NetStart; g < cfg.NetEnd; g++ {
		p.Workgroups[g].Reset()
	}
}

// Release frees slot s and resets every wire it dirtied back to graph.Inf /
// graph.None, per spec.md's "round-trip dirtied" invariant.
func (p *Pool) Release(s int) {
	cfg := p.Slots[s].Config
	for g := cfg.NetStart; g < cfg.NetEnd; g++ {
		wg := p.Workgroups[g]
		dirty, count := wg.Dirty()
		n := int(count.Load())
		for i := 0; i < n; i++ {
			p.ResetWire(dirty[i])
		}
	}

	p.Slots[s].NetIdx = -1
}

// PrefixSum replaces counts[i] with the running total counts[0..=i] and
// returns the grand total — the host-computed prefix sum of ocular.cc's
// `prefix_sum`, used to flatten the current near queue for binary search.
func PrefixSum(counts []int32) int32 {
	var sum int32
	for i := range counts {
		sum += counts[i]
		counts[i] = sum
	}
	return sum
}
