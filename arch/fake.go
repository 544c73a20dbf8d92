package arch

import "fmt"

// Fake is a small, deterministic, in-memory Context used by tests and the
// `ocular demo` CLI command. It is not a substitute for a real architecture
// backend — it exists only to exercise the router end to end, the same role
// mockengine.go/mockcomponent.go play for Akita's own test suite.
type Fake struct {
	wireLoc []Point
	wireDel []float64

	pipSrc, pipDst []int
	pipDelay       []float64
	downhill       [][]int // indexed by wire index, value is pip index

	belLoc []Point

	nets []fakeNet

	boundWires map[int]map[NetHandle]Strength
	boundPips  map[int]map[NetHandle]Strength

	strengthThreshold Strength
}

type fakeNet struct {
	name          string
	driverBel     int
	hasDriver     bool
	driverWire    int
	hasDriverWire bool
	users         []int // bel indices
	userWire      map[int]int
	sinkWire      map[int]int
	preRouted     map[int]Strength // wire index -> strength, pre-existing routing
}

// wireH / pipH / belH / netH / userH wrap plain ints so Fake's handles are
// comparable map keys while staying distinct types from a real backend's.
type wireH int
type pipH int
type belH int
type netH int
type userH struct {
	net int
	idx int
}

// NewFake creates an empty Fake architecture context. STRONG is the
// strength threshold (spec.md's STRENGTH_STRONG).
func NewFake(strengthThreshold Strength) *Fake {
	return &Fake{
		boundWires:        make(map[int]map[NetHandle]Strength),
		boundPips:         make(map[int]map[NetHandle]Strength),
		strengthThreshold: strengthThreshold,
	}
}

// AddWire registers a new wire at the given centroid and returns its handle.
func (f *Fake) AddWire(x, y int, delayNS float64) WireHandle {
	idx := len(f.wireLoc)
	f.wireLoc = append(f.wireLoc, Point{X: x, Y: y})
	f.wireDel = append(f.wireDel, delayNS)
	f.downhill = append(f.downhill, nil)
	return wireH(idx)
}

// AddPip registers a new PIP from src to dst and returns its handle.
func (f *Fake) AddPip(src, dst WireHandle, delayNS float64) PipHandle {
	s := int(src.(wireH))
	d := int(dst.(wireH))

	idx := len(f.pipSrc)
	f.pipSrc = append(f.pipSrc, s)
	f.pipDst = append(f.pipDst, d)
	f.pipDelay = append(f.pipDelay, delayNS)
	f.downhill[s] = append(f.downhill[s], idx)

	return pipH(idx)
}

// AddBel registers a new bel at the given grid location and returns its
// handle.
func (f *Fake) AddBel(x, y int) BelHandle {
	idx := len(f.belLoc)
	f.belLoc = append(f.belLoc, Point{X: x, Y: y})
	return belH(idx)
}

// AddNet registers a new net driven from driverBel (or undriven, if ok is
// false) with the given sink bels, and returns its handle.
func (f *Fake) AddNet(name string, driverBel BelHandle, ok bool, users []BelHandle) NetHandle {
	idx := len(f.nets)

	n := fakeNet{name: name, userWire: make(map[int]int), sinkWire: make(map[int]int), preRouted: make(map[int]Strength)}
	if ok {
		n.driverBel = int(driverBel.(belH))
		n.hasDriver = true
	}
	for _, u := range users {
		n.users = append(n.users, int(u.(belH)))
	}

	f.nets = append(f.nets, n)
	return netH(idx)
}

// SetDriverWire records the wire net's driver pin is bound to at placement
// time — the seed the wavefront kernel starts its search from.
func (f *Fake) SetDriverWire(n NetHandle, wire WireHandle) {
	ni := int(n.(netH))
	f.nets[ni].driverWire = int(wire.(wireH))
	f.nets[ni].hasDriverWire = true
}

// SetUserWire records the wire a sink pin is physically wired to, the
// target Launch searches for, independent of routing state.
func (f *Fake) SetUserWire(u UserHandle, wire WireHandle) {
	uh := u.(userH)
	f.nets[uh.net].userWire[uh.idx] = int(wire.(wireH))
}

// PreRoute marks wire as part of net's pre-existing routing at the given
// strength, binds it to the net, and records it as the expected sink wire
// for user u (pass -1 to skip recording a sink association).
func (f *Fake) PreRoute(n NetHandle, wire WireHandle, strength Strength, u int) {
	ni := int(n.(netH))
	wi := int(wire.(wireH))
	f.nets[ni].preRouted[wi] = strength
	f.BindWire(wire, n, strength)
	if u >= 0 {
		f.nets[ni].sinkWire[u] = wi
	}
}

// Wires implements Context.
func (f *Fake) Wires() []WireHandle {
	out := make([]WireHandle, len(f.wireLoc))
	for i := range f.wireLoc {
		out[i] = wireH(i)
	}
	return out
}

// RouteBBox implements Context. Fake wires occupy a single grid cell, so the
// bounding box of a wire against itself is just its centroid.
func (f *Fake) RouteBBox(a, _ WireHandle) Rect {
	p := f.wireLoc[int(a.(wireH))]
	return Rect{X0: p.X, Y0: p.Y, X1: p.X, Y1: p.Y}
}

// DownhillPips implements Context.
func (f *Fake) DownhillPips(w WireHandle) []PipHandle {
	idxs := f.downhill[int(w.(wireH))]
	out := make([]PipHandle, len(idxs))
	for i, p := range idxs {
		out[i] = pipH(p)
	}
	return out
}

// PipAvail implements Context. Fake PIPs are always structurally available;
// congestion is tracked via bound_count, not this predicate.
func (f *Fake) PipAvail(PipHandle) bool { return true }

// WireAvail implements Context.
func (f *Fake) WireAvail(WireHandle) bool { return true }

// PipDst implements Context.
func (f *Fake) PipDst(p PipHandle) WireHandle {
	return wireH(f.pipDst[int(p.(pipH))])
}

// PipDelayNS implements Context.
func (f *Fake) PipDelayNS(p PipHandle) float64 {
	return f.pipDelay[int(p.(pipH))]
}

// WireDelayNS implements Context.
func (f *Fake) WireDelayNS(w WireHandle) float64 {
	return f.wireDel[int(w.(wireH))]
}

// GridDim implements Context.
func (f *Fake) GridDim() (int, int) {
	w, h := 0, 0
	for _, p := range f.wireLoc {
		if p.X+1 > w {
			w = p.X + 1
		}
		if p.Y+1 > h {
			h = p.Y + 1
		}
	}
	return w, h
}

// BelLoc implements Context.
func (f *Fake) BelLoc(b BelHandle) Point {
	return f.belLoc[int(b.(belH))]
}

// Nets implements Context.
func (f *Fake) Nets() []NetHandle {
	out := make([]NetHandle, len(f.nets))
	for i := range f.nets {
		out[i] = netH(i)
	}
	return out
}

// NetDriverBel implements Context.
func (f *Fake) NetDriverBel(n NetHandle) (BelHandle, bool) {
	ni := f.nets[int(n.(netH))]
	if !ni.hasDriver {
		return nil, false
	}
	return belH(ni.driverBel), true
}

// NetUsers implements Context.
func (f *Fake) NetUsers(n NetHandle) []UserHandle {
	ni := int(n.(netH))
	users := f.nets[ni].users
	out := make([]UserHandle, len(users))
	for i := range users {
		out[i] = userH{net: ni, idx: i}
	}
	return out
}

// UserBel implements Context.
func (f *Fake) UserBel(u UserHandle) BelHandle {
	uh := u.(userH)
	return belH(f.nets[uh.net].users[uh.idx])
}

// UserWire implements Context.
func (f *Fake) UserWire(u UserHandle) WireHandle {
	uh := u.(userH)
	wi, ok := f.nets[uh.net].userWire[uh.idx]
	if !ok {
		return nil
	}
	return wireH(wi)
}

// NetSinkWire implements Context.
func (f *Fake) NetSinkWire(n NetHandle, u UserHandle) (WireHandle, bool) {
	uh := u.(userH)
	wi, ok := f.nets[uh.net].sinkWire[uh.idx]
	if !ok {
		return nil, false
	}
	return wireH(wi), true
}

// NetDriverWire implements Context.
func (f *Fake) NetDriverWire(n NetHandle) (WireHandle, bool) {
	ni := f.nets[int(n.(netH))]
	if !ni.hasDriverWire {
		return nil, false
	}
	return wireH(ni.driverWire), true
}

// NetBoundWires implements Context.
func (f *Fake) NetBoundWires(n NetHandle) map[WireHandle]Strength {
	ni := f.nets[int(n.(netH))]
	out := make(map[WireHandle]Strength, len(ni.preRouted))
	for wi, s := range ni.preRouted {
		out[wireH(wi)] = s
	}
	return out
}

// BindPip implements Context.
func (f *Fake) BindPip(p PipHandle, n NetHandle, strength Strength) {
	pi := int(p.(pipH))
	if f.boundPips[pi] == nil {
		f.boundPips[pi] = make(map[NetHandle]Strength)
	}
	f.boundPips[pi][n] = strength
}

// BindWire implements Context.
func (f *Fake) BindWire(w WireHandle, n NetHandle, strength Strength) {
	wi := int(w.(wireH))
	if f.boundWires[wi] == nil {
		f.boundWires[wi] = make(map[NetHandle]Strength)
	}
	f.boundWires[wi][n] = strength
}

// RipupNet implements Context.
func (f *Fake) RipupNet(n NetHandle) {
	for _, nets := range f.boundWires {
		delete(nets, n)
	}
	for _, nets := range f.boundPips {
		delete(nets, n)
	}

	ni := int(n.(netH))
	f.nets[ni].preRouted = make(map[int]Strength)
}

// StrengthThreshold implements Context.
func (f *Fake) StrengthThreshold() Strength {
	return f.strengthThreshold
}

// NetName returns the human-readable name a net was registered with, for
// diagnostics.
func (f *Fake) NetName(n NetHandle) string {
	return f.nets[int(n.(netH))].name
}

// BoundWireCount returns how many distinct nets currently bind wire w, for
// tests asserting congestion behavior.
func (f *Fake) BoundWireCount(w WireHandle) int {
	return len(f.boundWires[int(w.(wireH))])
}

// PipBoundCount returns how many distinct nets currently bind pip p.
func (f *Fake) PipBoundCount(p PipHandle) int {
	return len(f.boundPips[int(p.(pipH))])
}

func (h wireH) String() string { return fmt.Sprintf("wire%d", int(h)) }
func (h pipH) String() string  { return fmt.Sprintf("pip%d", int(h)) }
