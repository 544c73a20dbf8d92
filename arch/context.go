// Package arch declares the architecture-context and net-model interfaces
// that the OCuLaR router consumes but never implements. A real architecture
// backend (wire/PIP database, bind/unbind, timing model) satisfies Context;
// OCuLaR only calls these methods between kernel launches, on the host.
package arch

// WireHandle is an opaque architecture-side identifier for a routable wire.
type WireHandle interface{}

// PipHandle is an opaque architecture-side identifier for a programmable
// interconnect point between two wires.
type PipHandle interface{}

// BelHandle is an opaque architecture-side identifier for a basic logic
// element occupying one grid cell.
type BelHandle interface{}

// NetHandle is an opaque architecture-side identifier for a net.
type NetHandle interface{}

// UserHandle is an opaque architecture-side identifier for one sink (user)
// of a net.
type UserHandle interface{}

// Strength orders the confidence with which a wire or PIP is bound to a net.
// Strengths above Context.StrengthThreshold mark routing the router must not
// disturb.
type Strength int

const (
	// StrengthWeak is the strength OCuLaR itself binds routing at: always
	// subject to rip-up on a later pass.
	StrengthWeak Strength = 0

	// StrengthStrong is above any reasonable Context.StrengthThreshold, for
	// tests constructing pre-existing fixed routing.
	StrengthStrong Strength = 100
)

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// Rect is an inclusive bounding box on the routing grid.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Extend grows the rectangle, if necessary, to cover p.
func (r Rect) Extend(p Point) Rect {
	if p.X < r.X0 {
		r.X0 = p.X
	}
	if p.X > r.X1 {
		r.X1 = p.X
	}
	if p.Y < r.Y0 {
		r.Y0 = p.Y
	}
	if p.Y > r.Y1 {
		r.Y1 = p.Y
	}
	return r
}

// Context is the external collaborator OCuLaR consumes per spec.md §6. It
// supplies the static wire/PIP database, bel placement, net sink lookup, and
// the bind/unbind/ripup API OCuLaR's driver calls between kernel launches.
type Context interface {
	// Wires enumerates every routable wire, in a deterministic order.
	Wires() []WireHandle

	// RouteBBox returns the bounding box a single wire (or wire pair)
	// occupies; called with a==b to get a wire's own centroid rectangle.
	RouteBBox(a, b WireHandle) Rect

	// DownhillPips returns every PIP whose source is w.
	DownhillPips(w WireHandle) []PipHandle

	// PipAvail reports whether p is free to be used by a new net.
	PipAvail(p PipHandle) bool

	// WireAvail reports whether w is free to be used by a new net.
	WireAvail(w WireHandle) bool

	// PipDst returns the wire a PIP drives.
	PipDst(p PipHandle) WireHandle

	// PipDelayNS returns a PIP's delay, in nanoseconds.
	PipDelayNS(p PipHandle) float64

	// WireDelayNS returns a wire's own delay, in nanoseconds.
	WireDelayNS(w WireHandle) float64

	// GridDim returns the routing grid's extents.
	GridDim() (width, height int)

	// BelLoc returns the grid location of a placed bel.
	BelLoc(bel BelHandle) Point

	// Nets enumerates every net, in a deterministic order.
	Nets() []NetHandle

	// NetDriverBel returns the net's driver bel, and whether the net has
	// one (an undriven net has none).
	NetDriverBel(n NetHandle) (BelHandle, bool)

	// NetUsers enumerates a net's sinks.
	NetUsers(n NetHandle) []UserHandle

	// UserBel returns the bel a sink occupies.
	UserBel(u UserHandle) BelHandle

	// UserWire returns the wire a sink pin is physically wired to,
	// independent of any current routing state. This is the SSSP target
	// the router searches for, as distinct from NetSinkWire below, which
	// reports what a net's *pre-existing* routing actually arrives on.
	UserWire(u UserHandle) WireHandle

	// NetSinkWire returns the wire a given sink is expected to arrive on,
	// if the net has pre-existing (e.g. fixed) routing.
	NetSinkWire(n NetHandle, u UserHandle) (WireHandle, bool)

	// NetDriverWire returns the wire the net's driver pin is already bound
	// to (the SSSP seed), if the net has a driver. A cell's output pin is
	// bound to its wire at placement time, independent of routing.
	NetDriverWire(n NetHandle) (WireHandle, bool)

	// NetBoundWires returns the set of wires a net is currently routed
	// through, each tagged with the strength it was bound at.
	NetBoundWires(n NetHandle) map[WireHandle]Strength

	// BindPip commits a PIP to a net at the given strength.
	BindPip(p PipHandle, n NetHandle, strength Strength)

	// BindWire commits a wire to a net at the given strength.
	BindWire(w WireHandle, n NetHandle, strength Strength)

	// RipupNet releases every PIP and wire a net currently holds.
	RipupNet(n NetHandle)

	// StrengthThreshold is spec.md's STRONG: a wire/PIP bound at a Strength
	// strictly above it is considered locked.
	StrengthThreshold() Strength
}
