// Package netimport implements the Net Importer (C2): it snapshots every
// net from the architecture context, computes bounding boxes, classifies
// driven/undriven and fixed/ripuppable nets, and seeds congestion counters
// for any pre-existing fixed routing.
package netimport

import (
	"fmt"

	"github.com/sarchlab/ocular/arch"
	"github.com/sarchlab/ocular/graph"
)

// ConflictingFixedRoutingError reports a pre-bound wire that already carries
// another net's fixed routing — fatal per spec.md §7.
type ConflictingFixedRoutingError struct {
	Net  arch.NetHandle
	Wire arch.WireHandle
}

func (e *ConflictingFixedRoutingError) Error() string {
	return fmt.Sprintf(
		"conflicting fixed routing: net %v claims wire %v, which is already bound",
		e.Net, e.Wire)
}

// PartialLockedRouteError reports a fixed net missing an expected sink wire
// in its pre-existing routing — fatal per spec.md §7.
type PartialLockedRouteError struct {
	Net arch.NetHandle
}

func (e *PartialLockedRouteError) Error() string {
	return fmt.Sprintf(
		"partial locked route: net %v combines fixed and incomplete routing", e.Net)
}

// Net is the host-side snapshot of one net to be routed.
type Net struct {
	Handle arch.NetHandle
	Name   string

	BBox arch.Rect

	Undriven     bool
	FixedRouting bool

	DriverBel arch.BelHandle
	Users     []arch.UserHandle

	// RoutedWires holds the net's current routing: wire index -> uphill
	// edge index (graph.None for wires bound outside of a kernel launch,
	// e.g. pre-existing fixed routing).
	RoutedWires map[uint32]uint32
}

// FanOut returns the net's sink count, used to rank criticality.
func (n *Net) FanOut() int { return len(n.Users) }

// Perimeter returns the bounding box's half-perimeter, used to rank
// criticality (wider boxes first among nets of equal fan-out).
func (n *Net) Perimeter() int {
	return (n.BBox.X1 - n.BBox.X0) + (n.BBox.Y1 - n.BBox.Y0)
}

// Import snapshots every net in ctx, per spec.md §4.2.
func Import(ctx arch.Context, g *graph.Graph) ([]*Net, error) {
	width, height := ctx.GridDim()

	handles := ctx.Nets()
	nets := make([]*Net, 0, len(handles))

	for _, nh := range handles {
		n := &Net{
			Handle:      nh,
			BBox:        arch.Rect{X0: width - 1, Y0: height - 1, X1: 0, Y1: 0},
			RoutedWires: make(map[uint32]uint32),
		}

		if driver, ok := ctx.NetDriverBel(nh); ok {
			n.DriverBel = driver
			n.BBox = n.BBox.Extend(ctx.BelLoc(driver))
		} else {
			n.Undriven = true
		}

		n.Users = ctx.NetUsers(nh)
		for _, u := range n.Users {
			n.BBox = n.BBox.Extend(ctx.BelLoc(ctx.UserBel(u)))
		}

		if err := importExistingRouting(ctx, g, n); err != nil {
			return nil, err
		}

		nets = append(nets, n)
	}

	return nets, nil
}

func importExistingRouting(ctx arch.Context, g *graph.Graph, n *Net) error {
	bound := ctx.NetBoundWires(n.Handle)
	if len(bound) == 0 {
		return nil
	}

	invalidRoute := false
	fixed := false

	for _, u := range n.Users {
		sinkWire, ok := ctx.NetSinkWire(n.Handle, u)
		if !ok {
			continue
		}
		if _, bound := bound[sinkWire]; !bound {
			invalidRoute = true
		}
	}

	threshold := ctx.StrengthThreshold()
	for _, strength := range bound {
		if strength > threshold {
			fixed = true
			break
		}
	}

	if !fixed {
		// Routing isn't locked; rip it up so later passes don't have to
		// account for it.
		ctx.RipupNet(n.Handle)
		return nil
	}

	if invalidRoute {
		return &PartialLockedRouteError{Net: n.Handle}
	}

	n.FixedRouting = true
	for wire := range bound {
		idx, ok := g.WireToIndex[wire]
		if !ok {
			return &graph.BuildError{Wire: wire, Msg: "fixed-routed wire is not in the routing graph"}
		}
		if g.BoundCount[idx] != 0 {
			return &ConflictingFixedRoutingError{Net: n.Handle, Wire: wire}
		}
		g.BoundCount[idx]++
		n.RoutedWires[idx] = graph.None
	}

	return nil
}
