// Package graph implements the Graph Importer (C1): it flattens an
// arch.Context's wire/PIP database into a CSR-format adjacency list with
// integer edge costs, ready to be uploaded to the wavefront kernel.
package graph

import (
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/ocular/arch"
)

// Inf is the sentinel cost meaning "not yet reached" — spec.md's
// 0x07FF_FFFF, chosen to leave headroom below int32 overflow when costs are
// summed along a path.
const Inf int32 = 0x07FF_FFFF

// None is the sentinel uphill-edge index meaning "no predecessor".
const None uint32 = 0xFFFF_FFFF

// delayScale converts a float64 nanosecond delay into an integer picosecond
// cost, matching ocular.cc's delay_scale.
const delayScale = 1000.0

// BuildError reports a malformed architecture graph — fatal per spec.md §7.
type BuildError struct {
	Wire arch.WireHandle
	Msg  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("graph build error: %s (wire %v)", e.Msg, e.Wire)
}

// Graph is the flattened, CSR-format routing graph. It is immutable after
// Import except for EdgeCost, which the negotiated-congestion driver raises
// between passes, and BoundCount, which it mutates while binding/ripping up
// nets.
type Graph struct {
	WireX, WireY []int16

	// AdjOffset[w]..AdjOffset[w+1] are the edges whose source is wire w.
	AdjOffset []uint32
	EdgeDst   []uint32
	EdgeCost  []int32
	EdgePip   []arch.PipHandle

	WireToIndex map[arch.WireHandle]uint32
	IndexToWire []arch.WireHandle

	// BoundCount[w] is how many distinct nets currently route through wire
	// w. It persists across kernel launches and passes; only the
	// negotiated-congestion driver mutates it, between launches.
	BoundCount []uint8

	Width, Height int
}

// NumWires returns the number of wires in the graph.
func (g *Graph) NumWires() int { return len(g.WireX) }

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int { return len(g.EdgeDst) }

// Edges returns the half-open range of edge indices sourced from wire w.
func (g *Graph) Edges(w uint32) (uint32, uint32) {
	return g.AdjOffset[w], g.AdjOffset[w+1]
}

// EdgeSrc returns the wire edge e is sourced from, found by binary search
// over AdjOffset since the CSR layout stores only the forward mapping.
func (g *Graph) EdgeSrc(e uint32) uint32 {
	return uint32(sort.Search(len(g.AdjOffset)-1, func(w int) bool {
		return g.AdjOffset[w+1] > e
	}))
}

// Import builds a Graph from an architecture context, per spec.md §4.1.
func Import(ctx arch.Context) (*Graph, error) {
	g := &Graph{
		WireToIndex: make(map[arch.WireHandle]uint32),
	}

	wires := ctx.Wires()
	g.WireX = make([]int16, 0, len(wires))
	g.WireY = make([]int16, 0, len(wires))
	g.IndexToWire = make([]arch.WireHandle, 0, len(wires))

	for _, w := range wires {
		bb := ctx.RouteBBox(w, w)
		cx := (bb.X0 + bb.X1) / 2
		cy := (bb.Y0 + bb.Y1) / 2

		if cx < 0 || cy < 0 {
			return nil, &BuildError{Wire: w, Msg: "wire centroid outside any tile"}
		}

		idx := uint32(len(g.IndexToWire))
		g.WireToIndex[w] = idx
		g.IndexToWire = append(g.IndexToWire, w)
		g.WireX = append(g.WireX, int16(cx))
		g.WireY = append(g.WireY, int16(cy))

		if cx+1 > g.Width {
			g.Width = cx + 1
		}
		if cy+1 > g.Height {
			g.Height = cy + 1
		}
	}

	numWires := len(g.IndexToWire)
	g.AdjOffset = make([]uint32, numWires+1)

	for i := 0; i < numWires; i++ {
		w := g.IndexToWire[i]
		g.AdjOffset[i] = uint32(len(g.EdgeDst))

		for _, p := range ctx.DownhillPips(w) {
			if !ctx.PipAvail(p) {
				continue
			}

			dst := ctx.PipDst(p)
			if !ctx.WireAvail(dst) {
				continue
			}

			dstIdx, ok := g.WireToIndex[dst]
			if !ok {
				return nil, &BuildError{Wire: dst, Msg: "pip destination is not a known wire"}
			}

			cost := int32(math.Round((ctx.PipDelayNS(p) + ctx.WireDelayNS(dst)) * delayScale))

			g.EdgeCost = append(g.EdgeCost, cost)
			g.EdgeDst = append(g.EdgeDst, dstIdx)
			g.EdgePip = append(g.EdgePip, p)
		}
	}
	g.AdjOffset[numWires] = uint32(len(g.EdgeDst))

	g.BoundCount = make([]uint8, numWires)

	return g, nil
}
