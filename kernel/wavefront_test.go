package kernel

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ocular/arch"
	"github.com/sarchlab/ocular/device"
	"github.com/sarchlab/ocular/graph"
)

// buildDiamond returns a 4-wire graph with two parallel paths from wire 0 to
// wire 3: 0->1->3 (cost 20) and 0->2->3 (cost 10), so a congestion penalty on
// wire 2 can be used to flip which path the kernel settles on.
func buildDiamond() *graph.Graph {
	return &graph.Graph{
		WireX:     []int16{0, 1, 2, 3},
		WireY:     []int16{0, 0, 0, 0},
		AdjOffset: []uint32{0, 2, 3, 4, 4},
		EdgeDst:   []uint32{1, 2, 3, 3},
		EdgeCost:  []int32{10, 5, 10, 5},
	}
}

func testConfig() device.Config {
	return device.Config{
		NumWorkgroups:   2,
		WorkgroupSize:   4,
		NearQueueLen:    16,
		FarQueueLen:     16,
		DirtyQueueLen:   16,
		MaxNetsInFlight: 1,
	}
}

var _ = Describe("Launch", func() {
	var (
		g    *graph.Graph
		pool *device.Pool
		bc   []uint8
	)

	BeforeEach(func() {
		g = buildDiamond()
		pool = device.NewPool(g.NumWires(), testConfig())
		bc = make([]uint8, g.NumWires())

		pool.Occupy(0, 0, device.NetConfig{
			BBox:          arch.Rect{X0: 0, Y0: 0, X1: 3, Y1: 0},
			NearFarThresh: 1000,
			CurrCongCost:  10,
			GroupNodes:    2,
		})
	})

	It("settles on the cheaper path when no wire is congested", func() {
		res, err := Launch(context.Background(), g, pool, 0, []uint32{0}, []uint32{3}, bc, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Overflowed).To(BeFalse())
		Expect(res.Reached).To(Equal([]bool{true}))

		Expect(pool.Cost(3)).To(Equal(int32(10)))
		Expect(pool.Predecessor(3)).To(Equal(uint32(3)))
		Expect(pool.Cost(2)).To(Equal(int32(5)))
	})

	It("routes around a congested wire once the penalty outweighs the detour", func() {
		bc[2] = 5 // present_cost(5) = 1 + 1*(5-1) = 5; penalty = curr_cong_cost*5 = 50

		res, err := Launch(context.Background(), g, pool, 0, []uint32{0}, []uint32{3}, bc, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reached).To(Equal([]bool{true}))

		Expect(pool.Cost(3)).To(Equal(int32(40))) // (10+10) + (10+10) via wire 1
		Expect(pool.Predecessor(3)).To(Equal(uint32(2)))
	})

	It("reports every dirtied wire reset back to unreached after release", func() {
		_, err := Launch(context.Background(), g, pool, 0, []uint32{0}, []uint32{3}, bc, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.Cost(1)).To(BeNumerically("<", graph.Inf))

		pool.Release(0)

		Expect(pool.Cost(1)).To(Equal(graph.Inf))
		Expect(pool.Cost(2)).To(Equal(graph.Inf))
		Expect(pool.Cost(3)).To(Equal(graph.Inf))
		Expect(pool.Predecessor(1)).To(Equal(graph.None))
	})

	It("reports overflow instead of corrupting state when a queue is too small", func() {
		tiny := device.NewPool(g.NumWires(), device.Config{
			NumWorkgroups:   2,
			WorkgroupSize:   4,
			NearQueueLen:    0,
			FarQueueLen:     0,
			DirtyQueueLen:   16,
			MaxNetsInFlight: 1,
		})
		tiny.Occupy(0, 0, device.NetConfig{
			BBox:          arch.Rect{X0: 0, Y0: 0, X1: 3, Y1: 0},
			NearFarThresh: 1000,
			CurrCongCost:  10,
			GroupNodes:    2,
		})

		res, err := Launch(context.Background(), g, tiny, 0, []uint32{0}, []uint32{3}, bc, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Overflowed).To(BeTrue())
		Expect(res.OverflowErr).To(HaveOccurred())
	})

	It("stops expanding at the bounding box edge", func() {
		pool.Occupy(0, 0, device.NetConfig{
			BBox:          arch.Rect{X0: 0, Y0: 0, X1: 1, Y1: 0}, // excludes wires 2 and 3
			NearFarThresh: 1000,
			CurrCongCost:  10,
			GroupNodes:    2,
		})

		res, err := Launch(context.Background(), g, pool, 0, []uint32{0}, []uint32{3}, bc, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reached).To(Equal([]bool{false}))
		Expect(pool.Cost(1)).To(Equal(int32(20))) // edge 10 + congestion penalty 10
		Expect(pool.Cost(3)).To(Equal(graph.Inf))
	})
})
