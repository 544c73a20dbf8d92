// Package admission implements the Admission Controller (C4): a 2-D grid
// reservation map that selects non-overlapping nets for concurrent kernel
// dispatch, so the wavefront kernel can write shared current-cost cells
// without cross-net interference.
package admission

import (
	"sync"

	"github.com/sarchlab/ocular/arch"
)

const free int8 = -1

// Controller owns the grid2net reservation map of spec.md §3/§4.4.
type Controller struct {
	mu            sync.Mutex
	width, height int
	grid          []int8
}

// NewController creates a Controller for a width x height routing grid.
func NewController(width, height int) *Controller {
	c := &Controller{
		width:  width,
		height: height,
		grid:   make([]int8, width*height),
	}
	for i := range c.grid {
		c.grid[i] = free
	}
	return c
}

// TryAdmit reserves bb for slot, if every cell it covers is currently free.
// It returns false without mutating the map if any cell is already claimed.
func (c *Controller) TryAdmit(bb arch.Rect, slot int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkRegion(bb, free) {
		return false
	}

	c.markRegion(bb, int8(slot))
	return true
}

// Release frees every cell bb covers, returning it to the pool of
// admittable space.
func (c *Controller) Release(bb arch.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markRegion(bb, free)
}

// checkRegion reports whether every cell in bb currently holds value.
func (c *Controller) checkRegion(bb arch.Rect, value int8) bool {
	for y := bb.Y0; y <= bb.Y1; y++ {
		for x := bb.X0; x <= bb.X1; x++ {
			if c.grid[y*c.width+x] != value {
				return false
			}
		}
	}
	return true
}

// markRegion sets every cell in bb to value.
func (c *Controller) markRegion(bb arch.Rect, value int8) {
	for y := bb.Y0; y <= bb.Y1; y++ {
		for x := bb.X0; x <= bb.X1; x++ {
			c.grid[y*c.width+x] = value
		}
	}
}
