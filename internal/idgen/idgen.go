// Package idgen provides the ID generator used to stamp trace rows, adapted
// from Akita's sim.IDGenerator.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator produces opaque, unique string IDs.
type IDGenerator interface {
	Generate() string
}

// Sequential generates small, human-readable, monotonically increasing IDs.
// Useful in tests, where deterministic trace rows make assertions simpler.
type Sequential struct {
	next atomic.Uint64
}

// NewSequential creates a Sequential ID generator.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Generate returns the next sequential ID.
func (g *Sequential) Generate() string {
	n := g.next.Add(1)
	return strconv.FormatUint(n, 10)
}

// Parallel generates globally unique IDs using xid, safe to call from many
// goroutines without coordination — the generator used once nets are routed
// concurrently across in-flight slots.
type Parallel struct{}

// NewParallel creates a Parallel ID generator.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Generate returns a new globally unique ID.
func (g *Parallel) Generate() string {
	return xid.New().String()
}
