package main

import (
	"github.com/sarchlab/ocular/arch"
)

// buildScenario constructs a self-contained arch.Fake architecture with n
// nets converging on a shared bottleneck wire, the same shape as
// router/driver_test.go's congestion scenario — since no real architecture
// backend exists yet (SPEC_FULL.md's Non-goals exclude parsing real FPGA
// device files), this is what `route`, `demo`, and `monitor` all route.
func buildScenario(n int) arch.Context {
	f := arch.NewFake(arch.StrengthStrong)

	bottleneck := f.AddWire(5, 5, 0)

	for i := 1; i <= n; i++ {
		d := f.AddWire(5, 5-i, 0)
		s := f.AddWire(5, 5+i, 0)

		f.AddPip(d, bottleneck, 0.01)
		f.AddPip(bottleneck, s, 0.01)
		f.AddPip(d, s, 0.03)

		bd, bs := f.AddBel(5, 5-i), f.AddBel(5, 5+i)
		net := f.AddNet("net", bd, true, []arch.BelHandle{bs})
		f.SetDriverWire(net, d)
		f.SetUserWire(f.NetUsers(net)[0], s)
	}

	return f
}
