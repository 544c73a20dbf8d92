package router

import (
	"fmt"

	"github.com/sarchlab/ocular/arch"
)

// AdmissionDeadlockError reports that a pass made no admission progress at
// all — every remaining net's bounding box conflicted with another net that
// the admission controller already holds open, even though a device slot
// was free. This should not happen when MaxNetsInFlight's region reservation
// always empties between passes; surfacing it as a named error rather than
// looping forever makes a scheduler bug visible instead of silent.
type AdmissionDeadlockError struct {
	NetsRemaining int
}

func (e *AdmissionDeadlockError) Error() string {
	return fmt.Sprintf("admission made no progress with %d nets still queued", e.NetsRemaining)
}

// InconsistentPredecessorError reports a wire with a finite cost but no
// recorded predecessor during route backtrace — a violation of invariant #3
// (predecessor consistency) that indicates a bug in the wavefront kernel
// rather than a normal routing failure.
type InconsistentPredecessorError struct {
	Net  arch.NetHandle
	Wire uint32
}

func (e *InconsistentPredecessorError) Error() string {
	return fmt.Sprintf("net %v: wire %d has no predecessor during backtrace", e.Net, e.Wire)
}
