// Package packstate implements the per-pack state machines: the
// direction-tagged bit vectors and readiness predicates that enforce the
// WALB ordering constraints described in spec.md §4.2-§4.3.
package packstate

import (
	"errors"

	"github.com/walb-linux/walbsim/internal/core"
)

// errIllegalTransition is the sentinel bitVector.setSt returns when asked
// to set a bit that is already set. Callers wrap it with pack/op context
// via errs.NewAt before returning it to the manager.
var errIllegalTransition = errors.New("bit already set")

// Mode selects between the fast write-through path (user writes visible on
// vStorage immediately after log completion, request ended right after)
// and the slow path (request ended only after data-pack completion).
// WRITE_VSTORAGE follows COMPLETE_LPACK in both modes.
type Mode int

const (
	// Fast is the primary mode wired into the simulator driver.
	Fast Mode = iota
	// Slow is exposed as a mode flag; see spec.md §9 design notes.
	Slow
)

// Op identifies one state-bit transition. Its meaning is scoped to the
// concrete State implementation (ReadState or WriteState); the same
// integer value means different things in each.
type Op int

// State is the tagged-variant PackState of spec.md §9: a pack's
// back-reference, its bit vector, and the readiness predicates that decide
// which bits may transition next. Go has no sum types, so the two
// directions are realized as two implementers that managers type-switch
// on, the same way the teacher type-switches on backend capability
// interfaces.
type State interface {
	Pack() *core.Pack
	PackID() int64
	IsWrite() bool

	// Candidates returns every op whose bit is unset and whose
	// predecessors (self bits plus, where relevant, window) are
	// satisfied. window holds every State from the manager's
	// firstNotEndedPid watermark up to (excluding) this pack, in pid
	// order — the only packs a cross-pack predicate may consult.
	Candidates(window []State) []Op

	// Execute sets op's bit and, if op denotes a physical I/O, applies it
	// to the appropriate shadow device. The caller (the manager) is
	// responsible for having verified op is a legal candidate; Execute
	// itself only rejects a bit that is already set.
	Execute(op Op, vStorage, rStorage *core.DiskImage) error

	// OpName returns the human-readable name of op, for diagnostics.
	OpName(op Op) string

	// IsBegun reports whether any bit has been set.
	IsBegun() bool
	// IsEnded reports whether the direction-specific terminal condition
	// holds.
	IsEnded() bool

	// Bits returns a snapshot of the state-bit vector, for assertions and
	// tests; the downward-closed-subset invariant of spec.md §8 is
	// checked against this.
	Bits() []bool

	// ForceSetAll marks every bit ended without replaying predecessors.
	// Used only by crash recovery, which has already decided the pack's
	// outcome out of band.
	ForceSetAll()
}

// bitVector is the monotone, set-once-per-bit storage shared by both
// directions. A bit may only transition False to True.
type bitVector struct {
	bits []bool
}

func newBitVector(n int) bitVector {
	return bitVector{bits: make([]bool, n)}
}

func (b *bitVector) st(i Op) bool { return b.bits[i] }

func (b *bitVector) setSt(i Op) error {
	if b.bits[i] {
		return errIllegalTransition
	}
	b.bits[i] = true
	return nil
}

func (b *bitVector) isBegun() bool {
	for _, set := range b.bits {
		if set {
			return true
		}
	}
	return false
}

func (b *bitVector) isEnded() bool {
	for _, set := range b.bits {
		if !set {
			return false
		}
	}
	return true
}

func (b *bitVector) snapshot() []bool {
	out := make([]bool, len(b.bits))
	copy(out, b.bits)
	return out
}
