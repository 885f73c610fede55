package packstate

import (
	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/errs"
)

// Write-pack op bits, in the order spec.md §4.3 lists them.
const (
	OpSubmitLpack Op = iota
	OpCompleteLpack
	OpSubmitDpack
	OpCompleteDpack
	OpWriteVstorage
	OpWriteRstorage
	OpEndReqWrite
	numWriteOps
)

var writeOpNames = [numWriteOps]string{
	OpSubmitLpack:   "SUBMIT_LPACK",
	OpCompleteLpack: "COMPLETE_LPACK",
	OpSubmitDpack:   "SUBMIT_DPACK",
	OpCompleteDpack: "COMPLETE_DPACK",
	OpWriteVstorage: "WRITE_VSTORAGE",
	OpWriteRstorage: "WRITE_RSTORAGE",
	OpEndReqWrite:   "END_REQ",
}

// WriteState is the PackState variant for write packs.
type WriteState struct {
	bitVector
	pack *core.Pack
	mode Mode
}

// NewWriteState constructs the state machine for a write pack.
func NewWriteState(pack *core.Pack, mode Mode) *WriteState {
	return &WriteState{bitVector: newBitVector(int(numWriteOps)), pack: pack, mode: mode}
}

func (s *WriteState) Pack() *core.Pack   { return s.pack }
func (s *WriteState) PackID() int64      { return s.pack.PID() }
func (s *WriteState) IsWrite() bool      { return true }
func (s *WriteState) OpName(op Op) string { return writeOpNames[op] }
func (s *WriteState) Bits() []bool       { return s.snapshot() }

// IsBegun reports whether any bit has been set.
func (s *WriteState) IsBegun() bool { return s.bitVector.isBegun() }

// IsEnded implements the mode-specific terminal condition of spec.md
// §4.3: fast requires END_REQ and COMPLETE_DPACK; slow requires END_REQ
// and WRITE_VSTORAGE (COMPLETE_DPACK is implied, since slow's END_REQ
// follows COMPLETE_DPACK).
func (s *WriteState) IsEnded() bool {
	if s.mode == Fast {
		return s.st(OpEndReqWrite) && s.st(OpCompleteDpack)
	}
	return s.st(OpEndReqWrite) && s.st(OpWriteVstorage)
}

// readyToWriteVstorage implements the "log-order visibility" predicate:
// every prior write pack in window must have already written vStorage.
func (s *WriteState) readyToWriteVstorage(window []State) bool {
	for _, peer := range window {
		if !peer.IsWrite() {
			continue
		}
		w := peer.(*WriteState)
		if !w.st(OpWriteVstorage) {
			return false
		}
	}
	return true
}

// readyToSubmitDpack implements the overlap-serialization predicate: for
// every prior write pack in window that overlaps self, its data-pack write
// must already be complete. In slow mode it additionally requires every
// prior write pack's log pack to be complete (needed for crash-recovery
// consistency when vStorage visibility is deferred).
func (s *WriteState) readyToSubmitDpack(window []State) bool {
	for _, peer := range window {
		if !peer.IsWrite() {
			continue
		}
		w := peer.(*WriteState)
		if s.mode == Slow && !w.st(OpCompleteLpack) {
			return false
		}
		if core.IsOverlapping(w.pack, s.pack) && !w.st(OpCompleteDpack) {
			return false
		}
	}
	return true
}

// Candidates implements the readiness table of spec.md §4.3.
func (s *WriteState) Candidates(window []State) []Op {
	var out []Op
	add := func(op Op, ready bool) {
		if ready && !s.st(op) {
			out = append(out, op)
		}
	}

	add(OpSubmitLpack, true)
	add(OpCompleteLpack, s.st(OpSubmitLpack))
	add(OpWriteVstorage, s.st(OpCompleteLpack) && s.readyToWriteVstorage(window))

	if s.mode == Fast {
		add(OpSubmitDpack, s.st(OpWriteVstorage) && s.readyToSubmitDpack(window))
	} else {
		add(OpSubmitDpack, s.st(OpCompleteLpack) && s.readyToSubmitDpack(window))
	}

	add(OpWriteRstorage, s.st(OpSubmitDpack))
	add(OpCompleteDpack, s.st(OpWriteRstorage))

	if s.mode == Fast {
		add(OpEndReqWrite, s.st(OpWriteVstorage))
	} else {
		add(OpEndReqWrite, s.st(OpCompleteDpack))
	}

	return out
}

// Execute sets op's bit and, for WRITE_VSTORAGE/WRITE_RSTORAGE, applies
// the pack's writes to the named shadow device.
func (s *WriteState) Execute(op Op, vStorage, rStorage *core.DiskImage) error {
	if err := s.setSt(op); err != nil {
		return errs.NewAt("WriteState.Execute", errs.CodeIllegalTransition, s.PackID(), -1,
			"op "+s.OpName(op)+" bit already set")
	}
	switch op {
	case OpWriteVstorage:
		s.pack.ExecuteIO(vStorage)
	case OpWriteRstorage:
		s.pack.ExecuteIO(rStorage)
	}
	return nil
}

// CompleteLpackSet reports whether the log pack has completed.
func (s *WriteState) CompleteLpackSet() bool { return s.st(OpCompleteLpack) }

// SubmitDpackSet reports whether the data pack has been submitted.
func (s *WriteState) SubmitDpackSet() bool { return s.st(OpSubmitDpack) }

// WriteVstorageSet reports whether vStorage has received this pack's write.
func (s *WriteState) WriteVstorageSet() bool { return s.st(OpWriteVstorage) }

// WriteRstorageSet reports whether rStorage has received this pack's write.
func (s *WriteState) WriteRstorageSet() bool { return s.st(OpWriteRstorage) }

// ResetForRecovery clears every bit, for doCrashRecovery's forced redo.
func (s *WriteState) ResetForRecovery() {
	for i := range s.bits {
		s.bits[i] = false
	}
}

// ForceSetAll sets every bit to true, marking the pack fully ended without
// re-running its readiness predicates. Used only by crash recovery, which
// has already decided the pack's outcome out of band.
func (s *WriteState) ForceSetAll() {
	for i := range s.bits {
		s.bits[i] = true
	}
}
