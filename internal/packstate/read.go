package packstate

import (
	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/errs"
)

// Read-pack op bits. Only one of OpReadVstorage/OpReadRstorage is ever
// reachable for a given pack, gated by Mode — the other stays permanently
// unset, mirroring the original source's ReadPackState which declares both
// but only wires one per algorithm variant (spec.md §9 open questions).
const (
	OpSubmit Op = iota
	OpComplete
	OpReadVstorage
	OpReadRstorage
	OpEndReq
	numReadOps
)

var readOpNames = [numReadOps]string{
	OpSubmit:       "SUBMIT",
	OpComplete:     "COMPLETE",
	OpReadVstorage: "READ_VSTORAGE",
	OpReadRstorage: "READ_RSTORAGE",
	OpEndReq:       "END_REQ",
}

// WitnessEntry is the read-possibility witness captured at SUBMIT time for
// one byte address: the byte a read could legally return absent any
// in-flight writer, plus the set of not-yet-ended write packs that might
// still race the read.
type WitnessEntry struct {
	FallbackByte    byte
	CandidateWriters []int64 // pids of WriteState, not pointers (spec.md §9)
}

// ReadState is the PackState variant for read packs.
type ReadState struct {
	bitVector
	pack    *core.Pack
	mode    Mode
	witness map[uint64]WitnessEntry
}

// NewReadState constructs the state machine for a read pack.
func NewReadState(pack *core.Pack, mode Mode) *ReadState {
	return &ReadState{
		bitVector: newBitVector(int(numReadOps)),
		pack:      pack,
		mode:      mode,
		witness:   make(map[uint64]WitnessEntry),
	}
}

func (s *ReadState) Pack() *core.Pack { return s.pack }
func (s *ReadState) PackID() int64    { return s.pack.PID() }
func (s *ReadState) IsWrite() bool    { return false }
func (s *ReadState) OpName(op Op) string { return readOpNames[op] }
func (s *ReadState) IsBegun() bool    { return s.bitVector.isBegun() }
func (s *ReadState) IsEnded() bool    { return s.st(OpEndReq) }
func (s *ReadState) Bits() []bool     { return s.snapshot() }

// readIO is the physical-I/O bit for the active mode.
func (s *ReadState) readIO() Op {
	if s.mode == Fast {
		return OpReadVstorage
	}
	return OpReadRstorage
}

// Candidates implements spec.md §4.2's table: SUBMIT has no predecessor;
// the mode's read-IO bit follows SUBMIT; COMPLETE follows the read-IO bit;
// END_REQ follows COMPLETE. window is unused for read packs — unlike
// writes, nothing about a read's readiness depends on peer packs.
func (s *ReadState) Candidates(_ []State) []Op {
	readIO := s.readIO()
	var out []Op
	if !s.st(OpSubmit) {
		out = append(out, OpSubmit)
	}
	if !s.st(readIO) && s.st(OpSubmit) {
		out = append(out, readIO)
	}
	if !s.st(OpComplete) && s.st(readIO) {
		out = append(out, OpComplete)
	}
	if !s.st(OpEndReq) && s.st(OpComplete) {
		out = append(out, OpEndReq)
	}
	return out
}

// Execute sets op's bit and, for the mode's read-IO op, fills every
// request's data buffer from the named shadow device.
func (s *ReadState) Execute(op Op, vStorage, rStorage *core.DiskImage) error {
	if err := s.setSt(op); err != nil {
		return errs.NewAt("ReadState.Execute", errs.CodeIllegalTransition, s.PackID(), -1,
			"op "+s.OpName(op)+" bit already set")
	}
	switch op {
	case OpReadVstorage:
		s.pack.ExecuteIO(vStorage)
	case OpReadRstorage:
		s.pack.ExecuteIO(rStorage)
	}
	return nil
}

// SetWitness records the witness entry for addr, captured by the manager
// at SUBMIT time.
func (s *ReadState) SetWitness(addr uint64, w WitnessEntry) {
	s.witness[addr] = w
}

// Witness returns the witness entry recorded for addr, if any.
func (s *ReadState) Witness(addr uint64) (WitnessEntry, bool) {
	w, ok := s.witness[addr]
	return w, ok
}

// ForceSetAll sets every bit to true. Crash recovery finalizes read packs
// this way without redoing any I/O (spec.md §4.4: "read packs are
// skipped").
func (s *ReadState) ForceSetAll() {
	for i := range s.bits {
		s.bits[i] = true
	}
}
