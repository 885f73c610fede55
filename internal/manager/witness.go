package manager

import (
	"github.com/walb-linux/walbsim/internal/errs"
	"github.com/walb-linux/walbsim/internal/packstate"
)

// captureWitness records, for every address rs's pack covers, the set of
// bytes a linearizable read could legally observe: the fallback byte
// (spec.md §9's "most recent already-ended write pack's value, or
// fStorage") plus every not-yet-ended write pack currently covering the
// address. This runs at SUBMIT time, before any physical I/O for rs, so it
// captures exactly the writers racing the read.
func (m *Manager) captureWitness(rs *packstate.ReadState) {
	rs.Pack().ForEachAddr(func(addr uint64) {
		fallback := m.fallbackByte(addr)
		writers := m.candidateWriters(addr)
		rs.SetWitness(addr, packstate.WitnessEntry{
			FallbackByte:     fallback,
			CandidateWriters: writers,
		})
	})
}

// fallbackByte returns the value addr would read as if every currently
// in-flight write pack were absent: the data held by the highest-pid
// already-ended write pack covering addr, or fStorage's original byte if
// none has ended yet.
func (m *Manager) fallbackByte(addr uint64) byte {
	for pid := len(m.packStates) - 1; pid >= 0; pid-- {
		state := m.packStates[pid]
		ws, ok := state.(*packstate.WriteState)
		if !ok || !state.IsEnded() {
			continue
		}
		if state.Pack().HasAddr(addr) {
			return ws.Pack().DataAt(addr)
		}
	}
	return m.fStorage.ByteAt(addr)
}

// candidateWriters returns the pids of every write pack, anywhere in the
// schedule (not just the lookahead window), that covers addr and has not
// yet ended. These are the writers that might still complete between this
// read's SUBMIT and its END_REQ, and so might legally race it.
func (m *Manager) candidateWriters(addr uint64) []int64 {
	var out []int64
	for _, state := range m.packStates {
		if !state.IsWrite() || state.IsEnded() {
			continue
		}
		if state.Pack().HasAddr(addr) {
			out = append(out, state.PackID())
		}
	}
	return out
}

// validateRead checks, for every address rs's pack covers, that the byte
// its request buffers actually received (after the mode's read-IO op has
// run) matches either the fallback byte or the data held by one of the
// witness's candidate writers that has begun by END_REQ (spec.md §9: a
// writer that was not yet ended when the witness was captured and had
// started by the time the read ended remains a legal race). A match
// against none of these is a linearizability violation.
func (m *Manager) validateRead(rs *packstate.ReadState) error {
	var firstErr error
	rs.Pack().ForEachAddr(func(addr uint64) {
		if firstErr != nil {
			return
		}
		observed := rs.Pack().DataAt(addr)
		witness, ok := rs.Witness(addr)
		if !ok {
			return
		}

		possible := []byte{witness.FallbackByte}
		for _, wpid := range witness.CandidateWriters {
			peer := m.packStates[wpid]
			if peer.IsBegun() {
				possible = append(possible, peer.Pack().DataAt(addr))
			}
		}

		ok = false
		for _, pd := range possible {
			if pd == observed {
				ok = true
				break
			}
		}
		m.obs.ObserveReadValidation(rs.PackID(), addr, ok)
		if !ok {
			firstErr = errs.NewAt("Manager.validateRead", errs.CodeReadInconsistency, rs.PackID(), int64(addr),
				"observed byte matches neither the fallback value nor any still-begun candidate writer")
		}
	})
	return firstErr
}
