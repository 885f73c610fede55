// Package manager implements the PackStateManager: the scheduler that owns
// every pack's state machine, the three shadow disk images, and the
// lookahead-windowed candidate search and execution loop described in
// spec.md §4.4.
package manager

import (
	"slices"
	"sort"

	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/errs"
	"github.com/walb-linux/walbsim/internal/metrics"
	"github.com/walb-linux/walbsim/internal/packstate"
)

// Candidate is one (pack, op) pair the manager currently considers legal to
// execute.
type Candidate struct {
	PackID int64
	Op     packstate.Op
}

// Manager is the PackStateManager of spec.md §4.4: it assigns pack and
// request ids, tracks each pack's state machine, and walks a plug-bounded
// lookahead window to find legal next operations.
type Manager struct {
	mode packstate.Mode
	obs  metrics.Observer

	fStorage *core.DiskImage // immutable initial snapshot
	vStorage *core.DiskImage // fast/log path shadow device
	rStorage *core.DiskImage // real/data path shadow device

	packStates         []packstate.State // indexed by pid
	firstPackIDPerPlug []int64           // firstPackIDPerPlug[i] = pid of plug i's first pack
	firstNotEndedPid   int64             // watermark: lowest pid not yet ended
	totalNumPacks      int64
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithObserver attaches an Observer that receives every execute, every
// watermark advance made by Execute, and every read validation. The
// manager itself never reports crash events, and DoCrashRecovery reports
// nothing to the observer. Without this option the manager wires
// metrics.NoOpObserver.
func WithObserver(obs metrics.Observer) Option {
	return func(m *Manager) { m.obs = obs }
}

// NewManager assigns pid/rid across plugs in order, builds each pack's
// state machine, and clones disk into the three shadow devices (spec.md
// §3: fStorage, vStorage, and rStorage all start identical). An empty plug,
// or a request whose byte range extends past disk, is a CodeConstruction
// error.
func NewManager(disk *core.DiskImage, plugs [][]*core.Pack, mode packstate.Mode, opts ...Option) (*Manager, error) {
	m := &Manager{
		mode:     mode,
		obs:      metrics.NoOpObserver{},
		fStorage: disk.Clone(),
		vStorage: disk.Clone(),
		rStorage: disk.Clone(),
	}
	for _, opt := range opts {
		opt(m)
	}

	var pid int64
	var rid int64
	for _, packs := range plugs {
		if len(packs) == 0 {
			return nil, errs.New("NewManager", errs.CodeConstruction, "plug must be non-empty")
		}
		m.firstPackIDPerPlug = append(m.firstPackIDPerPlug, pid)
		for _, p := range packs {
			p.SetPID(pid)
			for _, r := range p.Requests {
				if r.End() > uint64(disk.Size()) {
					return nil, errs.NewAt("NewManager", errs.CodeConstruction, pid, int64(r.Addr),
						"request range extends past the disk image")
				}
				r.SetRID(rid)
				rid++
			}
			if p.IsWrite {
				m.packStates = append(m.packStates, packstate.NewWriteState(p, mode))
			} else {
				m.packStates = append(m.packStates, packstate.NewReadState(p, mode))
			}
			pid++
		}
	}
	m.totalNumPacks = pid
	return m, nil
}

// FStorage returns the immutable initial snapshot.
func (m *Manager) FStorage() *core.DiskImage { return m.fStorage }

// VStorage returns the fast/log-path shadow device.
func (m *Manager) VStorage() *core.DiskImage { return m.vStorage }

// RStorage returns the real/data-path shadow device.
func (m *Manager) RStorage() *core.DiskImage { return m.rStorage }

// TotalNumPacks returns the number of packs registered across every plug.
func (m *Manager) TotalNumPacks() int64 { return m.totalNumPacks }

// FirstNotEndedPid returns the current watermark: the lowest pid not yet
// ended. Every pack below it has ended; packs at or above it may or may not
// have.
func (m *Manager) FirstNotEndedPid() int64 { return m.firstNotEndedPid }

// Done reports whether every registered pack has ended.
func (m *Manager) Done() bool { return m.firstNotEndedPid >= m.totalNumPacks }

// State returns the state machine for pid, for tests and diagnostics.
func (m *Manager) State(pid int64) packstate.State { return m.packStates[pid] }

// getPlugID returns the index of the plug containing pid: the largest i
// such that firstPackIDPerPlug[i] <= pid.
func (m *Manager) getPlugID(pid int64) int {
	return sort.Search(len(m.firstPackIDPerPlug), func(i int) bool {
		return m.firstPackIDPerPlug[i] > pid
	}) - 1
}

// getUpperPackID returns the first pid belonging to plugID, or
// totalNumPacks if plugID is past the last plug.
func (m *Manager) getUpperPackID(plugID int) int64 {
	if plugID < len(m.firstPackIDPerPlug) {
		return m.firstPackIDPerPlug[plugID]
	}
	return m.totalNumPacks
}

// GetCandidates returns every (pid, op) pair legal to execute right now,
// restricted to a lookahead window of nPlug plugs starting at the
// watermark (spec.md §4.4: the window bounds how far ahead of the oldest
// unfinished pack the scheduler may look).
func (m *Manager) GetCandidates(nPlug int) []Candidate {
	if m.Done() {
		return nil
	}
	pid0 := m.firstNotEndedPid
	plugID0 := m.getPlugID(pid0)
	pid1 := m.getUpperPackID(plugID0 + nPlug)

	var out []Candidate
	for pid := pid0; pid < pid1; pid++ {
		state := m.packStates[pid]
		window := m.packStates[pid0:pid]
		for _, op := range state.Candidates(window) {
			out = append(out, Candidate{PackID: pid, Op: op})
		}
	}
	return out
}

// Execute runs op against pid's state machine, applying I/O and updating
// read witnesses as appropriate, then advances the watermark if pid (or an
// earlier pack) became fully ended. The caller must only pass (pid, op)
// pairs GetCandidates has offered; Execute re-checks the already-set-bit
// invariant and the pack's own predecessor bits, not cross-pack readiness.
func (m *Manager) Execute(pid int64, op packstate.Op) (bool, error) {
	state := m.packStates[pid]

	if !state.Bits()[op] && !slices.Contains(state.Candidates(nil), op) {
		return false, errs.NewAt("Manager.Execute", errs.CodeIllegalTransition, pid, -1,
			"op "+state.OpName(op)+" predecessor bits not set")
	}

	if rs, ok := state.(*packstate.ReadState); ok && op == packstate.OpSubmit {
		m.captureWitness(rs)
	}

	if err := state.Execute(op, m.vStorage, m.rStorage); err != nil {
		return false, err
	}
	m.obs.ObserveExecute(pid, state.IsWrite(), state.OpName(op))

	if rs, ok := state.(*packstate.ReadState); ok && op == packstate.OpEndReq {
		if err := m.validateRead(rs); err != nil {
			return false, err
		}
	}

	return m.advanceWatermark(pid), nil
}

// advanceWatermark moves firstNotEndedPid past pid and every consecutive
// already-ended pack that follows it, but only if every pack from the
// current watermark up to pid has also ended (spec.md §4.4: the watermark
// is the lowest not-yet-ended pid, so it cannot skip over a still-open
// pack).
func (m *Manager) advanceWatermark(pid int64) bool {
	if !m.packStates[pid].IsEnded() {
		return false
	}
	for i := m.firstNotEndedPid; i < pid; i++ {
		if !m.packStates[i].IsEnded() {
			return false
		}
	}
	old := m.firstNotEndedPid
	next := pid + 1
	for next < m.totalNumPacks && m.packStates[next].IsEnded() {
		next++
	}
	m.firstNotEndedPid = next
	m.obs.ObserveWatermarkAdvance(old, next)
	return true
}

// DoCrashRecovery implements spec.md §4.4's crash recovery: walking packs
// from the watermark forward, replaying incomplete writes and finalizing
// everything else, stopping at the first write pack whose log pack never
// completed (the point past which nothing was durably logged). It returns
// the watermark value after recovery.
func (m *Manager) DoCrashRecovery() (int64, error) {
	pid := m.firstNotEndedPid
	for ; pid < m.totalNumPacks; pid++ {
		state := m.packStates[pid]

		if ws, ok := state.(*packstate.WriteState); ok {
			if !ws.CompleteLpackSet() {
				break
			}
			if !ws.WriteVstorageSet() {
				// The log pack completed but vStorage never saw the write:
				// redo the whole write from scratch, log and data path
				// alike, against both shadow devices.
				ws.ResetForRecovery()
				for _, op := range []packstate.Op{
					packstate.OpSubmitLpack, packstate.OpCompleteLpack, packstate.OpWriteVstorage,
					packstate.OpSubmitDpack, packstate.OpWriteRstorage,
				} {
					if err := ws.Execute(op, m.vStorage, m.rStorage); err != nil {
						return pid, err
					}
				}
			} else if !ws.WriteRstorageSet() {
				// vStorage already has the write; only the data path
				// (rStorage) needs to catch up.
				if !ws.SubmitDpackSet() {
					if err := ws.Execute(packstate.OpSubmitDpack, m.vStorage, m.rStorage); err != nil {
						return pid, err
					}
				}
				if err := ws.Execute(packstate.OpWriteRstorage, m.vStorage, m.rStorage); err != nil {
					return pid, err
				}
			}
		}

		state.ForceSetAll()
	}
	m.firstNotEndedPid = pid
	return pid, nil
}
