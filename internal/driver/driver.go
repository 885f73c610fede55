// Package driver implements the simulator's tick loop: repeatedly asking a
// Manager for candidates, handing them to a Chooser, executing the pick,
// and — optionally — injecting a crash mid-run and invoking recovery. It
// also implements the cross-loop divergence check walb_sim.py's main()
// runs across repeated shuffled simulations.
package driver

import (
	"math/rand"

	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/errs"
	"github.com/walb-linux/walbsim/internal/logging"
	"github.com/walb-linux/walbsim/internal/manager"
	"github.com/walb-linux/walbsim/internal/metrics"
	"github.com/walb-linux/walbsim/internal/packstate"
)

// Step records one executed (pack, op) pair, for replay and diagnostics.
type Step struct {
	PackID int64
	Op     packstate.Op
	OpName string
}

// Driver runs a manager's tick loop to completion (or to an injected
// crash), optionally recording metrics and logging each step.
type Driver struct {
	NPlug   int
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// New constructs a Driver. A nil logger or metrics is fine; both are
// treated as disabled.
func New(nPlug int, logger *logging.Logger, m *metrics.Metrics) *Driver {
	return &Driver{NPlug: nPlug, Logger: logger, Metrics: m}
}

// Run drives mgr to completion: repeatedly fetching candidates, asking
// chooser to pick one, and executing it, until no candidates remain. It
// returns the full executed-step history.
func (d *Driver) Run(mgr *manager.Manager, chooser Chooser) ([]Step, error) {
	var history []Step
	for {
		candidates := mgr.GetCandidates(d.NPlug)
		if d.Metrics != nil {
			d.Metrics.RecordScheduleLen(len(candidates))
		}
		if len(candidates) == 0 {
			break
		}
		chosen := chooser.Choose(candidates)
		state := mgr.State(chosen.PackID)
		if _, err := mgr.Execute(chosen.PackID, chosen.Op); err != nil {
			return history, err
		}
		history = append(history, Step{PackID: chosen.PackID, Op: chosen.Op, OpName: state.OpName(chosen.Op)})
		if d.Logger != nil {
			d.Logger.Debugf("executed pid=%d op=%s", chosen.PackID, state.OpName(chosen.Op))
		}
	}
	return history, nil
}

// RunWithCrash behaves like Run, but before each tick rolls a crashPct/100
// chance of crashing the run early. On a crash it stops executing,
// invokes mgr.DoCrashRecovery, and returns crashed=true; the recovered
// watermark is available from mgr.FirstNotEndedPid.
func (d *Driver) RunWithCrash(mgr *manager.Manager, chooser Chooser, crashPct int, rng *rand.Rand) ([]Step, bool, error) {
	var history []Step
	for {
		candidates := mgr.GetCandidates(d.NPlug)
		if d.Metrics != nil {
			d.Metrics.RecordScheduleLen(len(candidates))
		}
		if len(candidates) == 0 {
			break
		}
		if crashPct > 0 && rng.Intn(100) < crashPct {
			if d.Logger != nil {
				d.Logger.Infof("crash injected at watermark pid=%d", mgr.FirstNotEndedPid())
			}
			if d.Metrics != nil {
				d.Metrics.CrashInjections.Add(1)
			}
			if _, err := mgr.DoCrashRecovery(); err != nil {
				return history, true, err
			}
			return history, true, nil
		}
		chosen := chooser.Choose(candidates)
		state := mgr.State(chosen.PackID)
		if _, err := mgr.Execute(chosen.PackID, chosen.Op); err != nil {
			return history, false, err
		}
		history = append(history, Step{PackID: chosen.PackID, Op: chosen.Op, OpName: state.OpName(chosen.Op)})
	}
	return history, false, nil
}

// CheckDrainConvergence reports an error if mgr's vStorage and rStorage
// disagree anywhere. Callers run this after a Run that drained to no
// candidates, or after RunWithCrash's recovery, per spec.md §8.
func CheckDrainConvergence(mgr *manager.Manager) error {
	diff := core.Diff(mgr.VStorage(), mgr.RStorage())
	if len(diff) == 0 {
		return nil
	}
	d := diff[0]
	return errs.NewAt("CheckDrainConvergence", errs.CodeDrainDivergence, -1, int64(d.Addr),
		"vStorage and rStorage disagree after drain")
}

// CrossLoopResult holds the outcome of comparing nLoop independently
// shuffled runs against a deterministic reference run, as in
// walb_sim.py's main().
type CrossLoopResult struct {
	ReferenceImage *core.DiskImage
	Runs           int
	Divergences    []core.DiffEntry
}

// RunCrossLoopCheck builds a fresh Manager per loop from disk/plugs, runs
// loop 0 with FirstCandidateChooser as the reference and every subsequent
// loop with a seeded ShuffleChooser, and compares each shuffled run's
// final rStorage against the reference's. A non-empty Divergences slice is
// CodeCrossLoopDivergence (spec.md §7).
func (d *Driver) RunCrossLoopCheck(disk *core.DiskImage, plugs [][]*core.Pack, mode packstate.Mode, nLoop int, seed int64) (*CrossLoopResult, error) {
	refMgr, err := manager.NewManager(disk, plugs, mode)
	if err != nil {
		return nil, err
	}
	if _, err := d.Run(refMgr, FirstCandidateChooser{}); err != nil {
		return nil, err
	}
	if err := CheckDrainConvergence(refMgr); err != nil {
		return nil, err
	}

	result := &CrossLoopResult{ReferenceImage: refMgr.RStorage(), Runs: nLoop}
	rng := rand.New(rand.NewSource(seed))
	for loop := 1; loop < nLoop; loop++ {
		loopMgr, err := manager.NewManager(disk, plugs, mode)
		if err != nil {
			return nil, err
		}
		chooser := NewShuffleChooser(rand.New(rand.NewSource(rng.Int63())))
		if _, err := d.Run(loopMgr, chooser); err != nil {
			return nil, err
		}
		if err := CheckDrainConvergence(loopMgr); err != nil {
			return nil, err
		}
		diff := core.Diff(result.ReferenceImage, loopMgr.RStorage())
		if len(diff) > 0 {
			result.Divergences = append(result.Divergences, diff...)
		}
	}

	if len(result.Divergences) > 0 {
		d0 := result.Divergences[0]
		return result, errs.NewAt("RunCrossLoopCheck", errs.CodeCrossLoopDivergence, -1, int64(d0.Addr),
			"a shuffled run's terminal rStorage differs from the reference run's")
	}
	return result, nil
}
