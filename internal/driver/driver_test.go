package driver

import (
	"math/rand"
	"testing"

	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/manager"
	"github.com/walb-linux/walbsim/internal/metrics"
	"github.com/walb-linux/walbsim/internal/packbuilder"
	"github.com/walb-linux/walbsim/internal/packstate"
)

func buildTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	disk, err := core.NewDiskImage(32)
	if err != nil {
		t.Fatal(err)
	}
	reqs := [][]*core.Request{
		{
			core.NewRequest(0, 4, true, []byte{1, 1, 1, 1}),
			core.NewRequest(8, 4, true, []byte{2, 2, 2, 2}),
		},
		{
			core.NewRequest(4, 4, true, []byte{3, 3, 3, 3}),
		},
	}
	plugs, err := packbuilder.BuildPlugs(reqs)
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := manager.NewManager(disk, plugs, packstate.Fast)
	if err != nil {
		t.Fatal(err)
	}
	return mgr
}

func TestDriverRunDrainsToConvergence(t *testing.T) {
	mgr := buildTestManager(t)
	d := New(2, nil, nil)
	history, err := d.Run(mgr, FirstCandidateChooser{})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) == 0 {
		t.Fatal("expected a non-empty executed-step history")
	}
	if !mgr.Done() {
		t.Fatal("expected manager done after drain")
	}
	if err := CheckDrainConvergence(mgr); err != nil {
		t.Errorf("expected convergence, got %v", err)
	}
}

func TestDriverRunRecordsScheduleLenHistogram(t *testing.T) {
	mgr := buildTestManager(t)
	m := metrics.NewMetrics()
	d := New(2, nil, m)
	if _, err := d.Run(mgr, FirstCandidateChooser{}); err != nil {
		t.Fatal(err)
	}
	snap := m.Snapshot()
	if snap.TickCount == 0 {
		t.Error("expected at least one recorded schedule-length tick")
	}
}

func TestDriverShuffledRunStillConverges(t *testing.T) {
	mgr := buildTestManager(t)
	d := New(2, nil, nil)
	chooser := NewShuffleChooser(rand.New(rand.NewSource(42)))
	if _, err := d.Run(mgr, chooser); err != nil {
		t.Fatal(err)
	}
	if err := CheckDrainConvergence(mgr); err != nil {
		t.Errorf("expected convergence under shuffle, got %v", err)
	}
}

func TestDriverRunWithCrashRecoversAndConverges(t *testing.T) {
	mgr := buildTestManager(t)
	d := New(2, nil, nil)
	chooser := NewShuffleChooser(rand.New(rand.NewSource(7)))
	rng := rand.New(rand.NewSource(99))
	// crashPct=100 forces an immediate crash on the very first tick.
	_, crashed, err := d.RunWithCrash(mgr, chooser, 100, rng)
	if err != nil {
		t.Fatal(err)
	}
	if !crashed {
		t.Fatal("expected crash to be injected with crashPct=100")
	}
	if err := CheckDrainConvergence(mgr); err != nil {
		t.Errorf("expected convergence after crash recovery, got %v", err)
	}
}

func TestScriptedChooserReplaysIndicesThenFallsBack(t *testing.T) {
	c := NewScriptedChooser([]int{1, 0})
	cands := []manager.Candidate{{PackID: 0}, {PackID: 1}, {PackID: 2}}

	if got := c.Choose(cands); got.PackID != 1 {
		t.Errorf("expected first scripted choice pid=1, got %d", got.PackID)
	}
	if got := c.Choose(cands); got.PackID != 0 {
		t.Errorf("expected second scripted choice pid=0, got %d", got.PackID)
	}
	if got := c.Choose(cands); got.PackID != 0 {
		t.Errorf("expected fallback to candidates[0] once exhausted, got %d", got.PackID)
	}
}

func TestScriptedChooserClampsOutOfRangeIndex(t *testing.T) {
	c := NewScriptedChooser([]int{5})
	cands := []manager.Candidate{{PackID: 0}, {PackID: 1}}
	got := c.Choose(cands)
	if got.PackID != 1 {
		t.Errorf("expected out-of-range index clamped to last candidate, got pid=%d", got.PackID)
	}
}

func TestRunCrossLoopCheckNoDivergence(t *testing.T) {
	disk, err := core.NewDiskImage(32)
	if err != nil {
		t.Fatal(err)
	}
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{1, 1, 1, 1})},
		{core.NewRequest(8, 4, true, []byte{2, 2, 2, 2})},
	}
	plugs, err := packbuilder.BuildPlugs(reqs)
	if err != nil {
		t.Fatal(err)
	}
	d := New(2, nil, nil)
	result, err := d.RunCrossLoopCheck(disk, plugs, packstate.Fast, 4, 123)
	if err != nil {
		t.Fatalf("expected no cross-loop divergence for non-overlapping writes, got %v", err)
	}
	if result.Runs != 4 || len(result.Divergences) != 0 {
		t.Errorf("unexpected cross-loop result: %+v", result)
	}
}
