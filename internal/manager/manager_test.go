package manager

import (
	"testing"

	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/errs"
	"github.com/walb-linux/walbsim/internal/packbuilder"
	"github.com/walb-linux/walbsim/internal/packstate"
)

func buildManager(t *testing.T, reqsByPlug [][]*core.Request, mode packstate.Mode, opts ...Option) (*Manager, *core.DiskImage) {
	t.Helper()
	disk, err := core.NewDiskImage(64)
	if err != nil {
		t.Fatal(err)
	}
	plugs, err := packbuilder.BuildPlugs(reqsByPlug)
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := NewManager(disk, plugs, mode, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return mgr, disk
}

func drainFirstCandidate(t *testing.T, mgr *Manager, nPlug int) int {
	t.Helper()
	steps := 0
	for {
		cands := mgr.GetCandidates(nPlug)
		if len(cands) == 0 {
			break
		}
		c := cands[0]
		if _, err := mgr.Execute(c.PackID, c.Op); err != nil {
			t.Fatalf("execute %+v: %v", c, err)
		}
		steps++
		if steps > 10000 {
			t.Fatal("drain did not converge")
		}
	}
	return steps
}

func TestManagerDrainsNonOverlappingWritesToConvergence(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{1, 1, 1, 1})},
		{core.NewRequest(8, 4, true, []byte{2, 2, 2, 2})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)
	drainFirstCandidate(t, mgr, 2)

	if !mgr.Done() {
		t.Fatal("expected manager done after full drain")
	}
	diff := core.Diff(mgr.VStorage(), mgr.RStorage())
	if len(diff) != 0 {
		t.Errorf("expected vStorage/rStorage to converge, diff=%v", diff)
	}
}

func TestManagerOverlappingWritesSerializeDataPath(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{1, 1, 1, 1})},
		{core.NewRequest(2, 4, true, []byte{2, 2, 2, 2})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)
	drainFirstCandidate(t, mgr, 2)

	diff := core.Diff(mgr.VStorage(), mgr.RStorage())
	if len(diff) != 0 {
		t.Errorf("expected convergence after serialized overlap, diff=%v", diff)
	}
	// last writer wins on the overlapped bytes
	if mgr.VStorage().ByteAt(2) != 2 {
		t.Errorf("expected later overlapping write to win at addr 2, got %d", mgr.VStorage().ByteAt(2))
	}
}

func TestManagerReadValidatesAgainstWitness(t *testing.T) {
	reqs := [][]*core.Request{
		{
			core.NewRequest(0, 4, true, []byte{9, 9, 9, 9}),
			core.NewRequest(0, 4, false, nil),
		},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)
	drainFirstCandidate(t, mgr, 1)

	if !mgr.Done() {
		t.Fatal("expected done")
	}
	readPack := mgr.State(1).Pack()
	if readPack.DataAt(0) != 9 {
		t.Errorf("expected read to observe the write's data, got %d", readPack.DataAt(0))
	}
}

func TestManagerWatermarkAdvancesOnlyInOrder(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, make([]byte, 4))},
		{core.NewRequest(8, 4, true, make([]byte, 4))},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)

	if mgr.FirstNotEndedPid() != 0 {
		t.Fatalf("expected watermark 0 initially, got %d", mgr.FirstNotEndedPid())
	}

	// Fully end pack 1 before pack 0; watermark must not advance past 0.
	for _, op := range []packstate.Op{packstate.OpSubmitLpack, packstate.OpCompleteLpack, packstate.OpWriteVstorage, packstate.OpSubmitDpack, packstate.OpWriteRstorage, packstate.OpCompleteDpack, packstate.OpEndReqWrite} {
		if _, err := mgr.Execute(1, op); err != nil {
			t.Fatalf("execute pack1 op %v: %v", op, err)
		}
	}
	if mgr.FirstNotEndedPid() != 0 {
		t.Errorf("expected watermark stuck at 0 while pack 0 is still open, got %d", mgr.FirstNotEndedPid())
	}

	for _, op := range []packstate.Op{packstate.OpSubmitLpack, packstate.OpCompleteLpack, packstate.OpWriteVstorage, packstate.OpSubmitDpack, packstate.OpWriteRstorage, packstate.OpCompleteDpack, packstate.OpEndReqWrite} {
		if _, err := mgr.Execute(0, op); err != nil {
			t.Fatalf("execute pack0 op %v: %v", op, err)
		}
	}
	if mgr.FirstNotEndedPid() != 2 {
		t.Errorf("expected watermark to jump to 2 once pack 0 ends, got %d", mgr.FirstNotEndedPid())
	}
}

func TestManagerCrashRecoveryBeforeLogComplete(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{5, 5, 5, 5})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)

	if _, err := mgr.Execute(0, packstate.OpSubmitLpack); err != nil {
		t.Fatal(err)
	}
	pid, err := mgr.DoCrashRecovery()
	if err != nil {
		t.Fatal(err)
	}
	if pid != 0 {
		t.Errorf("expected recovery to stop at pid 0 (log pack never completed), got %d", pid)
	}
	if mgr.VStorage().ByteAt(0) != mgr.FStorage().ByteAt(0) {
		t.Error("expected vStorage unchanged since write never durably logged")
	}
}

func TestManagerCrashRecoveryAfterLogCompleteRedoesWrite(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{5, 5, 5, 5})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)

	for _, op := range []packstate.Op{packstate.OpSubmitLpack, packstate.OpCompleteLpack} {
		if _, err := mgr.Execute(0, op); err != nil {
			t.Fatal(err)
		}
	}
	pid, err := mgr.DoCrashRecovery()
	if err != nil {
		t.Fatal(err)
	}
	if pid != 1 {
		t.Errorf("expected recovery to finalize the only pack, watermark=%d", pid)
	}
	if mgr.VStorage().ByteAt(0) != 5 || mgr.RStorage().ByteAt(0) != 5 {
		t.Errorf("expected write redone to completion on both shadows, vStorage=%d rStorage=%d",
			mgr.VStorage().ByteAt(0), mgr.RStorage().ByteAt(0))
	}
}

func TestManagerCrashRecoveryDpackOnlyCatchUp(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{7, 7, 7, 7})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)

	for _, op := range []packstate.Op{packstate.OpSubmitLpack, packstate.OpCompleteLpack, packstate.OpWriteVstorage} {
		if _, err := mgr.Execute(0, op); err != nil {
			t.Fatal(err)
		}
	}
	pid, err := mgr.DoCrashRecovery()
	if err != nil {
		t.Fatal(err)
	}
	if pid != 1 {
		t.Errorf("expected watermark to reach 1, got %d", pid)
	}
	if mgr.RStorage().ByteAt(0) != 7 {
		t.Errorf("expected rStorage caught up via crash recovery, got %d", mgr.RStorage().ByteAt(0))
	}
}

func TestManagerDrainsSlowModeOverlappingWritesToConvergence(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, []byte{1, 1, 1, 1})},
		{core.NewRequest(0, 4, true, []byte{2, 2, 2, 2})},
	}
	mgr, _ := buildManager(t, reqs, packstate.Slow)
	drainFirstCandidate(t, mgr, 2)

	if !mgr.Done() {
		t.Fatal("expected manager done after drain")
	}
	diff := core.Diff(mgr.VStorage(), mgr.RStorage())
	if len(diff) != 0 {
		t.Errorf("expected vStorage == rStorage in slow mode after drain, got diff %+v", diff)
	}
	if mgr.RStorage().ByteAt(0) != 2 {
		t.Errorf("expected second plug's write to win, got %d", mgr.RStorage().ByteAt(0))
	}
}

func TestManagerIllegalTransitionErrorCode(t *testing.T) {
	reqs := [][]*core.Request{
		{core.NewRequest(0, 4, true, make([]byte, 4))},
	}
	mgr, _ := buildManager(t, reqs, packstate.Fast)
	if _, err := mgr.Execute(0, packstate.OpSubmitLpack); err != nil {
		t.Fatal(err)
	}
	_, err := mgr.Execute(0, packstate.OpSubmitLpack)
	if !errs.IsCode(err, errs.CodeIllegalTransition) {
		t.Errorf("expected CodeIllegalTransition, got %v", err)
	}
}
