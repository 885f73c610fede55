package packbuilder

import (
	"testing"

	"github.com/walb-linux/walbsim/internal/core"
)

func TestBuildGroupsNonOverlappingIntoOnePack(t *testing.T) {
	w1 := core.NewRequest(0, 4, true, make([]byte, 4))
	w2 := core.NewRequest(8, 4, true, make([]byte, 4))
	packs, err := Build([]*core.Request{w1, w2})
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack for non-overlapping writes, got %d", len(packs))
	}
}

func TestBuildSplitsOnOverlap(t *testing.T) {
	w1 := core.NewRequest(0, 4, true, make([]byte, 4))
	w2 := core.NewRequest(2, 4, true, make([]byte, 4))
	packs, err := Build([]*core.Request{w1, w2})
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs when second write overlaps the first, got %d", len(packs))
	}
}

func TestBuildSeparatesReadsAndWritesByDirection(t *testing.T) {
	w := core.NewRequest(0, 4, true, make([]byte, 4))
	r := core.NewRequest(100, 4, false, nil)
	packs, err := Build([]*core.Request{w, r})
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 2 {
		t.Fatalf("expected separate read and write packs, got %d", len(packs))
	}
	writeCount, readCount := 0, 0
	for _, p := range packs {
		if p.IsWrite {
			writeCount++
		} else {
			readCount++
		}
	}
	if writeCount != 1 || readCount != 1 {
		t.Errorf("expected 1 write pack and 1 read pack, got %d/%d", writeCount, readCount)
	}
}

func TestBuildFlushesOpenPacksAtEnd(t *testing.T) {
	w := core.NewRequest(0, 4, true, make([]byte, 4))
	packs, err := Build([]*core.Request{w})
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected trailing open pack to be flushed, got %d packs", len(packs))
	}
}

func TestBuildPlugsPreservesPlugOrder(t *testing.T) {
	plug0 := []*core.Request{core.NewRequest(0, 4, true, make([]byte, 4))}
	plug1 := []*core.Request{core.NewRequest(4, 4, true, make([]byte, 4))}
	out, err := BuildPlugs([][]*core.Request{plug0, plug1})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 plugs worth of packs, got %d", len(out))
	}
}

func TestBuildEmptyInputYieldsNoPacks(t *testing.T) {
	// Build never hands core.NewPack an empty, mixed-direction or
	// overlapping request list (flush is only called with non-empty opens
	// and overlap closes the open pack first), so this test covers the
	// empty-input case: no packs and no error.
	packs, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 0 {
		t.Errorf("expected no packs for empty request list, got %d", len(packs))
	}
}
