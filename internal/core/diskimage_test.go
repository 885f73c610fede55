package core

import "testing"

func TestDiskImageCloneIsIndependent(t *testing.T) {
	img, err := NewDiskImage(4)
	if err != nil {
		t.Fatal(err)
	}
	img.Write(0, []byte{1, 2, 3, 4})

	clone := img.Clone()
	clone.Write(0, []byte{9, 9, 9, 9})

	if img.ByteAt(0) != 1 {
		t.Errorf("expected original image unaffected by clone write, got %d", img.ByteAt(0))
	}
}

func TestDiskImageDiff(t *testing.T) {
	a, _ := NewDiskImageFromBytes([]byte{1, 2, 3, 4})
	b, _ := NewDiskImageFromBytes([]byte{1, 9, 3, 8})

	diff := Diff(a, b)
	if len(diff) != 2 {
		t.Fatalf("expected 2 differing addresses, got %d", len(diff))
	}
	if diff[0].Addr != 1 || diff[0].Left != 2 || diff[0].Right != 9 {
		t.Errorf("unexpected first diff entry: %+v", diff[0])
	}
	if diff[1].Addr != 3 || diff[1].Left != 4 || diff[1].Right != 8 {
		t.Errorf("unexpected second diff entry: %+v", diff[1])
	}
}

func TestDiskImageDiffEmpty(t *testing.T) {
	a, _ := NewDiskImageFromBytes([]byte{1, 2, 3})
	b, _ := NewDiskImageFromBytes([]byte{1, 2, 3})
	if diff := Diff(a, b); len(diff) != 0 {
		t.Errorf("expected no diff, got %v", diff)
	}
}

func TestNewDiskImageRejectsNonPositiveSize(t *testing.T) {
	if _, err := NewDiskImage(0); err == nil {
		t.Error("expected error for zero-size disk image")
	}
}
