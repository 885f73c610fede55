package core

import "github.com/walb-linux/walbsim/internal/errs"

// DiskImage is a flat, fixed-size byte array standing in for a block
// device. The simulator never models block sizes other than one byte
// (spec.md §1 Non-goals), so addr/size here are plain byte offsets.
type DiskImage struct {
	data []byte
}

// NewDiskImage allocates a zeroed image of the given size.
func NewDiskImage(size int) (*DiskImage, error) {
	if size <= 0 {
		return nil, errs.New("NewDiskImage", errs.CodeConstruction, "disk image size must be positive")
	}
	return &DiskImage{data: make([]byte, size)}, nil
}

// NewDiskImageFromBytes wraps an existing byte slice, copying it so the
// image owns its storage.
func NewDiskImageFromBytes(b []byte) (*DiskImage, error) {
	if len(b) == 0 {
		return nil, errs.New("NewDiskImageFromBytes", errs.CodeConstruction, "disk image size must be positive")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return &DiskImage{data: cp}, nil
}

// Size returns the image length in bytes.
func (d *DiskImage) Size() int { return len(d.data) }

// Bytes returns the image's underlying storage. Callers must not retain or
// mutate the returned slice across a Clone boundary.
func (d *DiskImage) Bytes() []byte { return d.data }

// ByteAt returns the byte stored at addr.
func (d *DiskImage) ByteAt(addr uint64) byte { return d.data[addr] }

// Clone returns an independent copy of the image.
func (d *DiskImage) Clone() *DiskImage {
	cp := make([]byte, len(d.data))
	copy(cp, d.data)
	return &DiskImage{data: cp}
}

// Write copies p into the image starting at addr. The caller guarantees
// addr+len(p) <= Size(); the manager rejects, at construction, any request
// whose range extends past the disk image it is given.
func (d *DiskImage) Write(addr uint64, p []byte) {
	copy(d.data[addr:addr+uint64(len(p))], p)
}

// Read copies len(p) bytes from the image starting at addr into p.
func (d *DiskImage) Read(addr uint64, p []byte) {
	copy(p, d.data[addr:addr+uint64(len(p))])
}

// DiffEntry is one byte address at which two images disagree.
type DiffEntry struct {
	Addr uint64
	Left byte
	Right byte
}

// Diff returns every address at which lhs and rhs disagree, in ascending
// address order. Both images must be the same size.
func Diff(lhs, rhs *DiskImage) []DiffEntry {
	if lhs.Size() != rhs.Size() {
		panic("core: Diff called on images of different sizes")
	}
	var out []DiffEntry
	for i := 0; i < lhs.Size(); i++ {
		if lhs.data[i] != rhs.data[i] {
			out = append(out, DiffEntry{Addr: uint64(i), Left: lhs.data[i], Right: rhs.data[i]})
		}
	}
	return out
}
