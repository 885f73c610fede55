package walbsim

import (
	"github.com/walb-linux/walbsim/internal/core"
	"github.com/walb-linux/walbsim/internal/packbuilder"
)

// Request, Pack, Plug, DiskImage, and DiffEntry are re-exported so callers
// never need to import the internal packages directly.
type (
	Request   = core.Request
	Pack      = core.Pack
	Plug      = core.Plug
	DiskImage = core.DiskImage
	DiffEntry = core.DiffEntry
)

// NewWriteRequest constructs a write request carrying data as its payload.
func NewWriteRequest(addr, size uint64, data []byte) *Request {
	return core.NewRequest(addr, size, true, data)
}

// NewReadRequest constructs a read request with a fresh zeroed buffer.
func NewReadRequest(addr, size uint64) *Request {
	return core.NewRequest(addr, size, false, nil)
}

// NewDiskImage allocates a zeroed disk image of the given size.
func NewDiskImage(size int) (*DiskImage, error) {
	return core.NewDiskImage(size)
}

// NewDiskImageFromBytes wraps an existing byte slice as a disk image.
func NewDiskImageFromBytes(b []byte) (*DiskImage, error) {
	return core.NewDiskImageFromBytes(b)
}

// Diff returns every address at which lhs and rhs disagree.
func Diff(lhs, rhs *DiskImage) []DiffEntry {
	return core.Diff(lhs, rhs)
}

// BuildPacks groups one plug's requests into non-overlapping,
// direction-uniform packs (spec.md §4.1's PackBuilder).
func BuildPacks(reqs []*Request) ([]*Pack, error) {
	return packbuilder.Build(reqs)
}

// BuildPlugs runs BuildPacks independently over each plug's request list,
// preserving plug order.
func BuildPlugs(reqsByPlug [][]*Request) ([][]*Pack, error) {
	return packbuilder.BuildPlugs(reqsByPlug)
}
