package core

import "github.com/walb-linux/walbsim/internal/errs"

// Pack is an ordered, non-empty batch of requests of identical direction
// whose byte ranges are pairwise non-overlapping. pid is assigned once, by
// the manager, at registration time.
type Pack struct {
	IsWrite  bool
	Requests []*Request
	pid      int64
}

// NewPack constructs a pack from reqs, asserting the direction-uniform and
// non-overlap invariants spec.md §3 requires. A violation is a construction
// error (spec.md §7, CodeConstruction), not a panic: it is reported back to
// the external caller that assembled the plug.
func NewPack(isWrite bool, reqs []*Request) (*Pack, error) {
	if len(reqs) == 0 {
		return nil, errs.New("NewPack", errs.CodeConstruction, "pack must be non-empty")
	}
	for _, r := range reqs {
		if r.IsWrite != isWrite {
			return nil, errs.New("NewPack", errs.CodeConstruction, "pack direction is not uniform")
		}
	}
	p := &Pack{IsWrite: isWrite, Requests: reqs, pid: -1}
	if IsOverlapping(p, p) {
		return nil, errs.New("NewPack", errs.CodeConstruction, "pack has overlapping requests")
	}
	return p, nil
}

// PID returns the pack id assigned at registration, or -1 if unregistered.
func (p *Pack) PID() int64 { return p.pid }

// SetPID assigns the pack id. Callers outside this module's manager should
// not call this.
func (p *Pack) SetPID(pid int64) { p.pid = pid }

// HasAddr reports whether any request in the pack covers addr.
func (p *Pack) HasAddr(addr uint64) bool {
	for _, r := range p.Requests {
		if r.HasAddr(addr) {
			return true
		}
	}
	return false
}

// DataAt returns the payload byte at addr from whichever request in the
// pack covers it. addr must be covered by the pack.
func (p *Pack) DataAt(addr uint64) byte {
	for _, r := range p.Requests {
		if r.HasAddr(addr) {
			return r.DataAt(addr)
		}
	}
	panic("core: DataAt called with address not covered by pack")
}

// ForEachAddr calls fn once for every byte address any request in the pack
// covers, in request order.
func (p *Pack) ForEachAddr(fn func(addr uint64)) {
	for _, r := range p.Requests {
		for a := r.Addr; a < r.End(); a++ {
			fn(a)
		}
	}
}

// ExecuteIO applies every request in the pack to img, in request order.
func (p *Pack) ExecuteIO(img *DiskImage) {
	for _, r := range p.Requests {
		r.ExecuteIO(img)
	}
}

// overlappable is satisfied by both *Request and *Pack so IsOverlapping can
// compare either combination, mirroring the original source's isOverlap(a, b)
// where a and b may each be a Request or a Pack.
type overlappable interface {
	requestList() []*Request
}

func (r *Request) requestList() []*Request { return []*Request{r} }
func (p *Pack) requestList() []*Request     { return p.Requests }

// IsOverlapping reports whether any request in a overlaps any distinct
// request in b. Passing the same pack for both a and b checks the pack's
// own internal non-overlap invariant.
func IsOverlapping(a, b overlappable) bool {
	aL := a.requestList()
	bL := b.requestList()
	for _, ra := range aL {
		for _, rb := range bL {
			if ra == rb {
				continue
			}
			if ra.Overlaps(rb) {
				return true
			}
		}
	}
	return false
}
