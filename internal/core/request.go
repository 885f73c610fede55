// Package core holds the immutable data model shared by every layer of the
// simulator: requests, packs, disk images, and the byte-range helpers the
// pack builder and pack-state machines are built on.
package core

// Request is a single byte-granular block I/O: a write carries the payload
// to apply, a read carries the buffer the simulator fills in place.
//
// rid is assigned once, by the manager, at registration time; it is -1
// until then.
type Request struct {
	Addr    uint64
	Size    uint64
	IsWrite bool
	Data    []byte
	rid     int64
}

// NewRequest constructs a write or read request. For a write, data must
// have length size and holds the payload; for a read, data is ignored and
// a fresh zero buffer of length size is allocated to receive the result.
func NewRequest(addr, size uint64, isWrite bool, data []byte) *Request {
	r := &Request{Addr: addr, Size: size, IsWrite: isWrite, rid: -1}
	if isWrite {
		r.Data = append([]byte(nil), data...)
	} else {
		r.Data = make([]byte, size)
	}
	return r
}

// RID returns the request id assigned at registration, or -1 if the
// request has not been registered with a manager yet.
func (r *Request) RID() int64 { return r.rid }

// SetRID assigns the request id. Callers outside this module's manager
// should not call this.
func (r *Request) SetRID(rid int64) { r.rid = rid }

// End returns the exclusive upper bound of the request's byte range.
func (r *Request) End() uint64 { return r.Addr + r.Size }

// HasAddr reports whether addr falls within the request's byte range.
func (r *Request) HasAddr(addr uint64) bool {
	return r.Addr <= addr && addr < r.End()
}

// DataAt returns the payload byte at addr, which must be within range.
func (r *Request) DataAt(addr uint64) byte {
	return r.Data[addr-r.Addr]
}

// overlapsRange reports whether [addr, addr+size) intersects the request's
// byte range.
func (r *Request) overlapsRange(addr, size uint64) bool {
	return !(r.End() <= addr || addr+size <= r.Addr)
}

// Overlaps reports whether two requests' byte ranges intersect.
func (r *Request) Overlaps(o *Request) bool {
	return r.overlapsRange(o.Addr, o.Size)
}

// ExecuteIO applies the request to img: a write copies Data into the
// image, a read copies the image's bytes into Data.
func (r *Request) ExecuteIO(img *DiskImage) {
	if r.IsWrite {
		img.Write(r.Addr, r.Data)
	} else {
		img.Read(r.Addr, r.Data)
	}
}
