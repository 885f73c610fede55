// Package packbuilder groups a plug's requests into the non-overlapping,
// direction-uniform packs the pack-state machines operate on.
package packbuilder

import "github.com/walb-linux/walbsim/internal/core"

// Build walks reqs in submission order, maintaining one open read-pack and
// one open write-pack. Each request is routed to the open pack matching its
// direction; if it overlaps that pack, the pack is closed (appended to the
// output) and a fresh one opened before the request is added. Both open
// packs are flushed at the end.
//
// The returned packs preserve the direction-grouped request order: reading
// off all write-pack requests in order, then all read-pack requests in
// order, reproduces each direction's submission order (not the original
// interleaved order — a read and a write arriving adjacently are routed to
// separate packs by direction and never block each other).
func Build(reqs []*core.Request) ([]*core.Pack, error) {
	var packs []*core.Pack
	var openWrite, openRead []*core.Request

	flush := func(open []*core.Request, isWrite bool) ([]*core.Request, error) {
		if len(open) == 0 {
			return open, nil
		}
		p, err := core.NewPack(isWrite, open)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
		return nil, nil
	}

	appendOverlapping := func(open []*core.Request, req *core.Request, isWrite bool) ([]*core.Request, error) {
		if overlapsAny(open, req) {
			var err error
			open, err = flush(open, isWrite)
			if err != nil {
				return nil, err
			}
		}
		return append(open, req), nil
	}

	for _, req := range reqs {
		var err error
		if req.IsWrite {
			openWrite, err = appendOverlapping(openWrite, req, true)
		} else {
			openRead, err = appendOverlapping(openRead, req, false)
		}
		if err != nil {
			return nil, err
		}
	}

	var err error
	if openWrite, err = flush(openWrite, true); err != nil {
		return nil, err
	}
	if openRead, err = flush(openRead, false); err != nil {
		return nil, err
	}

	return packs, nil
}

// BuildPlugs runs Build independently over each plug's request list,
// preserving plug order.
func BuildPlugs(reqsByPlug [][]*core.Request) ([][]*core.Pack, error) {
	out := make([][]*core.Pack, len(reqsByPlug))
	for i, reqs := range reqsByPlug {
		packs, err := Build(reqs)
		if err != nil {
			return nil, err
		}
		out[i] = packs
	}
	return out, nil
}

func overlapsAny(open []*core.Request, req *core.Request) bool {
	for _, o := range open {
		if o.Overlaps(req) {
			return true
		}
	}
	return false
}
