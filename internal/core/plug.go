package core

// Plug is an ordered, non-empty list of packs produced from one burst of
// submitted requests. A plug is a scheduling fence: the manager's
// lookahead window is expressed in units of plugs, not packs.
type Plug struct {
	Packs []*Pack
}

// NewPlug wraps packs as a Plug. The caller is responsible for having
// produced packs via the pack builder so the non-overlap and
// direction-uniform invariants already hold.
func NewPlug(packs []*Pack) *Plug {
	return &Plug{Packs: packs}
}
