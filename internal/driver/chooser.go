package driver

import (
	"math/rand"

	"github.com/walb-linux/walbsim/internal/manager"
)

// Chooser picks one candidate to execute next out of the manager's current
// offer. Implementations must not retain candidates past the call.
type Chooser interface {
	Choose(candidates []manager.Candidate) manager.Candidate
}

// FirstCandidateChooser always takes candidates[0]: the deterministic
// reference schedule walb_sim.py's simulate() uses when shuffle is
// disabled.
type FirstCandidateChooser struct{}

func (FirstCandidateChooser) Choose(candidates []manager.Candidate) manager.Candidate {
	return candidates[0]
}

// ShuffleChooser picks uniformly at random among the offered candidates,
// mirroring simulate()'s random.choice(candidates).
type ShuffleChooser struct {
	Rand *rand.Rand
}

// NewShuffleChooser wraps a seeded source. Passing a nil source is a
// programmer error; callers construct it via rand.New(rand.NewSource(seed)).
func NewShuffleChooser(r *rand.Rand) *ShuffleChooser {
	return &ShuffleChooser{Rand: r}
}

func (c *ShuffleChooser) Choose(candidates []manager.Candidate) manager.Candidate {
	return candidates[c.Rand.Intn(len(candidates))]
}

// ScriptedChooser replays a fixed sequence of choices, selecting by index
// into the candidate list rather than by value — useful for tests that
// need to force a specific interleaving. When the script is exhausted it
// falls back to FirstCandidateChooser.
type ScriptedChooser struct {
	Indices []int
	pos     int
}

func NewScriptedChooser(indices []int) *ScriptedChooser {
	return &ScriptedChooser{Indices: indices}
}

func (c *ScriptedChooser) Choose(candidates []manager.Candidate) manager.Candidate {
	if c.pos >= len(c.Indices) {
		return candidates[0]
	}
	idx := c.Indices[c.pos]
	c.pos++
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	return candidates[idx]
}
