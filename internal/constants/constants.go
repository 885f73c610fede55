// Package constants holds the simulator's default tunables, re-exported at
// the module root the way the teacher re-exports its device defaults.
package constants

// Default configuration constants for a simulator run.
const (
	// DefaultNPlug is the default lookahead window width, in plugs, that
	// PackStateManager.GetCandidates searches per tick.
	DefaultNPlug = 2

	// DefaultShuffle selects whether candidates are chosen uniformly at
	// random (true) or by always taking the first candidate in scan order
	// (false, the deterministic reference schedule).
	DefaultShuffle = true

	// DefaultCrashPctPerTick is the probability, out of 100, that a crash
	// is injected before each tick once a run has started.
	DefaultCrashPctPerTick = 0

	// DefaultNLoop is the total number of runs in a cross-loop divergence
	// check: one deterministic reference run plus DefaultNLoop-1 shuffled
	// runs compared against it.
	DefaultNLoop = 8

	// DefaultDiskSize is the size, in bytes, of a demo disk image when no
	// workload-specific size is supplied.
	DefaultDiskSize = 64

	// MinNPlug is the smallest lookahead window width the manager accepts;
	// below it a pack could never become a candidate on its own plug.
	MinNPlug = 1
)
