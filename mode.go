package walbsim

import "github.com/walb-linux/walbsim/internal/packstate"

// Mode selects WALB's write-visibility path.
type Mode = packstate.Mode

const (
	// Fast is the primary mode: writes become visible on vStorage as soon
	// as the log pack completes.
	Fast = packstate.Fast
	// Slow ends the user request only after the data pack completes;
	// vStorage is still written once the log pack completes.
	Slow = packstate.Slow
)
