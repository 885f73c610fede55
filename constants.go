package walbsim

import "github.com/walb-linux/walbsim/internal/constants"

// Re-export default tunables for the public API.
const (
	DefaultNPlug           = constants.DefaultNPlug
	DefaultShuffle         = constants.DefaultShuffle
	DefaultCrashPctPerTick = constants.DefaultCrashPctPerTick
	DefaultNLoop           = constants.DefaultNLoop
	DefaultDiskSize        = constants.DefaultDiskSize
	MinNPlug               = constants.MinNPlug
)
