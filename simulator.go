package walbsim

import (
	"math/rand"

	"github.com/walb-linux/walbsim/internal/config"
	"github.com/walb-linux/walbsim/internal/driver"
	"github.com/walb-linux/walbsim/internal/logging"
	"github.com/walb-linux/walbsim/internal/manager"
)

// Config is the YAML-driven run configuration, re-exported so callers
// never need to import internal/config directly.
type Config = config.Config

// DefaultConfig returns the configuration a simulator run uses absent an
// explicit config file.
func DefaultConfig() *Config { return config.DefaultConfig() }

// LoadConfig reads a YAML config file, overlaying it onto DefaultConfig.
func LoadConfig(path string) (*Config, error) { return config.LoadConfig(path) }

// Options configures a Simulator run.
type Options struct {
	Mode     Mode
	NPlug    int
	Observer Observer
	Logger   *logging.Logger
}

// optionsFromConfig builds Options from a Config, defaulting Observer and
// Logger to no-ops.
func optionsFromConfig(cfg *Config) Options {
	mode := Fast
	if cfg.Mode == "slow" {
		mode = Slow
	}
	return Options{Mode: mode, NPlug: cfg.NPlug, Observer: NoOpObserver{}}
}

// Simulator runs the WALB scheduling algorithm over one disk image and
// plug list to completion (spec.md §4.4 end to end).
type Simulator struct {
	opts Options
	mgr  *manager.Manager
	drv  *driver.Driver
}

// NewSimulator registers disk and plugs with a fresh Manager under opts.
func NewSimulator(disk *DiskImage, plugs [][]*Pack, opts Options) (*Simulator, error) {
	if opts.NPlug <= 0 {
		opts.NPlug = DefaultNPlug
	}
	if opts.Observer == nil {
		opts.Observer = NoOpObserver{}
	}
	mgr, err := manager.NewManager(disk, plugs, opts.Mode, manager.WithObserver(opts.Observer))
	if err != nil {
		return nil, err
	}
	var m *Metrics
	if mo, ok := opts.Observer.(*MetricsObserver); ok {
		m = mo.M
	}
	return &Simulator{
		opts: opts,
		mgr:  mgr,
		drv:  driver.New(opts.NPlug, opts.Logger, m),
	}, nil
}

// NewSimulatorFromConfig builds a Simulator from a Config's Mode and NPlug
// plus the disk/plugs a workload produced.
func NewSimulatorFromConfig(cfg *Config, disk *DiskImage, plugs [][]*Pack) (*Simulator, error) {
	return NewSimulator(disk, plugs, optionsFromConfig(cfg))
}

// Manager exposes the underlying PackStateManager for callers that need
// direct access (tests, advanced diagnostics).
func (s *Simulator) Manager() *manager.Manager { return s.mgr }

// Run drains the simulator deterministically, always choosing the first
// offered candidate (spec.md §8's non-shuffled reference schedule).
func (s *Simulator) Run() ([]driver.Step, error) {
	return s.drv.Run(s.mgr, driver.FirstCandidateChooser{})
}

// RunShuffled drains the simulator choosing uniformly at random among
// offered candidates each tick, seeded by seed.
func (s *Simulator) RunShuffled(seed int64) ([]driver.Step, error) {
	chooser := driver.NewShuffleChooser(rand.New(rand.NewSource(seed)))
	return s.drv.Run(s.mgr, chooser)
}

// RunWithCrash drains the simulator, injecting a crash with probability
// crashPct/100 before each tick; on crash it invokes DoCrashRecovery and
// returns crashed=true.
func (s *Simulator) RunWithCrash(crashPct int, seed int64) ([]driver.Step, bool, error) {
	chooser := driver.NewShuffleChooser(rand.New(rand.NewSource(seed)))
	rng := rand.New(rand.NewSource(seed ^ 0x5a5a5a5a))
	return s.drv.RunWithCrash(s.mgr, chooser, crashPct, rng)
}

// CheckDrainConvergence reports an error if vStorage and rStorage disagree
// anywhere, after a full drain.
func (s *Simulator) CheckDrainConvergence() error {
	return driver.CheckDrainConvergence(s.mgr)
}

// VStorage, RStorage, and FStorage expose the three shadow devices.
func (s *Simulator) VStorage() *DiskImage { return s.mgr.VStorage() }
func (s *Simulator) RStorage() *DiskImage { return s.mgr.RStorage() }
func (s *Simulator) FStorage() *DiskImage { return s.mgr.FStorage() }

// RunCrossLoopCheck runs nLoop independent simulations (loop 0
// deterministic, the rest shuffled) over fresh Managers built from disk
// and plugs, and reports CodeCrossLoopDivergence if any shuffled run's
// terminal rStorage differs from the reference run's (spec.md §8).
func RunCrossLoopCheck(disk *DiskImage, plugs [][]*Pack, mode Mode, nPlug, nLoop int, seed int64) (*driver.CrossLoopResult, error) {
	if nPlug <= 0 {
		nPlug = DefaultNPlug
	}
	drv := driver.New(nPlug, nil, nil)
	return drv.RunCrossLoopCheck(disk, plugs, mode, nLoop, seed)
}
