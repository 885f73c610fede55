// Package walbsim simulates the WALB write-ahead-log block-storage
// algorithm: it schedules log-pack/data-pack writes and reads across a
// stream of plugs under the WALB ordering constraints, applies the
// resulting I/O to two shadow disk images, and verifies that both
// converge after a full drain or after crash recovery, and that every
// read observed a value consistent with its witness set of in-flight
// writers.
//
// The public surface here is a thin re-export over internal/core,
// internal/packstate, internal/manager, internal/driver, and
// internal/metrics, the way the teacher re-exports its device API over
// internal/uring and internal/queue.
package walbsim
