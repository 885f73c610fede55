// Package errs provides the structured error type shared by every layer of
// the simulator, from pack construction through crash recovery.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes a simulator failure into one of the assertion classes
// the core is required to surface (construction, scheduling, consistency,
// or convergence failures).
type Code string

const (
	// CodeConstruction marks malformed input: empty plug, intra-pack
	// overlap, or an out-of-range address/size.
	CodeConstruction Code = "construction violation"
	// CodeIllegalTransition marks an execute() call for a bit already set,
	// or for an op whose predecessors are unsatisfied.
	CodeIllegalTransition Code = "illegal transition"
	// CodeReadInconsistency marks a read byte that matches none of its
	// witness values.
	CodeReadInconsistency Code = "read inconsistency"
	// CodeDrainDivergence marks vStorage and rStorage differing after a
	// non-crash run drained to no candidates.
	CodeDrainDivergence Code = "drain divergence"
	// CodeCrossLoopDivergence marks a shuffled run's terminal rStorage
	// differing from the reference run's.
	CodeCrossLoopDivergence Code = "cross-loop divergence"
	// CodeCrashRecoveryDivergence marks vStorage and rStorage differing
	// after doCrashRecovery, or two crashes at the same pid recovering to
	// different images.
	CodeCrashRecoveryDivergence Code = "crash recovery divergence"
)

// Error is a structured simulator error carrying enough context (which
// pack, which address, which operation) to diagnose a failed run without
// re-running it.
type Error struct {
	Op     string // operation that failed, e.g. "Manager.Execute"
	PackID int64  // -1 if not applicable
	Addr   int64  // -1 if not applicable
	Code   Code
	Msg    string
	Inner  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.PackID >= 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.PackID))
	}
	if e.Addr >= 0 {
		parts = append(parts, fmt.Sprintf("addr=%d", e.Addr))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("walbsim: %s (%s: %s)", msg, string(e.Code), strings.Join(parts, ", "))
	}
	return fmt.Sprintf("walbsim: %s (%s)", msg, e.Code)
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Code.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// New creates a structured error with no pack/address context.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, PackID: -1, Addr: -1, Code: code, Msg: msg}
}

// NewAt creates a structured error tied to a specific pack and address.
func NewAt(op string, code Code, packID, addr int64, msg string) *Error {
	return &Error{Op: op, PackID: packID, Addr: addr, Code: code, Msg: msg}
}

// Wrap wraps an existing error with simulator context, preserving the inner
// error for errors.Is/errors.As.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, PackID: -1, Addr: -1, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
