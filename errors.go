package walbsim

import "github.com/walb-linux/walbsim/internal/errs"

// Error and ErrorCode are re-exported so callers never need to import
// internal/errs directly.
type (
	Error     = errs.Error
	ErrorCode = errs.Code
)

// Error codes for the six assertion classes the simulator can report
// (spec.md §7).
const (
	ErrCodeConstruction            = errs.CodeConstruction
	ErrCodeIllegalTransition       = errs.CodeIllegalTransition
	ErrCodeReadInconsistency       = errs.CodeReadInconsistency
	ErrCodeDrainDivergence         = errs.CodeDrainDivergence
	ErrCodeCrossLoopDivergence     = errs.CodeCrossLoopDivergence
	ErrCodeCrashRecoveryDivergence = errs.CodeCrashRecoveryDivergence
)

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return errs.IsCode(err, code)
}
