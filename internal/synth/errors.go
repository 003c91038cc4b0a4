package synth

import (
	"errors"
	"fmt"

	"github.com/zero-day-ai/graphask/internal/types"
)

// Engine error codes
const (
	ErrCodeMalformedGeneration   types.ErrorCode = "SYNTH_MALFORMED_GENERATION"
	ErrCodeExecutionFailed       types.ErrorCode = "SYNTH_EXECUTION_FAILED"
	ErrCodeUnsafeCandidate       types.ErrorCode = "SYNTH_UNSAFE_CANDIDATE"
	ErrCodeRepairBudgetExhausted types.ErrorCode = "SYNTH_REPAIR_BUDGET_EXHAUSTED"
	ErrCodeOracleFailed          types.ErrorCode = "SYNTH_ORACLE_FAILED"
	ErrCodeBackendFailed         types.ErrorCode = "SYNTH_BACKEND_FAILED"
	ErrCodeInvalidConfig         types.ErrorCode = "SYNTH_INVALID_CONFIG"
	ErrCodeInvalidQuestion       types.ErrorCode = "SYNTH_INVALID_QUESTION"
	ErrCodeInvalidExamples       types.ErrorCode = "SYNTH_INVALID_EXAMPLES"
)

func matchesCode(target error, code types.ErrorCode) bool {
	t, ok := target.(*types.Error)
	return ok && t.Code == code
}

// MalformedGenerationError reports an oracle response that did not contain
// exactly one fenced code block. It is never retried.
type MalformedGenerationError struct {
	// Blocks is the number of complete top-level fenced blocks found.
	Blocks int
	Reason string
	Raw    string
}

func (e *MalformedGenerationError) Error() string {
	return "malformed generation: " + e.Reason
}

func (e *MalformedGenerationError) Is(target error) bool {
	return matchesCode(target, ErrCodeMalformedGeneration)
}

// ExecutionError is a candidate that failed to run. Message is the backend's
// own diagnostic and is fed back to the oracle unchanged.
type ExecutionError struct {
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

func (e *ExecutionError) Is(target error) bool {
	return matchesCode(target, ErrCodeExecutionFailed)
}

// UnsafeCandidateError is a candidate rejected by the safety guard.
type UnsafeCandidateError struct {
	Guardrail string
	Reason    string
}

func (e *UnsafeCandidateError) Error() string {
	return "candidate rejected by safety guard: " + e.Reason
}

func (e *UnsafeCandidateError) Is(target error) bool {
	return matchesCode(target, ErrCodeUnsafeCandidate)
}

// RepairBudgetExhaustedError is returned when every allowed attempt failed.
// When all of them were safety rejections it also matches
// *UnsafeCandidateError with errors.As.
type RepairBudgetExhaustedError struct {
	LastError string
	Attempts  int
	Log       []AttemptRecord

	last error
}

func newRepairBudgetExhaustedError(log []AttemptRecord, last error) *RepairBudgetExhaustedError {
	return &RepairBudgetExhaustedError{
		LastError: last.Error(),
		Attempts:  len(log),
		Log:       log,
		last:      last,
	}
}

func (e *RepairBudgetExhaustedError) Error() string {
	return fmt.Sprintf("repair budget exhausted after %d attempt(s): %s", e.Attempts, e.LastError)
}

func (e *RepairBudgetExhaustedError) Is(target error) bool {
	return matchesCode(target, ErrCodeRepairBudgetExhausted)
}

// As exposes the last rejection as *UnsafeCandidateError when no attempt got
// past the safety guard.
func (e *RepairBudgetExhaustedError) As(target any) bool {
	t, ok := target.(**UnsafeCandidateError)
	if !ok || !e.OnlyRejections() {
		return false
	}
	unsafe, ok := e.last.(*UnsafeCandidateError)
	if !ok {
		return false
	}
	*t = unsafe
	return true
}

// OnlyRejections reports whether every attempt was stopped by the safety guard.
func (e *RepairBudgetExhaustedError) OnlyRejections() bool {
	if len(e.Log) == 0 {
		return false
	}
	for _, rec := range e.Log {
		if !rec.Rejected {
			return false
		}
	}
	return true
}

// CodeOf returns the engine error code for err, falling back to the code of
// the outermost *types.Error.
func CodeOf(err error) types.ErrorCode {
	var (
		malformed *MalformedGenerationError
		exhausted *RepairBudgetExhaustedError
		unsafe    *UnsafeCandidateError
		execErr   *ExecutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &exhausted):
		return ErrCodeRepairBudgetExhausted
	case errors.As(err, &malformed):
		return ErrCodeMalformedGeneration
	case errors.As(err, &unsafe):
		return ErrCodeUnsafeCandidate
	case errors.As(err, &execErr):
		return ErrCodeExecutionFailed
	default:
		return types.CodeOf(err)
	}
}
