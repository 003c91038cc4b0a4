package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphask/internal/bus"
	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/llm"
	"github.com/zero-day-ai/graphask/internal/synth"
	"github.com/zero-day-ai/graphask/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitUnanswered indicates the engine gave up on the question
	ExitUnanswered = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitBackendError indicates the graph database or LLM provider failed
	ExitBackendError = 11
	// ExitUsageError indicates an invalid question or flag combination
	ExitUsageError = 12
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Cause: err}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// HandleError prints err to the command's error output and returns the exit
// code for it.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil && verboseFlagSet(cmd) {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	cmd.PrintErrln("Error:", err)

	var exhausted *synth.RepairBudgetExhaustedError
	if errors.As(err, &exhausted) && verboseFlagSet(cmd) {
		for _, rec := range exhausted.Log {
			cmd.PrintErrf("  attempt %d (%s): %s\n", rec.Attempt, rec.State, rec.Error)
		}
	}
	return ExitCodeFor(err)
}

// ExitCodeFor maps an error code to a CLI exit code.
func ExitCodeFor(err error) int {
	code := synth.CodeOf(err)
	var replyErr *bus.ReplyError
	if errors.As(err, &replyErr) {
		code = types.ErrorCode(replyErr.Code)
	}

	switch {
	case code == "DEADLINE_EXCEEDED":
		return ExitTimeout
	case code == "CANCELED":
		return ExitCancelled
	case code == synth.ErrCodeRepairBudgetExhausted,
		code == synth.ErrCodeUnsafeCandidate,
		code == synth.ErrCodeMalformedGeneration:
		return ExitUnanswered
	case code == synth.ErrCodeInvalidQuestion,
		code == synth.ErrCodeInvalidExamples:
		return ExitUsageError
	case code == synth.ErrCodeInvalidConfig,
		strings.HasPrefix(string(code), "CONFIG_"):
		return ExitConfigError
	case code == synth.ErrCodeBackendFailed,
		code == synth.ErrCodeOracleFailed,
		code == graph.ErrCodeGraphConnectionFailed,
		code == graph.ErrCodeGraphConnectionClosed,
		code == graph.ErrCodeGraphSchemaFailed,
		code == graph.ErrCodeGraphSnapshotFailed,
		code == llm.ErrProviderInitFailed,
		code == llm.ErrProviderUnavailable:
		return ExitBackendError
	default:
		return ExitError
	}
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var typed *types.Error
	if errors.As(err, &typed) {
		return typed.Retryable
	}
	return false
}

func verboseFlagSet(cmd *cobra.Command) bool {
	f := cmd.Flag("verbose")
	return f != nil && f.Changed
}

// IsVerbose checks the environment and raw arguments for verbose mode. Used
// by panic recovery before flags are parsed.
func IsVerbose() bool {
	if os.Getenv("GRAPHASK_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
