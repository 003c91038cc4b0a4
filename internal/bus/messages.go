package bus

import (
	"context"
	"errors"
	"strings"

	"github.com/zero-day-ai/graphask/internal/synth"
	"github.com/zero-day-ai/graphask/internal/types"
)

// Mode names accepted in a Request.
const (
	ModeCypher = "cypher"
	ModeScript = "script"
)

// ErrCodeInvalidRequest is returned for requests that cannot be decoded or
// name an unknown mode.
const ErrCodeInvalidRequest types.ErrorCode = "BUS_INVALID_REQUEST"

// ErrCodeEncodeFailed is returned when an answer cannot be encoded as JSON.
const ErrCodeEncodeFailed types.ErrorCode = "BUS_ENCODE_FAILED"

// Request is the JSON body published on the ask subject.
type Request struct {
	Question string `json:"question"`

	// Mode selects the engine. Empty means cypher.
	Mode string `json:"mode,omitempty"`
}

// Reply is the JSON body sent back to the requester. Exactly one of Result
// and Error is set.
type Reply struct {
	Result *synth.FinalResult `json:"result,omitempty"`
	Error  *ReplyError        `json:"error,omitempty"`
}

// ReplyError carries a failed answer across the bus.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Attempts is the attempt log when the repair budget ran out or the
	// answer could not be encoded.
	Attempts []synth.AttemptRecord `json:"attempts,omitempty"`
}

func (e *ReplyError) Error() string {
	return "[" + e.Code + "] " + e.Message
}

// Answerer is implemented by *synth.Engine.
type Answerer interface {
	Answer(ctx context.Context, question string) (*synth.FinalResult, error)
}

func normalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return ModeCypher
	}
	return mode
}

func errorReply(err error) Reply {
	re := &ReplyError{Code: string(synth.CodeOf(err)), Message: err.Error()}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		re.Code = "DEADLINE_EXCEEDED"
	case errors.Is(err, context.Canceled):
		re.Code = "CANCELED"
	case re.Code == "":
		re.Code = "INTERNAL"
	}

	var exhausted *synth.RepairBudgetExhaustedError
	if errors.As(err, &exhausted) {
		re.Attempts = exhausted.Log
	}
	return Reply{Error: re}
}
