package domain

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies the result of a single backend invocation.
type OutcomeKind int

const (
	OutcomeSuccess          OutcomeKind = iota // Task completed
	OutcomeTransientFailure                    // Retrying the same backend may help
	OutcomeTerminalFailure                     // Skip remaining retries on this backend
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransientFailure:
		return "transient_failure"
	case OutcomeTerminalFailure:
		return "terminal_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "success":
		*k = OutcomeSuccess
	case "transient_failure":
		*k = OutcomeTransientFailure
	case "terminal_failure":
		*k = OutcomeTerminalFailure
	default:
		return fmt.Errorf("unknown outcome kind %q", string(b))
	}
	return nil
}

var errUnspecified = errors.New("unspecified backend failure")

// Outcome is what a backend reports for one invocation. Build it with
// Success, TransientFailure or TerminalFailure.
type Outcome struct {
	Kind   OutcomeKind
	Result any
	Err    error
}

// Success reports a completed task; result is passed through untouched.
func Success(result any) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

// TransientFailure reports a failure that a retry on the same backend may resolve.
func TransientFailure(err error) Outcome {
	if err == nil {
		err = errUnspecified
	}
	return Outcome{Kind: OutcomeTransientFailure, Err: err}
}

// TerminalFailure reports a failure that retrying the same backend will not resolve.
func TerminalFailure(err error) Outcome {
	if err == nil {
		err = errUnspecified
	}
	return Outcome{Kind: OutcomeTerminalFailure, Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}
