package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// permanentError marks an error as not worth retrying on the same backend.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Classify reports it as terminal.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ClassifyError maps an error to a failure kind. Unknown errors are transient.
func ClassifyError(err error) domain.OutcomeKind {
	if err == nil {
		return domain.OutcomeSuccess
	}

	if IsPermanent(err) {
		return domain.OutcomeTerminalFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.OutcomeTransientFailure
	}
	if errors.Is(err, context.Canceled) {
		return domain.OutcomeTerminalFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.OutcomeTransientFailure
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(s, "-32602") {
		return domain.OutcomeTerminalFailure
	}

	if strings.Contains(sLower, "malformed") || strings.Contains(sLower, "invalid") ||
		strings.Contains(sLower, "unsupported") || strings.Contains(sLower, "not supported") {
		return domain.OutcomeTerminalFailure
	}

	// Network, throttling, 5xx and anything unrecognised
	return domain.OutcomeTransientFailure
}

// OutcomeOf turns a (result, error) pair into an Outcome using ClassifyError.
func OutcomeOf(result any, err error) domain.Outcome {
	if err == nil {
		return domain.Success(result)
	}
	if ClassifyError(err) == domain.OutcomeTerminalFailure {
		return domain.TerminalFailure(err)
	}
	return domain.TransientFailure(err)
}
