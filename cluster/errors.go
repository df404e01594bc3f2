// Query and transport error classification for the harness.
//
// Sentinel errors plus a QueryError wrapper enable callers to use
// errors.Is/errors.As for typed assertions rather than string matching.
package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for collaborator failure classification.
var (
	// ErrWriteRejected indicates the cluster rejected a write payload.
	ErrWriteRejected = errors.New("write rejected")

	// ErrCompactionFailed indicates a compaction pass did not complete.
	ErrCompactionFailed = errors.New("compaction failed")

	// ErrUnexpectedSuccess is returned by MatchQueryError when a query
	// succeeded where a failure was expected.
	ErrUnexpectedSuccess = errors.New("query succeeded but an error was expected")
)

// QueryError is a structured query failure: a status code plus a
// human-readable message. It preserves any underlying transport error
// in the chain for inspection via errors.As.
type QueryError struct {
	// Code classifies the failure.
	Code Code
	// Message is the human-readable failure description.
	Message string
	// Err is the underlying error, if any.
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// MatchQueryError checks a query failure against an expectation: exact
// equality on the code, substring containment on the message. The
// returned error describes the first dimension that did not match, or
// nil when the expectation holds.
//
// A nil err means the query succeeded; that is ErrUnexpectedSuccess, not
// a retryable condition.
func MatchQueryError(err error, wantCode Code, wantSubstring string) error {
	if err == nil {
		return ErrUnexpectedSuccess
	}

	var qe *QueryError
	if !errors.As(err, &qe) {
		return fmt.Errorf("expected a query error with code %q, got: %w", wantCode, err)
	}
	if qe.Code != wantCode {
		return fmt.Errorf("expected error code %q, got %q (message: %s)", wantCode, qe.Code, qe.Message)
	}
	if !strings.Contains(qe.Message, wantSubstring) {
		return fmt.Errorf("expected error message containing %q, got %q", wantSubstring, qe.Message)
	}
	return nil
}
