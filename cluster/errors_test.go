package cluster

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMatchQueryError_ExactCodeAndSubstring(t *testing.T) {
	err := &QueryError{Code: CodeInvalidArgument, Message: "Error while planning query: table does not exist"}

	if got := MatchQueryError(err, CodeInvalidArgument, "table does not exist"); got != nil {
		t.Errorf("expected match, got %v", got)
	}
}

func TestMatchQueryError_SubstringAmidSurroundingText(t *testing.T) {
	err := &QueryError{Code: CodeNotFound, Message: "prefix: namespace not found: suffix"}

	if got := MatchQueryError(err, CodeNotFound, "namespace not found"); got != nil {
		t.Errorf("expected match with surrounding text, got %v", got)
	}
}

func TestMatchQueryError_WrongCode(t *testing.T) {
	err := &QueryError{Code: CodeInternal, Message: "table does not exist"}

	got := MatchQueryError(err, CodeInvalidArgument, "table does not exist")
	if got == nil {
		t.Fatal("expected code mismatch failure")
	}
	if !strings.Contains(got.Error(), string(CodeInvalidArgument)) || !strings.Contains(got.Error(), string(CodeInternal)) {
		t.Errorf("mismatch diagnostic should name both codes: %v", got)
	}
}

func TestMatchQueryError_RightCodeWrongSubstring(t *testing.T) {
	err := &QueryError{Code: CodeInvalidArgument, Message: "something else entirely"}

	got := MatchQueryError(err, CodeInvalidArgument, "table does not exist")
	if got == nil {
		t.Fatal("expected message mismatch failure")
	}
	if !strings.Contains(got.Error(), "table does not exist") {
		t.Errorf("mismatch diagnostic should include expected substring: %v", got)
	}
}

func TestMatchQueryError_UnexpectedSuccess(t *testing.T) {
	got := MatchQueryError(nil, CodeInvalidArgument, "anything")
	if !errors.Is(got, ErrUnexpectedSuccess) {
		t.Fatalf("expected ErrUnexpectedSuccess, got %v", got)
	}
}

func TestMatchQueryError_NonQueryError(t *testing.T) {
	got := MatchQueryError(errors.New("connection refused"), CodeInvalidArgument, "anything")
	if got == nil {
		t.Fatal("expected failure for a non-query error")
	}
}

func TestQueryError_UnwrapChain(t *testing.T) {
	underlying := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("running step: %w", &QueryError{Code: CodeUnavailable, Message: "unreachable", Err: underlying})

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatal("errors.As failed to find QueryError in chain")
	}
	if qe.Code != CodeUnavailable {
		t.Errorf("Code = %q", qe.Code)
	}
	if !errors.Is(err, underlying) {
		t.Error("underlying error lost from chain")
	}
}

func TestParseCode(t *testing.T) {
	if got := ParseCode("invalid_argument"); got != CodeInvalidArgument {
		t.Errorf("ParseCode(invalid_argument) = %q", got)
	}
	if got := ParseCode("no_such_code"); got != CodeUnknown {
		t.Errorf("ParseCode(no_such_code) = %q, want unknown", got)
	}
}

func TestCodeFromHTTPStatus(t *testing.T) {
	cases := map[int]Code{
		400: CodeInvalidArgument,
		401: CodeUnauthenticated,
		404: CodeNotFound,
		429: CodeResourceExhausted,
		500: CodeInternal,
		503: CodeUnavailable,
		504: CodeDeadlineExceeded,
		418: CodeUnknown,
	}
	for status, want := range cases {
		if got := codeFromHTTPStatus(status); got != want {
			t.Errorf("codeFromHTTPStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
