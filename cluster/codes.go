package cluster

import "net/http"

// Code classifies a query failure. The set mirrors gRPC status codes so
// expectations written against either transport read the same.
type Code string

// Query failure codes. Use exact equality when matching expectations.
const (
	CodeUnknown            Code = "unknown"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeNotFound           Code = "not_found"
	CodeAlreadyExists      Code = "already_exists"
	CodePermissionDenied   Code = "permission_denied"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeResourceExhausted  Code = "resource_exhausted"
	CodeUnimplemented      Code = "unimplemented"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeDeadlineExceeded   Code = "deadline_exceeded"
	CodeUnauthenticated    Code = "unauthenticated"
)

// ParseCode normalizes a wire code string. Unrecognized codes map to
// CodeUnknown rather than failing, so a new server-side code surfaces
// as a diagnosable mismatch instead of a parse error.
func ParseCode(s string) Code {
	switch Code(s) {
	case CodeInvalidArgument, CodeNotFound, CodeAlreadyExists,
		CodePermissionDenied, CodeFailedPrecondition, CodeResourceExhausted,
		CodeUnimplemented, CodeInternal, CodeUnavailable,
		CodeDeadlineExceeded, CodeUnauthenticated:
		return Code(s)
	default:
		return CodeUnknown
	}
}

// codeFromHTTPStatus maps an HTTP response status to a Code, used when
// an error body carries no explicit code.
func codeFromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeAlreadyExists
	case http.StatusPreconditionFailed:
		return CodeFailedPrecondition
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case http.StatusNotImplemented:
		return CodeUnimplemented
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	default:
		if status >= 500 {
			return CodeInternal
		}
		return CodeUnknown
	}
}
