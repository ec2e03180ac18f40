package analyzer

import "errors"

// ErrorKind classifies failures that are folded into a report instead of
// aborting the run. The empty string means "no error".
type ErrorKind string

// Error kinds recorded on FetchResult and RenderVerdict.
const (
	ErrKindNone              ErrorKind = ""
	ErrKindNetworkTimeout    ErrorKind = "network_timeout"
	ErrKindNetworkError      ErrorKind = "network_error"
	ErrKindHTTPError         ErrorKind = "http_error"
	ErrKindParseError        ErrorKind = "parse_error"
	ErrKindFetchExhausted    ErrorKind = "fetch_exhausted"
	ErrKindEngineUnavailable ErrorKind = "engine_unavailable"
	ErrKindInvalidTarget     ErrorKind = "invalid_target"
)

// ErrInvalidTarget is the only error surfaced to callers before any pipeline
// stage runs. Every other failure is recovered at a component boundary and
// recorded in the report as a degraded field value.
var ErrInvalidTarget = errors.New("invalid target URL")
