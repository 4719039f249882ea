package domain

import "errors"

var (
	ErrBadParams        = errors.New("bad_params")            // 400
	ErrNotFound         = errors.New("not_found")             // 404
	ErrMethodNotAllowed = errors.New("method_not_allowed")    // 405
	ErrUnsatisfiable    = errors.New("range_not_satisfiable") // 416
	ErrUnexpected       = errors.New("unexpected")            // 500

	// Upstream failures. Unavailable is recoverable by trying the next source,
	// Exhausted means every source failed.
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
	ErrUpstreamExhausted   = errors.New("upstream_exhausted")

	// The response was already committed when the upstream failed.
	ErrStreamFault = errors.New("stream_fault")
)

// Error codes carried in APIEnvelope.Error.Code.
const (
	ErrCodeBadParams        = 400
	ErrCodeNotFound         = 404
	ErrCodeMethodNotAllowed = 405
	ErrCodeUnsatisfiable    = 416
	ErrCodeUnexpected       = 500
)
