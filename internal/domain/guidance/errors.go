package guidance

import "errors"

var (
	// ErrUpstreamCall covers network failures, timeouts and 5xx answers from
	// the generative backend.
	ErrUpstreamCall = errors.New("upstream model call failed")

	// ErrMalformedAnswer means the model returned text that did not parse
	// into the structured response shape. Final for the request: no retry,
	// no partial result.
	ErrMalformedAnswer = errors.New("upstream model returned malformed answer")

	// ErrQuotaExceeded is surfaced by the chat client when the proxy rejects
	// a request with a rate-limit status.
	ErrQuotaExceeded = errors.New("request quota exceeded")
)
