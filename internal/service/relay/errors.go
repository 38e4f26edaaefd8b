package relay

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies relay failures.
type Kind string

const (
	KindInvalidRequest   Kind = "InvalidRequest"
	KindMethodNotAllowed Kind = "MethodNotAllowed"
	KindMisconfigured    Kind = "Misconfigured"
	KindUpstream         Kind = "UpstreamError"
	KindTransport        Kind = "TransportError"
)

const (
	// ApologyMessage is returned to callers whenever the backend could not be
	// reached or answered with a failure.
	ApologyMessage = "⚠️ Something went wrong while fetching the AI response."
	// NoResponseMessage stands in for an empty or missing reply.
	NoResponseMessage = "No response from the AI."
)

// HTTPStatus maps a kind to the status the relay answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Message is the user-readable text placed in the normalized response body.
func (k Kind) Message() string {
	switch k {
	case KindInvalidRequest:
		return "question is required"
	case KindMethodNotAllowed:
		return "Method Not Allowed"
	default:
		return ApologyMessage
	}
}

// Error carries a failure kind alongside its cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind of err. Errors that did not originate in the
// relay are treated as transport failures.
func KindOf(err error) Kind {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return KindTransport
}
