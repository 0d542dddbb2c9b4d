package wire

import "errors"

// ErrorKind classifies a framing or dispatch failure so callers can map it
// to the right HTTP status without re-inspecting the underlying error text.
type ErrorKind int

const (
	// KindMalformed covers bad request-line or header syntax, or a header
	// block over its configured limit → 400.
	KindMalformed ErrorKind = iota
	// KindTooLarge covers a body over the configured limit → 413.
	KindTooLarge
	// KindTimeout covers a request that exceeded maxRequestTime → 504.
	KindTimeout
	// KindNotFound covers no endpoint having written Output → 404.
	KindNotFound
	// KindUpgradeRejected covers a WebSocket handshake the application refused → 403.
	KindUpgradeRejected
	// KindInternal covers an uncaught endpoint fault → 500 or user handler output.
	KindInternal
	// KindUpstreamGone covers a client that disconnected mid-response.
	KindUpstreamGone
	// KindUnsupportedVersion covers an HTTP version other than 1.0/1.1 → 505.
	KindUnsupportedVersion
)

// FramingError wraps a ErrorKind with a human-readable reason.
type FramingError struct {
	Kind   ErrorKind
	Reason string
}

func (e *FramingError) Error() string { return e.Reason }

func newFramingError(kind ErrorKind, reason string) *FramingError {
	return &FramingError{Kind: kind, Reason: reason}
}

// Sentinel errors for conditions that do not carry extra context.
var (
	ErrIncompleteRequest = errors.New("wire: incomplete request")
	ErrBothLengthAndChunked = errors.New("wire: content-length and transfer-encoding both present")
)
