package quote

import (
    "errors"
    "fmt"
)

// Kind classifies a lookup failure. The HTTP layer maps kinds to status
// codes; everything except KindNotFound is a server-side failure.
type Kind int

const (
    KindUnknown Kind = iota
    // KindNotFound: the provider reported the symbol as unknown, or
    // every candidate was exhausted.
    KindNotFound
    // KindUpstreamUnavailable: transport-level failure talking to the
    // provider (network error, non-2xx status, rate-limit notice).
    KindUpstreamUnavailable
    // KindInvalidResponse: the provider answered but the payload had a
    // missing, zero or non-numeric price field.
    KindInvalidResponse
    // KindInternal: anything uncategorized. Aborts a fallback chain.
    KindInternal
)

// Error is a typed lookup failure. Message is user-facing; it ends up
// verbatim in the HTTP "detail" field.
type Error struct {
    Kind    Kind
    Message string
    cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a typed error with a formatted user-facing message.
func NewError(kind Kind, format string, args ...any) *Error {
    return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause; the cause is preserved for errors.Is/As
// but kept out of the user-facing message.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
    return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the kind from err, or KindUnknown when err carries no
// *Error anywhere in its chain.
func KindOf(err error) Kind {
    var qe *Error
    if errors.As(err, &qe) {
        return qe.Kind
    }
    return KindUnknown
}

// IsFetchFailure reports whether err is a typed per-candidate failure a
// fallback chain may recover from by trying the next candidate.
func IsFetchFailure(err error) bool {
    switch KindOf(err) {
    case KindNotFound, KindUpstreamUnavailable, KindInvalidResponse:
        return true
    }
    return false
}
