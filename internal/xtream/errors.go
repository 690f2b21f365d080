package xtream

import (
	"errors"
	"fmt"
	"net/url"
)

// Kind buckets API failures for the callers that need policy, not detail:
// the cache propagates all of them, playback maps them onto its own
// recovery classes, the login flow treats KindAuth as "no session".
type Kind int

const (
	// KindNetwork: timeout, connect failure, 5xx. Retrying can succeed.
	KindNetwork Kind = iota
	// KindAuth: credentials rejected. Retrying the same credentials cannot succeed.
	KindAuth
	// KindNotFound: stream/category absent (404). Retrying cannot succeed.
	KindNotFound
	// KindParse: malformed payload. Treated like KindNetwork for retry purposes
	// since re-fetching is the only recourse.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	default:
		return "network"
	}
}

// Error is an API failure classified at the transport boundary.
// The action (never the URL, which carries credentials) identifies the call.
type Error struct {
	Kind   Kind
	Action string
	Err    error
}

func (e *Error) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("xtream: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("xtream %s: %s: %v", e.Action, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, action string, err error) *Error {
	return &Error{Kind: kind, Action: action, Err: err}
}

// redactErr strips the query string from transport errors: credentials
// travel as query parameters and must never reach logs or messages.
func redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return fmt.Errorf("%s %q: %w", ue.Op, u.String(), ue.Err)
		}
	}
	return err
}

// KindOf extracts the classification from err. Unclassified errors (transport
// failures that never reached classification) count as network.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}

// IsAuth reports whether err is a rejected-credentials failure.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth
}

// IsNotFound reports whether err is an absent-resource failure.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
