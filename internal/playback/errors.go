package playback

import (
	"context"
	"errors"
	"net"

	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// ErrorClass determines how the engine reacts to a failure.
type ErrorClass int

const (
	// ClassNetworkTransient: connectivity problems. One automatic delayed retry.
	ClassNetworkTransient ErrorClass = iota

	// ClassMediaFatal: decoder or demuxer failure. One backend-internal recovery
	// attempt if the backend offers one, otherwise terminal.
	ClassMediaFatal

	// ClassFatalImmediate: auth rejection or missing content. No retry can help.
	ClassFatalImmediate
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNetworkTransient:
		return "network_transient"
	case ClassMediaFatal:
		return "media_fatal"
	case ClassFatalImmediate:
		return "fatal_immediate"
	default:
		return "unknown"
	}
}

// MediaError is returned by backends when the container or codec layer fails
// after the transport delivered bytes successfully.
type MediaError struct {
	Err error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return "media decode error"
	}
	return "media decode error: " + e.Err.Error()
}

func (e *MediaError) Unwrap() error { return e.Err }

// ErrUnsupportedFormat is returned by backends that recognize the container
// but cannot decode it at all. Always terminal.
var ErrUnsupportedFormat = errors.New("unsupported container or codec")

type failureReason int

const (
	reasonNetwork failureReason = iota
	reasonParse
	reasonAuth
	reasonNotFound
	reasonMedia
	reasonUnsupported
)

// Every reason maps to exactly one user-facing message. The engine surfaces
// these verbatim on Failed; credentials and raw error text never reach the UI.
var reasonMessages = map[failureReason]string{
	reasonNetwork:     "Connection problem. The stream could not be reached.",
	reasonParse:       "The provider sent an unreadable response.",
	reasonAuth:        "Sign-in was rejected by the provider. Check your credentials.",
	reasonNotFound:    "This stream is no longer available.",
	reasonMedia:       "Playback failed. The stream could not be decoded.",
	reasonUnsupported: "This stream uses a format that cannot be played.",
}

// classify maps an arbitrary failure into a reaction class and a message key.
// Unrecognized errors are treated as transient network trouble: a retry is
// cheap and providers fail in creative ways.
func classify(err error) (ErrorClass, failureReason) {
	var me *MediaError
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return ClassFatalImmediate, reasonUnsupported
	case errors.As(err, &me):
		return ClassMediaFatal, reasonMedia
	}

	var xe *xtream.Error
	if errors.As(err, &xe) {
		switch xe.Kind {
		case xtream.KindAuth:
			return ClassFatalImmediate, reasonAuth
		case xtream.KindNotFound:
			return ClassFatalImmediate, reasonNotFound
		case xtream.KindParse:
			return ClassNetworkTransient, reasonParse
		default:
			return ClassNetworkTransient, reasonNetwork
		}
	}

	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return ClassNetworkTransient, reasonNetwork
	}

	return ClassNetworkTransient, reasonNetwork
}

// Classify exposes the reaction class for a failure.
func Classify(err error) ErrorClass {
	c, _ := classify(err)
	return c
}

// FailureMessage returns the user-facing message for a failure.
func FailureMessage(err error) string {
	_, r := classify(err)
	return reasonMessages[r]
}
