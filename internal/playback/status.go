// Package playback wraps a media decoding backend in a state machine that
// classifies failures and drives bounded automatic recovery.
package playback

import (
	"encoding/json"
	"fmt"
)

// Status is the discrete playback state the UI renders from.
type Status string

const (
	// StatusIdle: no session.
	StatusIdle Status = "idle"

	// StatusLoading: a URI is attached and the first manifest/frame is pending.
	StatusLoading Status = "loading"

	// StatusPlaying: media is rendering; position/duration are being sampled.
	StatusPlaying Status = "playing"

	// StatusPaused: user-paused; no network involved.
	StatusPaused Status = "paused"

	// StatusRecovering: a transient failure occurred and one delayed retry is scheduled.
	StatusRecovering Status = "recovering"

	// StatusFailed: terminal until the user retries or tears the session down.
	StatusFailed Status = "failed"
)

// String implements fmt.Stringer.
func (s Status) String() string { return string(s) }

// IsValid checks whether the status is one of the defined states.
func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusLoading, StatusPlaying, StatusPaused, StatusRecovering, StatusFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether a media resource is (or is about to be) attached.
func (s Status) IsActive() bool {
	switch s {
	case StatusLoading, StatusPlaying, StatusPaused, StatusRecovering:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v := Status(str)
	if !v.IsValid() {
		return fmt.Errorf("invalid playback status: %q", str)
	}
	*s = v
	return nil
}
