// Package epg resolves electronic-program-guide windows: which program is on
// now, which is next, and how far along the current one is.
package epg

import (
	"encoding/base64"
	"strconv"

	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// Listing is one program in a channel's schedule. [Start, Stop] in unix
// seconds, Start <= Stop. Windows arrive chronologically sorted from the
// backend and are not re-sorted here.
type Listing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       int64  `json:"start"`
	Stop        int64  `json:"stop"`
	ChannelID   string `json:"channel_id"`
}

// NowNext is the schedule position at one instant. Current is nil during a
// schedule gap; Next is then the first future listing, or nil past the window.
type NowNext struct {
	Current *Listing `json:"current,omitempty"`
	Next    *Listing `json:"next,omitempty"`
}

// CurrentAndNext scans the ordered window for the first listing containing
// now (start <= now <= stop). Next is the immediately following element.
// When nothing contains now, Current is nil and Next is the first future
// listing; past the whole window both are nil. One rule, everywhere.
func CurrentAndNext(listings []Listing, now int64) NowNext {
	for i := range listings {
		l := listings[i]
		if l.Start <= now && now <= l.Stop {
			out := NowNext{Current: &l}
			if i+1 < len(listings) {
				next := listings[i+1]
				out.Next = &next
			}
			return out
		}
		if l.Start > now {
			// Gap in the schedule: nothing contains now.
			return NowNext{Next: &l}
		}
	}
	return NowNext{}
}

// ProgressPercent returns how far now is through l, clamped to [0, 100] so
// clock skew can never produce a nonsense value. A zero-length listing is 0
// before its instant and 100 from it on; no division by zero.
func ProgressPercent(l Listing, now int64) int {
	if l.Stop <= l.Start {
		if now >= l.Stop {
			return 100
		}
		return 0
	}
	if now <= l.Start {
		return 0
	}
	if now >= l.Stop {
		return 100
	}
	return int((now - l.Start) * 100 / (l.Stop - l.Start))
}

// fromEntry normalizes one raw API listing: base64-decoded title/description,
// unix-second timestamps. ok is false for entries that violate start <= stop
// or carry unparseable timestamps.
func fromEntry(channelID string, e xtream.EPGEntry) (Listing, bool) {
	start, err1 := strconv.ParseInt(e.StartTimestamp.String(), 10, 64)
	stop, err2 := strconv.ParseInt(e.StopTimestamp.String(), 10, 64)
	if err1 != nil || err2 != nil || stop < start {
		return Listing{}, false
	}
	return Listing{
		ID:          e.ID.String(),
		Title:       decodeBase64(e.Title),
		Description: decodeBase64(e.Description),
		Start:       start,
		Stop:        stop,
		ChannelID:   channelID,
	}, true
}

// decodeBase64 handles the panel's base64-encoded text fields, passing
// through anything that does not decode (some panels send plain text).
func decodeBase64(s string) string {
	if s == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(b)
}
