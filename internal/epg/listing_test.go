package epg

import (
	"testing"

	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

func window() []Listing {
	return []Listing{
		{ID: "a", Title: "A", Start: 100, Stop: 200},
		{ID: "b", Title: "B", Start: 200, Stop: 300},
		{ID: "c", Title: "C", Start: 300, Stop: 400},
	}
}

func TestCurrentAndNext(t *testing.T) {
	tests := []struct {
		name        string
		now         int64
		wantCurrent string
		wantNext    string
	}{
		{"mid program", 250, "b", "c"},
		{"boundary belongs to the earlier listing", 200, "a", "b"},
		{"first program", 150, "a", "b"},
		{"last program no next", 350, "c", ""},
		{"past all listings", 450, "", ""},
		{"before all listings", 50, "", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nn := CurrentAndNext(window(), tt.now)
			gotCurrent := ""
			if nn.Current != nil {
				gotCurrent = nn.Current.ID
			}
			gotNext := ""
			if nn.Next != nil {
				gotNext = nn.Next.ID
			}
			if gotCurrent != tt.wantCurrent || gotNext != tt.wantNext {
				t.Errorf("CurrentAndNext(now=%d) = %q/%q, want %q/%q",
					tt.now, gotCurrent, gotNext, tt.wantCurrent, tt.wantNext)
			}
		})
	}
}

func TestCurrentAndNextScheduleGap(t *testing.T) {
	gapped := []Listing{
		{ID: "a", Start: 100, Stop: 200},
		{ID: "c", Start: 300, Stop: 400},
	}
	nn := CurrentAndNext(gapped, 250)
	if nn.Current != nil {
		t.Errorf("gap should have nil current, got %q", nn.Current.ID)
	}
	if nn.Next == nil || nn.Next.ID != "c" {
		t.Errorf("gap next should be the first future listing")
	}
}

func TestCurrentAndNextEmptyWindow(t *testing.T) {
	nn := CurrentAndNext(nil, 100)
	if nn.Current != nil || nn.Next != nil {
		t.Error("empty window must resolve to nil/nil")
	}
}

func TestProgressPercent(t *testing.T) {
	l := Listing{Start: 100, Stop: 200}
	tests := []struct {
		name string
		now  int64
		want int
	}{
		{"before start clamps to 0", 50, 0},
		{"at start", 100, 0},
		{"midway", 150, 50},
		{"at stop", 200, 100},
		{"after stop clamps to 100", 250, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercent(l, tt.now); got != tt.want {
				t.Errorf("ProgressPercent(now=%d) = %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}

func TestProgressPercentZeroLength(t *testing.T) {
	l := Listing{Start: 100, Stop: 100}
	if got := ProgressPercent(l, 50); got != 0 {
		t.Errorf("before instant = %d, want 0", got)
	}
	if got := ProgressPercent(l, 150); got != 100 {
		t.Errorf("after instant = %d, want 100", got)
	}
}

func TestFromEntry(t *testing.T) {
	e := xtream.EPGEntry{
		ID:             "1",
		Title:          "TmV3cw==", // "News"
		Description:    "RXZlbmluZyBidWxsZXRpbg==",
		StartTimestamp: "100",
		StopTimestamp:  "200",
	}
	l, ok := fromEntry("ch1", e)
	if !ok {
		t.Fatal("valid entry rejected")
	}
	if l.Title != "News" || l.Description != "Evening bulletin" {
		t.Errorf("base64 decode: %q / %q", l.Title, l.Description)
	}
	if l.Start != 100 || l.Stop != 200 || l.ChannelID != "ch1" {
		t.Errorf("fields: %+v", l)
	}
}

func TestFromEntryRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		entry xtream.EPGEntry
	}{
		{"unparseable start", xtream.EPGEntry{StartTimestamp: "x", StopTimestamp: "200"}},
		{"stop before start", xtream.EPGEntry{StartTimestamp: "300", StopTimestamp: "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := fromEntry("ch", tt.entry); ok {
				t.Error("malformed entry accepted")
			}
		})
	}
}

func TestDecodeBase64PassesThroughPlainText(t *testing.T) {
	// Not every panel encodes; plain text must survive.
	if got := decodeBase64("Plain & simple!"); got != "Plain & simple!" {
		t.Errorf("plain text mangled: %q", got)
	}
}
