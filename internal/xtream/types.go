package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Credentials identify one provider session. Immutable once set; a re-login
// constructs a new Client/Resolver pair rather than mutating these.
type Credentials struct {
	ServerURL string
	Username  string
	Password  string
}

// Set reports whether all three fields are present.
func (c Credentials) Set() bool {
	return c.ServerURL != "" && c.Username != "" && c.Password != ""
}

// FlexID decodes Xtream ids, which arrive as JSON numbers or strings
// depending on panel version. Always held as the canonical string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(strconv.FormatInt(int64(n), 10))
	return nil
}

func (f FlexID) String() string { return string(f) }

// FlexInt decodes integers that some panels emit as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, _ := strconv.Atoi(s)
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexInt(int(n))
	return nil
}

// Account is the auth response (empty action).
type Account struct {
	UserInfo   *UserInfo   `json:"user_info"`
	ServerInfo *ServerInfo `json:"server_info"`
}

type UserInfo struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Auth     FlexInt `json:"auth"`
	Status   string  `json:"status"`
	ExpDate  FlexID  `json:"exp_date"`
}

type ServerInfo struct {
	URL       string `json:"url"`
	Port      FlexID `json:"port"`
	HTTPSPort FlexID `json:"https_port"`
	Timezone  string `json:"timezone"`
}

// Category is one entry of get_{live,vod,series}_categories.
type Category struct {
	CategoryID   FlexID  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	ParentID     FlexInt `json:"parent_id"`
}

// LiveStream is one entry of get_live_streams.
type LiveStream struct {
	Num          FlexInt `json:"num"`
	Name         string  `json:"name"`
	StreamType   string  `json:"stream_type"`
	StreamID     FlexID  `json:"stream_id"`
	StreamIcon   string  `json:"stream_icon"`
	EPGChannelID FlexID  `json:"epg_channel_id"`
	CategoryID   FlexID  `json:"category_id"`
	TVArchive    FlexInt `json:"tv_archive"`
}

// VODStream is one entry of get_vod_streams.
type VODStream struct {
	Num                FlexInt `json:"num"`
	Name               string  `json:"name"`
	StreamID           FlexID  `json:"stream_id"`
	StreamIcon         string  `json:"stream_icon"`
	Rating             FlexID  `json:"rating"`
	CategoryID         FlexID  `json:"category_id"`
	ContainerExtension string  `json:"container_extension"`
	ReleaseDate        string  `json:"releasedate"`
}

// Series is one entry of get_series.
type Series struct {
	Num         FlexInt `json:"num"`
	Name        string  `json:"name"`
	SeriesID    FlexID  `json:"series_id"`
	Cover       string  `json:"cover"`
	Plot        string  `json:"plot"`
	CategoryID  FlexID  `json:"category_id"`
	ReleaseDate string  `json:"releaseDate"`
}

// SeriesInfo is the get_series_info response: metadata plus episodes keyed by
// season number.
type SeriesInfo struct {
	Info     SeriesDetail         `json:"info"`
	Episodes map[string][]Episode `json:"episodes"`
}

type SeriesDetail struct {
	Name  string `json:"name"`
	Cover string `json:"cover"`
	Plot  string `json:"plot"`
}

// Episode is one playable episode. ID is the stream id used in series URLs.
type Episode struct {
	ID                 FlexID  `json:"id"`
	EpisodeNum         FlexInt `json:"episode_num"`
	Title              string  `json:"title"`
	Season             FlexInt `json:"season"`
	ContainerExtension string  `json:"container_extension"`
}

// EPGEntry is one raw get_short_epg listing. Title/Description are
// base64-encoded by the panel; timestamps are unix-second strings. The EPG
// engine decodes both into its normalized Listing.
type EPGEntry struct {
	ID             FlexID `json:"id"`
	EPGID          FlexID `json:"epg_id"`
	Title          string `json:"title"`
	Lang           string `json:"lang"`
	Description    string `json:"description"`
	ChannelID      string `json:"channel_id"`
	StartTimestamp FlexID `json:"start_timestamp"`
	StopTimestamp  FlexID `json:"stop_timestamp"`
}

type epgResponse struct {
	Listings []EPGEntry `json:"epg_listings"`
}
