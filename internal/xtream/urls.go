package xtream

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentKind selects the URL segment the backend routes playback from.
type ContentKind string

const (
	KindLive   ContentKind = "live"
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
)

func (k ContentKind) valid() bool {
	return k == KindLive || k == KindMovie || k == KindSeries
}

// Resolver composes playable stream URLs. Pure string work: deterministic,
// no I/O, no caching. The backend resolves playback purely from the URL
// structure {base}/{kind}/{username}/{password}/{id}.{ext}, so that shape is
// load-bearing.
type Resolver struct {
	base  string
	creds Credentials
}

// NewResolver builds a resolver over base (normally StreamBase of the auth
// response) and creds. Errors when credentials are unset.
func NewResolver(base string, creds Credentials) (*Resolver, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, newError(KindAuth, "resolve", fmt.Errorf("credentials not set"))
	}
	if base == "" {
		base = creds.ServerURL
	}
	if base == "" {
		return nil, newError(KindAuth, "resolve", fmt.Errorf("no stream base URL"))
	}
	return &Resolver{base: strings.TrimSuffix(base, "/"), creds: creds}, nil
}

// StreamURL returns the canonical playable URL for one item.
// For KindSeries, id is the episode id, not the series id.
func (r *Resolver) StreamURL(kind ContentKind, id, ext string) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
	if id == "" {
		return "", fmt.Errorf("empty stream id")
	}
	ext = NormalizeContainerExt(ext, kind)
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		r.base, kind,
		url.PathEscape(r.creds.Username),
		url.PathEscape(r.creds.Password),
		url.PathEscape(id),
		url.PathEscape(ext)), nil
}

// LiveURL resolves a live channel.
func (r *Resolver) LiveURL(streamID, ext string) (string, error) {
	return r.StreamURL(KindLive, streamID, ext)
}

// MovieURL resolves a VOD title.
func (r *Resolver) MovieURL(streamID, ext string) (string, error) {
	return r.StreamURL(KindMovie, streamID, ext)
}

// EpisodeURL resolves one series episode.
func (r *Resolver) EpisodeURL(episodeID, ext string) (string, error) {
	return r.StreamURL(KindSeries, episodeID, ext)
}

// NormalizeContainerExt guards against panels that emit empty or garbage
// container extensions. Live defaults to m3u8; anything implausibly long is
// replaced too.
func NormalizeContainerExt(ext string, kind ContentKind) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" || len(ext) > 5 {
		if kind == KindMovie {
			return "mp4"
		}
		return "m3u8"
	}
	return ext
}

// StreamBase derives the playback base URL from the auth server_info,
// falling back to apiBase. Default ports are elided; https only when the
// panel reports the same port for https.
func StreamBase(apiBase string, si *ServerInfo) string {
	if si == nil || si.URL == "" || si.Port == "" {
		return strings.TrimSuffix(apiBase, "/")
	}
	host := strings.TrimSuffix(si.URL, "/")
	port := strings.TrimSpace(si.Port.String())
	httpsPort := strings.TrimSpace(si.HTTPSPort.String())
	scheme := "http"
	if httpsPort != "" && httpsPort == port {
		scheme = "https"
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + port
}
