// Package xtream is a typed client for Xtream-Codes style player_api.php
// backends, plus the pure stream-URL resolver.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iptvdeck/iptvdeck/internal/httpx"
	"github.com/iptvdeck/iptvdeck/internal/log"
)

const userAgent = "iptvdeck/1.0"

// Client calls player_api.php actions with query-encoded credentials.
// Safe for concurrent use.
type Client struct {
	creds  Credentials
	http   *http.Client
	policy httpx.RetryPolicy
	sem    *httpx.HostLimiter
	log    zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, custom timeouts).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy overrides the 429/5xx retry policy.
func WithRetryPolicy(p httpx.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout sets the per-call timeout (catalog payloads can be large).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = httpx.WithTimeout(d) }
}

// New returns a client for creds. Returns an error when credentials are unset.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if !creds.Set() {
		return nil, newError(KindAuth, "", fmt.Errorf("credentials not set"))
	}
	creds.ServerURL = strings.TrimSuffix(creds.ServerURL, "/")
	c := &Client{
		creds:  creds,
		http:   httpx.WithTimeout(45 * time.Second),
		policy: httpx.DefaultRetryPolicy,
		sem:    httpx.DefaultHostLimiter,
		log:    log.WithComponent("xtream"),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Credentials returns the session credentials (for the resolver).
func (c *Client) Credentials() Credentials { return c.creds }

// Login performs the empty-action auth call. A panel can answer 200 with
// auth=0 for bad credentials; that is still KindAuth.
func (c *Client) Login(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.call(ctx, "authenticate", "", nil, &acct); err != nil {
		return nil, err
	}
	if acct.UserInfo == nil || acct.UserInfo.Auth != 1 {
		return nil, newError(KindAuth, "authenticate", fmt.Errorf("credentials rejected"))
	}
	return &acct, nil
}

// LiveCategories fetches get_live_categories.
func (c *Client) LiveCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.call(ctx, "get_live_categories", "get_live_categories", nil, &out)
	return out, err
}

// VodCategories fetches get_vod_categories.
func (c *Client) VodCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.call(ctx, "get_vod_categories", "get_vod_categories", nil, &out)
	return out, err
}

// SeriesCategories fetches get_series_categories.
func (c *Client) SeriesCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.call(ctx, "get_series_categories", "get_series_categories", nil, &out)
	return out, err
}

// LiveStreams fetches get_live_streams, optionally filtered by category.
func (c *Client) LiveStreams(ctx context.Context, categoryID string) ([]LiveStream, error) {
	var out []LiveStream
	err := c.call(ctx, "get_live_streams", "get_live_streams", categoryParam(categoryID), &out)
	return out, err
}

// VodStreams fetches get_vod_streams, optionally filtered by category.
func (c *Client) VodStreams(ctx context.Context, categoryID string) ([]VODStream, error) {
	var out []VODStream
	err := c.call(ctx, "get_vod_streams", "get_vod_streams", categoryParam(categoryID), &out)
	return out, err
}

// SeriesList fetches get_series, optionally filtered by category.
// Some panels answer with a keyed object instead of an array; both decode.
func (c *Client) SeriesList(ctx context.Context, categoryID string) ([]Series, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "get_series", "get_series", categoryParam(categoryID), &raw); err != nil {
		return nil, err
	}
	var list []Series
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var keyed map[string]Series
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, newError(KindParse, "get_series", err)
	}
	list = make([]Series, 0, len(keyed))
	for _, s := range keyed {
		list = append(list, s)
	}
	return list, nil
}

// SeriesInfo fetches get_series_info for one show.
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) (*SeriesInfo, error) {
	var out SeriesInfo
	params := url.Values{"series_id": []string{seriesID}}
	if err := c.call(ctx, "get_series_info", "get_series_info", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ShortEPG fetches up to limit listings for one channel. limit <= 0 uses the
// panel default.
func (c *Client) ShortEPG(ctx context.Context, streamID string, limit int) ([]EPGEntry, error) {
	params := url.Values{"stream_id": []string{streamID}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out epgResponse
	if err := c.call(ctx, "get_short_epg", "get_short_epg", params, &out); err != nil {
		return nil, err
	}
	return out.Listings, nil
}

func categoryParam(categoryID string) url.Values {
	if categoryID == "" {
		return nil
	}
	return url.Values{"category_id": []string{categoryID}}
}

// call performs one player_api.php request and decodes into dest.
// name labels errors/logs; action may be empty (auth call).
func (c *Client) call(ctx context.Context, name, action string, params url.Values, dest any) error {
	u := c.creds.ServerURL + "/player_api.php?username=" + url.QueryEscape(c.creds.Username) +
		"&password=" + url.QueryEscape(c.creds.Password)
	if action != "" {
		u += "&action=" + url.QueryEscape(action)
	}
	if len(params) > 0 {
		u += "&" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return newError(KindNetwork, name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)

	release, err := c.sem.Acquire(ctx, c.creds.ServerURL)
	if err != nil {
		return newError(KindNetwork, name, err)
	}
	resp, err := httpx.DoWithRetry(ctx, c.http, req, c.policy)
	release()
	if err != nil {
		return newError(KindNetwork, name, redactErr(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(KindAuth, name, fmt.Errorf("status %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return newError(KindNotFound, name, fmt.Errorf("status %s", resp.Status))
	default:
		return newError(KindNetwork, name, fmt.Errorf("status %s", resp.Status))
	}

	body, err := httpx.ReadBody(resp)
	if err != nil {
		return newError(KindNetwork, name, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.log.Debug().Str("action", name).Int("bytes", len(body)).Msg("payload did not decode")
		return newError(KindParse, name, err)
	}
	return nil
}
