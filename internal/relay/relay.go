// Package relay proxies stream segments through the local server for clients
// that cannot reach the provider directly (mixed-content or CORS-restricted
// players). Only hosts on the configured allow list are reachable.
package relay

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/iptvdeck/iptvdeck/internal/log"
)

var metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "iptvdeck",
	Subsystem: "relay",
	Name:      "requests_total",
	Help:      "Relay requests by outcome.",
}, []string{"outcome"})

// hop-by-hop headers are never forwarded in either direction.
var hopByHop = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// Handler relays GET requests to allow-listed upstream hosts.
type Handler struct {
	client  *http.Client
	allowed map[string]bool
	log     zerolog.Logger
}

// New builds a relay restricted to the given hosts (host or host:port,
// matched case-insensitively). An empty list disables the relay entirely.
func New(allowedHosts []string, client *http.Client) *Handler {
	if client == nil {
		// Streams run long; the relay must not cut them off with a
		// whole-request timeout.
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
			},
		}
	}
	allowed := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = true
		}
	}
	return &Handler{client: client, allowed: allowed, log: log.WithComponent("relay")}
}

// Allowed reports whether the host (or host:port) is on the allow list.
func (h *Handler) Allowed(host string) bool {
	host = strings.ToLower(host)
	if h.allowed[host] {
		return true
	}
	// Accept a bare-host entry for any port on that host.
	if i := strings.LastIndex(host, ":"); i > 0 {
		return h.allowed[host[:i]]
	}
	return false
}

// ServeHTTP handles GET /relay?url=<upstream>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		metricRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		metricRequests.WithLabelValues("bad_request").Inc()
		http.Error(w, "invalid url parameter", http.StatusBadRequest)
		return
	}
	if !h.Allowed(target.Host) {
		metricRequests.WithLabelValues("denied").Inc()
		h.log.Warn().Str("host", target.Host).Msg("relay target not on allow list")
		http.Error(w, "upstream host not allowed", http.StatusForbidden)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "bad upstream request", http.StatusBadRequest)
		return
	}
	copyHeaders(req.Header, r.Header)
	req.Header.Del("Host")

	resp, err := h.client.Do(req)
	if err != nil {
		metricRequests.WithLabelValues("upstream_error").Inc()
		h.log.Warn().Err(err).Str("host", target.Host).Msg("relay upstream failed")
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	metricRequests.WithLabelValues("ok").Inc()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Client disconnects mid-stream are routine.
		h.log.Debug().Err(err).Msg("relay copy interrupted")
	}
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopByHop(key string) bool {
	for _, h := range hopByHop {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}
