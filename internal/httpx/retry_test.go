package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestParseRetryAfter(t *testing.T) {
	max := 60 * time.Second
	tests := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"empty", "", 1 * time.Second},
		{"seconds 5", "5", 5 * time.Second},
		{"seconds 0", "0", 0},
		{"seconds over cap", "120", max},
		{"whitespace", "  10  ", 10 * time.Second},
		{"invalid fallback", "x", 1 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRetryAfter(tt.s, max)
			if got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestDoWithRetry_429Then200(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(context.Background(), &http.Client{Timeout: 5 * time.Second}, req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDoWithRetry_5xxRetriesOnce(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	policy := DefaultRetryPolicy
	policy.Backoff5xx = time.Millisecond
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(context.Background(), nil, req, policy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if attempts != 2 {
		t.Errorf("attempts = %d, want exactly 2 (one retry)", attempts)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want the failing status back", resp.StatusCode)
	}
}

func TestDoWithRetry_4xxNoRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(context.Background(), nil, req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestReadBody_PlainGzipBrotli(t *testing.T) {
	payload := []byte(`{"ok":true}`)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(payload)
	zw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(payload)
	bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"plain", "", payload},
		{"gzip", "gzip", gz.Bytes()},
		{"brotli", "br", br.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.body)
			}))
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			// Explicit Accept-Encoding disables the transport's own gzip handling.
			req.Header.Set("Accept-Encoding", AcceptEncoding)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			got, err := ReadBody(resp)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("body = %q, want %q", got, payload)
			}
		})
	}
}

func TestReadBody_UnknownEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if _, err := ReadBody(resp); err == nil {
		t.Error("unknown encoding should error")
	}
}

func TestHostLimiterCapsConcurrency(t *testing.T) {
	ctx := context.Background()
	lim := NewHostLimiter(2)
	r1, err := lim.Acquire(ctx, "http://h:1/path")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := lim.Acquire(ctx, "http://h:1/other")
	if err != nil {
		t.Fatal(err)
	}
	acquired := make(chan struct{})
	go func() {
		r3, err := lim.Acquire(ctx, "http://h:1")
		if err != nil {
			t.Error(err)
			return
		}
		close(acquired)
		r3()
	}()
	select {
	case <-acquired:
		t.Fatal("third acquire should block at limit 2")
	case <-time.After(50 * time.Millisecond):
	}
	r1()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("acquire should proceed after release")
	}
	r2()
}

func TestHostLimiterDistinctHosts(t *testing.T) {
	ctx := context.Background()
	lim := NewHostLimiter(1)
	r1, err := lim.Acquire(ctx, "http://a")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()
	done := make(chan struct{})
	go func() {
		r2, err := lim.Acquire(ctx, "http://b")
		if err != nil {
			t.Error(err)
			return
		}
		r2()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct hosts must not contend")
	}
}

func TestHostLimiterHonorsCancellation(t *testing.T) {
	lim := NewHostLimiter(1)
	release, err := lim.Acquire(context.Background(), "http://h")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lim.Acquire(ctx, "http://h"); err == nil {
		t.Fatal("acquire with cancelled context should fail")
	}
}
