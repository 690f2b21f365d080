package xtream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	policy := httpx.DefaultRetryPolicy
	policy.Backoff5xx = time.Millisecond
	c, err := New(
		Credentials{ServerURL: srv.URL, Username: "u", Password: "p"},
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithRetryPolicy(policy),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Credentials{}); !IsAuth(err) {
		t.Errorf("New without creds: err = %v, want auth error", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("username") != "u" || q.Get("password") != "p" {
			t.Errorf("credentials missing from query: %v", q)
		}
		if q.Get("action") != "" {
			t.Errorf("auth call must use the empty action, got %q", q.Get("action"))
		}
		w.Write([]byte(`{"user_info":{"username":"u","auth":1},"server_info":{"url":"stream.host","port":"8080"}}`))
	})
	acct, err := c.Login(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if acct.UserInfo.Username != "u" {
		t.Errorf("username = %q", acct.UserInfo.Username)
	}
	if got := StreamBase(c.Credentials().ServerURL, acct.ServerInfo); got != "http://stream.host:8080" {
		t.Errorf("StreamBase = %q", got)
	}
}

func TestLoginRejectedIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Panels answer 200 with auth=0 for bad credentials.
		w.Write([]byte(`{"user_info":{"auth":0}}`))
	})
	_, err := c.Login(context.Background())
	if !IsAuth(err) {
		t.Errorf("err = %v, want auth", err)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{"401 auth", http.StatusUnauthorized, KindAuth},
		{"403 auth", http.StatusForbidden, KindAuth},
		{"404 not found", http.StatusNotFound, KindNotFound},
		{"418 network", http.StatusTeapot, KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.LiveCategories(context.Background())
			if err == nil {
				t.Fatal("want error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test5xxRetriedOnceThenNetworkError(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.LiveCategories(context.Background())
	if KindOf(err) != KindNetwork {
		t.Errorf("err = %v, want network", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestMalformedPayloadIsParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})
	_, err := c.LiveCategories(context.Background())
	if KindOf(err) != KindParse {
		t.Errorf("err = %v, want parse", err)
	}
}

func TestLiveStreamsPassesCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "get_live_streams" {
			t.Errorf("action = %q", got)
		}
		if got := r.URL.Query().Get("category_id"); got != "9" {
			t.Errorf("category_id = %q", got)
		}
		w.Write([]byte(`[{"name":"One","stream_id":1}]`))
	})
	streams, err := c.LiveStreams(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}
	if len(streams) != 1 || streams[0].StreamID != "1" {
		t.Errorf("streams = %+v", streams)
	}
}

func TestSeriesListKeyedObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"1":{"name":"A","series_id":1},"2":{"name":"B","series_id":2}}`))
	})
	list, err := c.SeriesList(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}

func TestShortEPG(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "get_short_epg" || q.Get("stream_id") != "5" || q.Get("limit") != "4" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"epg_listings":[{"id":"1","title":"QQ==","start_timestamp":"100","stop_timestamp":200}]}`))
	})
	listings, err := c.ShortEPG(context.Background(), "5", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 {
		t.Fatalf("len = %d", len(listings))
	}
	if listings[0].StartTimestamp != "100" || listings[0].StopTimestamp != "200" {
		t.Errorf("timestamps = %q/%q", listings[0].StartTimestamp, listings[0].StopTimestamp)
	}
}

func TestTransportErrorRedactsCredentials(t *testing.T) {
	c, err := New(
		Credentials{ServerURL: "http://127.0.0.1:1", Username: "u", Password: "hunter2"},
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.LiveCategories(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("error leaks password: %v", err)
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("kind = %v", KindOf(err))
	}
}
