package httpx

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is the value we send on catalog requests. Some Xtream panels
// serve multi-megabyte JSON and honor br, which cuts transfer time a lot.
const AcceptEncoding = "gzip, br"

// ReadBody reads the full response body, transparently decoding gzip and
// brotli Content-Encoding. The stdlib only auto-decodes gzip, and only when it
// negotiated the encoding itself; once we set Accept-Encoding explicitly we
// must decode both ourselves.
func ReadBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content-encoding %q", resp.Header.Get("Content-Encoding"))
	}
	return io.ReadAll(r)
}
