package middleware_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/spinflow/server/netsvr/middleware"
)

const body = `{"reports":[{"win":10,"complete":true}],"balance":1000}`

func jsonHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestRecoverAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := middleware.RequestID(middleware.Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("ledger exploded")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/x/spin", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	id := rec.Header().Get(middleware.RequestIDHeader)
	if id == "" {
		t.Fatalf("missing request id header")
	}
	out := buf.String()
	if !strings.Contains(out, "http.panic") || !strings.Contains(out, id) || !strings.Contains(out, "ledger exploded") {
		t.Fatalf("log output:\n%s", out)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := middleware.AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, "broke")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/games", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=402", "bytes=5", "path=/v1/games"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompression(t *testing.T) {
	h := middleware.Compression(http.HandlerFunc(jsonHandler))

	cases := []struct {
		accept string
		want   string
		decode func(io.Reader) (io.Reader, error)
	}{
		{"gzip, zstd", "zstd", func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		}},
		{"gzip", "gzip", func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
		{"", "", func(r io.Reader) (io.Reader, error) { return r, nil }},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/games", nil)
		if c.accept != "" {
			req.Header.Set("Accept-Encoding", c.accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Content-Encoding"); got != c.want {
			t.Fatalf("accept %q: encoding=%q want %q", c.accept, got, c.want)
		}
		r, err := c.decode(rec.Body)
		if err != nil {
			t.Fatalf("accept %q: decoder: %v", c.accept, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("accept %q: read: %v", c.accept, err)
		}
		if string(got) != body {
			t.Fatalf("accept %q: body=%q", c.accept, got)
		}
	}
}

func TestCompressionSkipsNoContent(t *testing.T) {
	h := middleware.Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/x/outcome", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("status=%d body=%d", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 must not be encoded")
	}
}
