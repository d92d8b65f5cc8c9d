package raster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airbusgeo/s2-indices/service"
)

var content = []byte("0123456789abcdef")

func rangeServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/norange" {
			w.Write(content)
			return
		}
		http.ServeContent(w, r, "file.tif", time.Time{}, bytes.NewReader(content))
	}))
}

func TestStreamAt(t *testing.T) {
	srv := rangeServer()
	defer srv.Close()

	rr := RangeReader{Client: srv.Client(), Scheme: "http://"}
	for _, key := range []string{srv.URL + "/file.tif", srv.URL[len("http://"):] + "/file.tif"} {
		r, size, err := rr.StreamAt(key, 4, 3)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(r)
		r.Close()
		if string(b) != "456" {
			t.Errorf("expecting 456, got %s", b)
		}
		if size != int64(len(content)) {
			t.Errorf("expecting size %d, got %d", len(content), size)
		}
	}

	if _, _, err := rr.StreamAt(srv.URL+"/file.tif", 100, 3); err != io.EOF {
		t.Errorf("expecting EOF, got %v", err)
	}
}

func TestStreamAtDeadline(t *testing.T) {
	release := make(chan struct{})
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer stalled.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	rr := RangeReader{Client: stalled.Client()}.WithContext(ctx)

	start := time.Now()
	_, _, err := rr.StreamAt(stalled.URL+"/B04.tif", 0, 1024)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expecting %v, got %v", context.DeadlineExceeded, err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("read not interrupted by the deadline (%v)", d)
	}
}

func TestProbe(t *testing.T) {
	srv := rangeServer()
	defer srv.Close()
	rr := RangeReader{Client: srv.Client()}
	ctx := context.Background()

	if err := rr.Probe(ctx, "B04", srv.URL+"/file.tif"); err != nil {
		t.Errorf("expecting no error, got %v", err)
	}

	err := rr.Probe(ctx, "B04", srv.URL+"/norange")
	var unavailable service.ErrAssetUnavailable
	if !errors.As(err, &unavailable) || unavailable.Asset != "B04" {
		t.Errorf("expecting ErrAssetUnavailable, got %v", err)
	}

	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	if err := rr.Probe(ctx, "B08", notFound.URL+"/file.tif"); service.Kind(err) != service.KindTransfer {
		t.Errorf("expecting %s, got %v", service.KindTransfer, err)
	}
}

func TestContentRangeSize(t *testing.T) {
	if s, err := contentRangeSize("bytes 0-1/12345"); err != nil || s != 12345 {
		t.Errorf("expecting 12345, got %d, %v", s, err)
	}
	for _, cr := range []string{"", "bytes 0-1/*", "items 0-1/10", "bytes 0-1/abc"} {
		if _, err := contentRangeSize(cr); err == nil {
			t.Errorf("%s: expecting error", cr)
		}
	}
}

func TestVSIPath(t *testing.T) {
	if p := VSIPath(VSICurl, "https://host/B04.tif"); p != "/vsicurl/https://host/B04.tif" {
		t.Errorf("got %s", p)
	}
	if p := VSIPath(VSIOsio, "https://host/B04.tif"); p != "https://host/B04.tif" {
		t.Errorf("got %s", p)
	}
	if p := VSIPath(VSICurl, "/tmp/B04.tif"); p != "/tmp/B04.tif" {
		t.Errorf("got %s", p)
	}
	if err := RegisterHTTPHandler(context.Background(), "ftp", nil); service.Kind(err) != service.KindInput {
		t.Errorf("expecting %s, got %v", service.KindInput, err)
	}
}
