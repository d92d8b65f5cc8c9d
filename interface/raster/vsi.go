package raster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"

	"github.com/airbusgeo/s2-indices/service"
)

// VSI modes: how GDAL reads remote files
const (
	VSIOsio = "osio"
	VSICurl = "curl"
)

// RangeReader streams byte ranges of remote files over HTTP.
// It implements osio.KeyStreamerAt, keys being URLs.
type RangeReader struct {
	Client *http.Client
	// Scheme prepended to the keys that do not have one
	Scheme string

	ctx context.Context
}

// WithContext returns a copy of rr whose requests are bound to ctx.
// GDAL reads through StreamAt, which has no context of its own.
func (rr RangeReader) WithContext(ctx context.Context) RangeReader {
	rr.ctx = ctx
	return rr
}

// StreamAt implements osio.KeyStreamerAt
func (rr RangeReader) StreamAt(key string, off int64, n int64) (io.ReadCloser, int64, error) {
	url := key
	if !strings.Contains(url, "://") {
		url = rr.Scheme + key
	}
	ctx := rr.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return rr.streamAt(ctx, url, off, n)
}

func (rr RangeReader) streamAt(ctx context.Context, url string, off int64, n int64) (io.ReadCloser, int64, error) {
	client := rr.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+n-1))
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, service.MakeTemporary(err)
	}
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		resp.Body.Close()
		return nil, 0, io.EOF
	}
	if resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, 0, service.HTTPStatusError{URL: req.URL.Redacted(), Status: resp.StatusCode, Body: body}
	}
	size, err := contentRangeSize(resp.Header.Get("Content-Range"))
	if err != nil {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%s: %w", req.URL.Redacted(), err)
	}
	return resp.Body, size, nil
}

// Probe checks that the server of url answers partial reads (HTTP 206).
// Returns ErrAssetUnavailable otherwise.
func (rr RangeReader) Probe(ctx context.Context, asset, url string) error {
	body, _, err := rr.streamAt(ctx, url, 0, 2)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return service.ErrAssetUnavailable{Asset: asset, Reason: fmt.Sprintf("range request rejected: %v", err)}
	}
	body.Close()
	return nil
}

// contentRangeSize parses the total size of "bytes 0-1/12345"
func contentRangeSize(contentRange string) (int64, error) {
	i := strings.LastIndex(contentRange, "/")
	if !strings.HasPrefix(contentRange, "bytes ") || i < 0 || contentRange[i+1:] == "*" {
		return 0, fmt.Errorf("unsupported Content-Range: '%s'", contentRange)
	}
	size, err := strconv.ParseInt(contentRange[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unsupported Content-Range: '%s': %w", contentRange, err)
	}
	return size, nil
}

// RegisterHTTPHandler registers the osio adapter for http(s) urls (mode VSIOsio).
// The reads are bound to ctx: once it is done, GDAL reads fail.
// With VSICurl, nothing is registered and GDAL's /vsicurl/ is used.
func RegisterHTTPHandler(ctx context.Context, mode string, client *http.Client) error {
	switch mode {
	case VSICurl:
		return nil
	case VSIOsio:
		for _, scheme := range []string{"https://", "http://"} {
			rr := RangeReader{Client: client, Scheme: scheme}.WithContext(ctx)
			adapter, err := osio.NewAdapter(rr)
			if err != nil {
				return fmt.Errorf("RegisterHTTPHandler.NewAdapter: %w", err)
			}
			if err := godal.RegisterVSIHandler(scheme, adapter); err != nil {
				return fmt.Errorf("RegisterHTTPHandler.RegisterVSIHandler[%s]: %w", scheme, err)
			}
		}
		return nil
	}
	return service.ErrInvalidInput{Reason: fmt.Sprintf("unknown vsi mode '%s' (expected %s or %s)", mode, VSIOsio, VSICurl)}
}

// VSIPath returns the path to give to GDAL to read url with the given mode
func VSIPath(mode, url string) string {
	if mode == VSICurl && (strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")) {
		return "/vsicurl/" + url
	}
	return url
}
