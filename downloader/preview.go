package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliercoder/grab"
	"github.com/google/uuid"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

// DownloadPreview downloads the url to dst, through a staging directory next to dst.
// dst is only created if the download succeeds.
func DownloadPreview(ctx context.Context, client *http.Client, url, dst string) error {
	workdir := filepath.Join(filepath.Dir(dst), "."+uuid.New().String())
	if err := os.MkdirAll(workdir, 0766); err != nil {
		return fmt.Errorf("DownloadPreview: make directory %s: %w", workdir, err)
	}
	defer os.RemoveAll(workdir)

	tmp := filepath.Join(workdir, filepath.Base(dst))
	req, err := grab.NewRequest(tmp, url)
	if err != nil {
		return service.ErrInvalidInput{Reason: fmt.Sprintf("preview url: %v", err)}
	}
	req = req.WithContext(ctx)

	g := grab.NewClient()
	if client != nil {
		g.HTTPClient = client
	}
	log.Logger(ctx).Sugar().Infof("downloading preview to %s", dst)
	resp := g.Do(req)
	displayProgress(ctx, "preview", resp, time.Second)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("DownloadPreview[%s]: %w", req.URL().Redacted(), err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		status := service.HTTPStatusError{URL: req.URL().Redacted(), Status: resp.HTTPResponse.StatusCode}
		if status.Temporary() {
			return service.MakeTemporary(err)
		}
		return service.ErrAssetUnavailable{Asset: common.AssetPreview, Reason: err.Error()}
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("DownloadPreview.Rename: %w", err)
	}
	return nil
}
