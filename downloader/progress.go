package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/cavaliercoder/grab"

	"github.com/airbusgeo/s2-indices/service/log"
)

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v >= 1<<20:
		return fmt.Sprintf("%.1fMB", v/(1<<20))
	case v >= 1<<10:
		return fmt.Sprintf("%.1fkB", v/(1<<10))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// progressMessage describes a download of size bytes (unknown if <= 0)
func progressMessage(name string, done, size int64, bytesPerSecond float64) string {
	rate := fmtBytes(int64(bytesPerSecond)) + "/s"
	if size <= 0 {
		return fmt.Sprintf("%s: %s (%s)", name, fmtBytes(done), rate)
	}
	return fmt.Sprintf("%s: %.0f%% of %s (%s)", name, 100*float64(done)/float64(size), fmtBytes(size), rate)
}

// displayProgress logs the progress of the download every period until it is done
func displayProgress(ctx context.Context, name string, resp *grab.Response, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			log.Logger(ctx).Sugar().Info(progressMessage(name, resp.BytesComplete(), resp.Size, resp.BytesPerSecond()))
		case <-resp.Done:
			log.Logger(ctx).Sugar().Debugf("%s: %s downloaded in %v", name, fmtBytes(resp.BytesComplete()), resp.Duration().Round(time.Millisecond))
			return
		}
	}
}
