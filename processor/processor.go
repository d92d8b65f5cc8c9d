package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/interface/raster"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

// Options of Analyze
type Options struct {
	// Legend adds a title and a colorbar to the heatmaps
	Legend bool
	// Storage is optional. Result files are also exported to it
	Storage service.Storage
}

// Output is a rendered index
type Output struct {
	Index string
	File  string
	URI   string
	Min   float32
	Max   float32
}

// Report of Analyze
type Report struct {
	Outputs []Output
	// Skipped indices (missing band files)
	Skipped []string
}

// Analyze computes and renders the indices from the band files <prefix>_<band>.tif.
// NDVI is required: its band files must exist. MNDWI is skipped if its band files are missing.
func Analyze(ctx context.Context, prefix string, opts Options) (Report, error) {
	var report Report
	ctx = log.With(ctx, "prefix", prefix)

	for i, index := range []Index{NDVI, MNDWI} {
		files, err := bandFiles(prefix, index)
		if err != nil {
			var missing service.ErrMissingBandFile
			if i == 0 || !errors.As(err, &missing) {
				return report, fmt.Errorf("Analyze[%s].%w", index.Name, err)
			}
			log.Logger(ctx).Sugar().Infof("skip %s: %v", index.Name, err)
			report.Skipped = append(report.Skipped, index.Name)
			continue
		}
		output, err := analyzeIndex(ctx, prefix, index, files, opts)
		if err != nil {
			return report, fmt.Errorf("Analyze[%s].%w", index.Name, err)
		}
		report.Outputs = append(report.Outputs, output)
	}
	return report, nil
}

// bandFiles returns the files of the positive and negative bands of the index, or ErrMissingBandFile
func bandFiles(prefix string, index Index) ([2]string, error) {
	files := [2]string{common.BandFileName(prefix, index.Positive), common.BandFileName(prefix, index.Negative)}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return files, service.ErrMissingBandFile{File: file}
			}
			return files, fmt.Errorf("bandFiles.Stat: %w", err)
		}
	}
	return files, nil
}

func analyzeIndex(ctx context.Context, prefix string, index Index, files [2]string, opts Options) (Output, error) {
	log.Logger(ctx).Sugar().Infof("[%s] computing from %s & %s", index.Name, files[0], files[1])
	positive, err := raster.Load(files[0], index.Positive)
	if err != nil {
		return Output{}, fmt.Errorf("analyzeIndex.%w", err)
	}
	negative, err := raster.Load(files[1], index.Negative)
	if err != nil {
		return Output{}, fmt.Errorf("analyzeIndex.%w", err)
	}
	result, err := NormalizedDifference(index, positive, negative)
	if err != nil {
		var mismatch service.ErrShapeMismatch
		if errors.As(err, &mismatch) {
			mismatch.File1, mismatch.File2 = files[0], files[1]
			err = mismatch
		}
		return Output{}, fmt.Errorf("analyzeIndex.%w", err)
	}

	output := Output{Index: index.Name, File: common.ResultFileName(prefix, index.Name)}
	output.Min, output.Max = result.MinMax()
	log.Logger(ctx).Sugar().Infof("[%s] done (Min: %.2f, Max: %.2f)", index.Name, output.Min, output.Max)

	title := fmt.Sprintf("%s Analysis: %s", index.Name, filepath.Base(prefix))
	if err := WritePNG(Render(result, title, opts.Legend), output.File); err != nil {
		return Output{}, fmt.Errorf("analyzeIndex.%w", err)
	}
	log.Logger(ctx).Sugar().Infof("[%s] saved to %s", index.Name, output.File)

	if opts.Storage != nil {
		if output.URI, err = opts.Storage.SaveFile(ctx, output.File); err != nil {
			return Output{}, fmt.Errorf("analyzeIndex.%w", err)
		}
	}
	return output, nil
}
