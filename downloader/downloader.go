package downloader

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-spatial/geom"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/interface/raster"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

// Fetcher reads the cropped bands of a scene
type Fetcher struct {
	Client *http.Client
	// VSIMode is raster.VSIOsio or raster.VSICurl
	VSIMode string
	// Storage is optional. Saved files are also exported to it
	Storage service.Storage
}

// Options of FetchScene
type Options struct {
	IndexType common.IndexType
	BBox      *geom.Extent
	// Save writes the files in OutputDir, named after Prefix
	Save      bool
	OutputDir string
	Prefix    string
}

// Result of FetchScene
type Result struct {
	Bands      []*raster.BandRaster
	PreviewURL string
	// Files written locally
	Files []string
	// Files exported to the Storage
	URIs []string
}

// FetchBand probes the server of href for partial reads, then reads the part of the band
// intersecting bbox. If grid is not zero, the output has this size.
func (f *Fetcher) FetchBand(ctx context.Context, href string, band common.Band, bbox *geom.Extent, grid raster.Grid) (*raster.BandRaster, error) {
	rr := raster.RangeReader{Client: f.Client}
	if err := rr.Probe(ctx, string(band), href); err != nil {
		return nil, fmt.Errorf("FetchBand.%w", err)
	}
	r, err := raster.Crop(ctx, raster.VSIPath(f.VSIMode, href), band, bbox, grid)
	if err != nil {
		return nil, fmt.Errorf("FetchBand.%w", err)
	}
	return r, nil
}

// FetchScene fetches the bands required by the index type, in order and on the same grid
// as the first one, and the preview.
func (f *Fetcher) FetchScene(ctx context.Context, scene common.Scene, opts Options) (Result, error) {
	var res Result
	if opts.BBox == nil {
		return res, service.ErrInvalidInput{Reason: "missing bbox"}
	}
	ctx = log.With(ctx, "scene", scene.SourceID)

	if opts.IndexType.NeedsPreview() {
		preview, ok := scene.Asset(common.AssetPreview)
		if !ok {
			return res, service.ErrAssetUnavailable{Asset: common.AssetPreview, Reason: "not found in scene " + scene.SourceID}
		}
		res.PreviewURL = preview.Href
		if opts.Save {
			file := filepath.Join(opts.OutputDir, common.PreviewFileName(opts.Prefix))
			if err := DownloadPreview(ctx, f.Client, preview.Href, file); err != nil {
				return res, fmt.Errorf("FetchScene.%w", err)
			}
			res.Files = append(res.Files, file)
		}
	}

	var grid raster.Grid
	for _, band := range common.RequiredBands(opts.IndexType) {
		asset, ok := scene.Asset(string(band))
		if !ok {
			return res, service.ErrAssetUnavailable{Asset: string(band), Reason: "not found in scene " + scene.SourceID}
		}
		log.Logger(ctx).Sugar().Infof("fetching %s", band)
		r, err := f.FetchBand(ctx, asset.Href, band, opts.BBox, grid)
		if err != nil {
			return res, fmt.Errorf("FetchScene.%w", err)
		}
		grid = r.Grid()
		log.Logger(ctx).Sugar().Infof("%s: %dx%d pixels", band, r.Width, r.Height)
		res.Bands = append(res.Bands, r)

		if opts.Save {
			file := filepath.Join(opts.OutputDir, common.BandFileName(opts.Prefix, band))
			if err := r.Save(file); err != nil {
				return res, fmt.Errorf("FetchScene.%w", err)
			}
			res.Files = append(res.Files, file)
		}
	}

	if f.Storage != nil {
		if err := f.export(ctx, &res); err != nil {
			return res, fmt.Errorf("FetchScene.%w", err)
		}
	}
	return res, nil
}

// export saves all the files of res to the storage, even if some of them fail
func (f *Fetcher) export(ctx context.Context, res *Result) error {
	var errs error
	for _, file := range res.Files {
		uri, err := f.Storage.SaveFile(ctx, file)
		if err != nil {
			errs = service.MergeErrors(errs, fmt.Errorf("export %s: %w", filepath.Base(file), err))
			continue
		}
		log.Logger(ctx).Sugar().Debugf("%s exported to %s", file, uri)
		res.URIs = append(res.URIs, uri)
	}
	return errs
}
