package raster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/go-spatial/geom"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/geometry"
	"github.com/airbusgeo/s2-indices/service/log"
)

// DefaultNoData is the nodata value of the Sentinel-2 L2A products
const DefaultNoData = 0

// BandRaster is a single band of 16-bit pixels, georeferenced
type BandRaster struct {
	Band         common.Band
	Width        int
	Height       int
	GeoTransform [6]float64
	Projection   string
	NoData       float64
	HasNoData    bool
	Data         []uint16
}

// Grid is the size of the output of Crop. Zero means native resolution.
type Grid struct {
	Width  int
	Height int
}

// Grid returns the pixel grid of the raster
func (r *BandRaster) Grid() Grid {
	return Grid{Width: r.Width, Height: r.Height}
}

// Crop reads the part of the raster at path intersecting the bbox (EPSG:4326),
// warped to EPSG:4326. Path is anything GDAL can open (local file, /vsicurl/, registered handler)
func Crop(ctx context.Context, path string, band common.Band, bbox *geom.Extent, grid Grid) (*BandRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := godal.Open(path)
	if err != nil {
		return nil, service.ErrAssetUnavailable{Asset: string(band), Reason: err.Error()}
	}
	defer ds.Close()

	bounds, err := wgs84Bounds(ds)
	if err != nil {
		return nil, fmt.Errorf("Crop.%w", err)
	}
	if _, ok := geometry.Intersection(bbox, bounds); !ok {
		return nil, service.ErrEmptyCrop{Asset: string(band)}
	}

	switches := []string{
		"-of", "MEM",
		"-t_srs", "EPSG:4326",
		"-te", ftoa(bbox.MinX()), ftoa(bbox.MinY()), ftoa(bbox.MaxX()), ftoa(bbox.MaxY()),
		"-te_srs", "EPSG:4326",
		"-ot", "UInt16",
		"-r", "bilinear",
	}
	if grid.Width > 0 && grid.Height > 0 {
		switches = append(switches, "-ts", strconv.Itoa(grid.Width), strconv.Itoa(grid.Height))
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, service.ErrAssetUnavailable{Asset: string(band), Reason: "no raster band"}
	}
	if nd, ok := bands[0].NoData(); ok {
		switches = append(switches, "-srcnodata", ftoa(nd), "-dstnodata", ftoa(nd))
	} else {
		switches = append(switches, "-dstnodata", strconv.Itoa(DefaultNoData))
	}

	log.Logger(ctx).Sugar().Debugf("Crop %s: gdalwarp %v", band, switches)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	warped, err := ds.Warp("", switches)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("Crop.Warp: %w", ctx.Err())
		}
		return nil, service.ErrAssetUnavailable{Asset: string(band), Reason: fmt.Sprintf("warp: %v", err)}
	}
	defer warped.Close()

	r, err := read(warped, band)
	if err != nil {
		return nil, fmt.Errorf("Crop.%w", err)
	}
	if r.Width == 0 || r.Height == 0 {
		return nil, service.ErrEmptyCrop{Asset: string(band)}
	}
	return r, nil
}

// Load reads the first band of the file
func Load(path string, band common.Band) (*BandRaster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Load.Open: %w", err)
	}
	defer ds.Close()
	r, err := read(ds, band)
	if err != nil {
		return nil, fmt.Errorf("Load.%w", err)
	}
	return r, nil
}

// Save writes the raster as a single-band UInt16 GTiff
func (r *BandRaster) Save(path string) error {
	if len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("Save: %d pixels for a %dx%d raster", len(r.Data), r.Width, r.Height)
	}
	ds, err := godal.Create(godal.GTiff, path, 1, godal.UInt16, r.Width, r.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("Save.Create: %w", err)
	}
	if err := func() error {
		if err := ds.SetGeoTransform(r.GeoTransform); err != nil {
			return fmt.Errorf("SetGeoTransform: %w", err)
		}
		if r.Projection != "" {
			if err := ds.SetProjection(r.Projection); err != nil {
				return fmt.Errorf("SetProjection: %w", err)
			}
		}
		b := ds.Bands()[0]
		if r.HasNoData {
			if err := b.SetNoData(r.NoData); err != nil {
				return fmt.Errorf("SetNoData: %w", err)
			}
		}
		if err := b.Write(0, 0, r.Data, r.Width, r.Height); err != nil {
			return fmt.Errorf("Write: %w", err)
		}
		return nil
	}(); err != nil {
		ds.Close()
		return fmt.Errorf("Save.%w", err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("Save.Close: %w", err)
	}
	return nil
}

func read(ds *godal.Dataset, band common.Band) (*BandRaster, error) {
	structure := ds.Structure()
	if structure.NBands < 1 {
		return nil, fmt.Errorf("read: no band")
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("read.GeoTransform: %w", err)
	}
	r := &BandRaster{
		Band:         band,
		Width:        structure.SizeX,
		Height:       structure.SizeY,
		GeoTransform: gt,
		Projection:   ds.Projection(),
		Data:         make([]uint16, structure.SizeX*structure.SizeY),
	}
	b := ds.Bands()[0]
	r.NoData, r.HasNoData = b.NoData()
	if len(r.Data) == 0 {
		return r, nil
	}
	if err := b.Read(0, 0, r.Data, r.Width, r.Height); err != nil {
		return nil, fmt.Errorf("read.Read: %w", err)
	}
	return r, nil
}

func wgs84Bounds(ds *godal.Dataset) (*geom.Extent, error) {
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("wgs84Bounds.NewSpatialRefFromEPSG: %w", err)
	}
	defer sr.Close()
	b, err := ds.Bounds(sr)
	if err != nil {
		return nil, fmt.Errorf("wgs84Bounds.Bounds: %w", err)
	}
	return &geom.Extent{b[0], b[1], b[2], b[3]}, nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
