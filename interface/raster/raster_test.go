package raster

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/go-spatial/geom"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

// testRaster is a 100x100 raster covering [10, 11]x[40, 41] in EPSG:4326
func testRaster(t *testing.T) *BandRaster {
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil {
		t.Fatal(err)
	}
	r := &BandRaster{
		Band:         common.BandRed,
		Width:        100,
		Height:       100,
		GeoTransform: [6]float64{10, 0.01, 0, 41, 0, -0.01},
		Projection:   wkt,
		NoData:       0,
		HasNoData:    true,
		Data:         make([]uint16, 100*100),
	}
	for i := range r.Data {
		r.Data[i] = uint16(1000 + i%100)
	}
	return r
}

func TestSaveLoad(t *testing.T) {
	r := testRaster(t)
	path := filepath.Join(t.TempDir(), common.BandFileName("test", common.BandRed))
	if err := r.Save(path); err != nil {
		t.Fatal(err)
	}
	l, err := Load(path, common.BandRed)
	if err != nil {
		t.Fatal(err)
	}
	if l.Width != 100 || l.Height != 100 {
		t.Errorf("expecting 100x100, got %dx%d", l.Width, l.Height)
	}
	if l.GeoTransform != r.GeoTransform {
		t.Errorf("expecting %v, got %v", r.GeoTransform, l.GeoTransform)
	}
	if !l.HasNoData || l.NoData != 0 {
		t.Errorf("expecting nodata=0, got %v %v", l.HasNoData, l.NoData)
	}
	for i := range r.Data {
		if l.Data[i] != r.Data[i] {
			t.Fatalf("pixel %d: expecting %d, got %d", i, r.Data[i], l.Data[i])
		}
	}

	bad := &BandRaster{Width: 2, Height: 2, Data: []uint16{1}}
	if err := bad.Save(filepath.Join(t.TempDir(), "bad.tif")); err == nil {
		t.Error("expecting error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.tif"), common.BandRed); err == nil {
		t.Error("expecting error")
	}
}

func TestCrop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "full.tif")
	if err := testRaster(t).Save(path); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	bbox := &geom.Extent{10.2, 40.2, 10.4, 40.5}
	c, err := Crop(ctx, path, common.BandRed, bbox, Grid{})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(c.Width-20)) > 1 || math.Abs(float64(c.Height-30)) > 1 {
		t.Errorf("expecting ~20x30, got %dx%d", c.Width, c.Height)
	}
	if math.Abs(c.GeoTransform[0]-10.2) > 1e-9 || math.Abs(c.GeoTransform[3]-40.5) > 1e-9 {
		t.Errorf("unexpected origin: %v", c.GeoTransform)
	}
	if c.Data[0] < 1000 {
		t.Errorf("unexpected value %d", c.Data[0])
	}

	c2, err := Crop(ctx, path, common.BandNIR, bbox, Grid{Width: 10, Height: 15})
	if err != nil {
		t.Fatal(err)
	}
	if c2.Grid() != (Grid{Width: 10, Height: 15}) {
		t.Errorf("expecting 10x15, got %v", c2.Grid())
	}

	_, err = Crop(ctx, path, common.BandRed, &geom.Extent{20, 40, 21, 41}, Grid{})
	var empty service.ErrEmptyCrop
	if !errors.As(err, &empty) {
		t.Errorf("expecting ErrEmptyCrop, got %v", err)
	}

	_, err = Crop(ctx, filepath.Join(t.TempDir(), "missing.tif"), common.BandRed, bbox, Grid{})
	if service.Kind(err) != service.KindTransfer {
		t.Errorf("expecting %s, got %v", service.KindTransfer, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Crop(cctx, path, common.BandRed, bbox, Grid{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expecting context.Canceled, got %v", err)
	}
}

func TestCropNoBand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noband.vrt")
	vrt := `<VRTDataset rasterXSize="100" rasterYSize="100">
  <SRS>EPSG:4326</SRS>
  <GeoTransform>10, 0.01, 0, 41, 0, -0.01</GeoTransform>
</VRTDataset>`
	if err := os.WriteFile(path, []byte(vrt), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Crop(context.Background(), path, common.BandRed, &geom.Extent{10.2, 40.2, 10.4, 40.5}, Grid{})
	var unavailable service.ErrAssetUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("expecting ErrAssetUnavailable, got %v", err)
	}
}
