package geometry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/go-spatial/geom"
	"github.com/paulsmith/gogeos/geos"
)

// BBox returns the extent centered on c, with a half-size of buffer degrees, clamped to the WGS84 domain
func BBox(c common.Coordinate, buffer float64) (*geom.Extent, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("BBox: invalid coordinate %v", c.CoordsToList())
	}
	if buffer <= 0 || math.IsNaN(buffer) || math.IsInf(buffer, 0) {
		return nil, fmt.Errorf("BBox: buffer must be strictly positive: %f", buffer)
	}
	return &geom.Extent{
		math.Max(c.Lon-buffer, -180),
		math.Max(c.Lat-buffer, -90),
		math.Min(c.Lon+buffer, 180),
		math.Min(c.Lat+buffer, 90),
	}, nil
}

// Intersection returns the intersection of two extents, and false if they are disjoint or touch only by an edge
func Intersection(e1, e2 *geom.Extent) (*geom.Extent, bool) {
	minx, miny := math.Max(e1.MinX(), e2.MinX()), math.Max(e1.MinY(), e2.MinY())
	maxx, maxy := math.Min(e1.MaxX(), e2.MaxX()), math.Min(e1.MaxY(), e2.MaxY())
	if minx >= maxx || miny >= maxy {
		return nil, false
	}
	return &geom.Extent{minx, miny, maxx, maxy}, true
}

// ExtentToWKT returns the closed polygon of the extent as WKT
func ExtentToWKT(e *geom.Extent) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	w, s, east, n := f(e.MinX()), f(e.MinY()), f(e.MaxX()), f(e.MaxY())
	return fmt.Sprintf("POLYGON ((%s %s, %s %s, %s %s, %s %s, %s %s))", w, s, east, s, east, n, w, n, w, s)
}

// Covers returns true if the footprint (WKT) contains the whole extent
func Covers(footprintWKT string, e *geom.Extent) (bool, error) {
	footprint, err := geos.FromWKT(footprintWKT)
	if err != nil {
		return false, fmt.Errorf("Covers.FromWKT: %w", err)
	}
	bbox, err := geos.FromWKT(ExtentToWKT(e))
	if err != nil {
		return false, fmt.Errorf("Covers.FromWKT: %w", err)
	}
	contains, err := footprint.Contains(bbox)
	if err != nil {
		return false, fmt.Errorf("Covers.Contains: %w", err)
	}
	return contains, nil
}
