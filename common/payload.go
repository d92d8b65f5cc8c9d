package common

import (
	"time"
)

// Coordinate is an immutable geographic position in degrees (EPSG:4326)
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// CoordsToList returns the coordinate as [lon, lat]
func (c Coordinate) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid returns true if the coordinate is inside the WGS84 domain
func (c Coordinate) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Asset is a file referenced by a Scene (band, preview...)
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Scene is a catalog record, selected once per run and read-only afterward
type Scene struct {
	SourceID    string            `json:"source_id"`
	Collection  string            `json:"collection"`
	Date        time.Time         `json:"date"`
	CloudCover  float64           `json:"cloud_cover"`
	Assets      map[string]Asset  `json:"assets"`
	GeometryWKT string            `json:"wkt,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Asset returns the asset with the given key
func (s Scene) Asset(key string) (Asset, bool) {
	a, ok := s.Assets[key]
	return a, ok && a.Href != ""
}
