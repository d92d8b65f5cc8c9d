package entities

import (
	"fmt"
	"time"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/go-spatial/geom"
)

// Default values of a SceneQuery
const (
	DefaultCollection    = "sentinel-2-l2a"
	DefaultMaxCloudCover = 10.0
	DefaultLimit         = 100
)

// SceneQuery is the input of the catalog
type SceneQuery struct {
	Point               common.Coordinate `json:"point"`
	BBox                *geom.Extent      `json:"bbox"`
	StartTime           time.Time         `json:"start_time"`
	EndTime             time.Time         `json:"end_time"`
	MaxCloudCover       float64           `json:"max_cloud_cover"`
	IndexType           common.IndexType  `json:"index"`
	Collection          string            `json:"collection"`
	Limit               int               `json:"limit"`
	RequireFullCoverage bool              `json:"require_full_coverage"`
}

// Validate checks the query and fills the default values
func (q *SceneQuery) Validate() error {
	if !q.Point.Valid() {
		return fmt.Errorf("invalid point %v", q.Point.CoordsToList())
	}
	if q.BBox == nil {
		return fmt.Errorf("missing bbox")
	}
	if q.MaxCloudCover < 0 || q.MaxCloudCover > 100 {
		return fmt.Errorf("cloud cover must be in [0, 100]: %f", q.MaxCloudCover)
	}
	if !q.IndexType.IsAIndexType() {
		return fmt.Errorf("unknown index type: %s", q.IndexType)
	}
	if q.EndTime.IsZero() {
		q.EndTime = time.Now().UTC()
	}
	if !q.StartTime.IsZero() && q.EndTime.Before(q.StartTime) {
		return fmt.Errorf("end time %s is before start time %s", q.EndTime.Format("2006-01-02"), q.StartTime.Format("2006-01-02"))
	}
	if q.Collection == "" {
		q.Collection = DefaultCollection
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return nil
}

// Datetime returns the STAC interval of the query (open start if StartTime is zero)
func (q *SceneQuery) Datetime() string {
	start := ".."
	if !q.StartTime.IsZero() {
		start = q.StartTime.UTC().Format("2006-01-02") + "T00:00:00Z"
	}
	return start + "/" + q.EndTime.UTC().Format("2006-01-02") + "T23:59:59Z"
}

// Scenes is a list of scenes returned by a provider
type Scenes []*common.Scene
