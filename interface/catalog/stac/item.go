package stac

import (
	"github.com/airbusgeo/s2-indices/common"
	"github.com/go-spatial/geom/encoding/geojson"
)

// SearchData is the response of a STAC item search
type SearchData struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	Links          []Link    `json:"links"`
	NumberMatched  int       `json:"numberMatched"`
	NumberReturned int       `json:"numberReturned"`
}

// Link of a STAC response (only "next" is used)
type Link struct {
	Body   map[string]interface{} `json:"body"`
	Merge  bool                   `json:"merge"`
	Href   string                 `json:"href"`
	Method string                 `json:"method"`
	Rel    string                 `json:"rel"`
}

// Feature is a STAC item
type Feature struct {
	ID          string                  `json:"id"`
	Collection  string                  `json:"collection"`
	BoundingBox []float64               `json:"bbox"`
	Properties  map[string]interface{}  `json:"properties"`
	Geometry    *geojson.Geometry       `json:"geometry"`
	Assets      map[string]common.Asset `json:"assets"`
}

type sortBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type searchRequest struct {
	Bbox        []float64              `json:"bbox,omitempty"`
	Datetime    string                 `json:"datetime,omitempty"`
	Collections []string               `json:"collections"`
	Query       map[string]interface{} `json:"query,omitempty"`
	SortBy      []sortBy               `json:"sortby,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
}
