package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/airbusgeo/s2-indices/catalog/entities"
	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

const (
	PlanetaryComputerURL = "https://planetarycomputer.microsoft.com/api/stac/v1"
	// Maximum number of items requested per page
	PageLimit = 100
)

// Provider implements catalog.ScenesProvider for a STAC API
type Provider struct {
	baseURL string
	client  *http.Client
	retries int
}

// NewProvider creates a new STAC provider. baseURL is the root of the API (without /search)
func NewProvider(baseURL string, client *http.Client, retries int) *Provider {
	if baseURL == "" {
		baseURL = PlanetaryComputerURL
	}
	return &Provider{baseURL: strings.TrimSuffix(baseURL, "/"), client: client, retries: retries}
}

// SearchScenes implements catalog.ScenesProvider
// Scenes are returned most recent first, at most query.Limit
func (p *Provider) SearchScenes(ctx context.Context, query entities.SceneQuery) (entities.Scenes, error) {
	if query.BBox == nil {
		return nil, fmt.Errorf("SearchScenes(STAC): missing bbox")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = entities.DefaultLimit
	}
	req := searchRequest{
		Bbox:        []float64{query.BBox.MinX(), query.BBox.MinY(), query.BBox.MaxX(), query.BBox.MaxY()},
		Datetime:    query.Datetime(),
		Collections: []string{query.Collection},
		Query: map[string]interface{}{
			"eo:cloud_cover": map[string]float64{"lte": query.MaxCloudCover},
		},
		SortBy: []sortBy{{Field: "properties.datetime", Direction: "desc"}},
		Limit:  int(math.Min(float64(limit), PageLimit)),
	}

	features, err := p.query(ctx, req, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes(STAC).%w", err)
	}

	scenes := make(entities.Scenes, 0, len(features))
	for _, feature := range features {
		scene, err := toScene(feature)
		if err != nil {
			log.Logger(ctx).Sugar().Debugf("[STAC] skip item %s: %v", feature.ID, err)
			continue
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// query executes the search, following the "next" links until limit features are retrieved
func (p *Provider) query(ctx context.Context, searchReq searchRequest, limit int) ([]Feature, error) {
	url := p.baseURL + "/search"
	method := "POST"
	var body map[string]interface{}
	{
		b, err := json.Marshal(searchReq)
		if err != nil {
			return nil, fmt.Errorf("query.Marshal: %w", err)
		}
		if err := json.Unmarshal(b, &body); err != nil {
			return nil, fmt.Errorf("query.Unmarshal: %w", err)
		}
	}

	var features []Feature
	for page := 1; len(features) < limit; page++ {
		log.Logger(ctx).Sugar().Debugf("[STAC] Search page %d (%s %s)", page, method, url)
		var respBody []byte
		var err error
		if method == "GET" {
			respBody, err = service.GetBodyRetry(ctx, p.client, url, nil, p.retries)
		} else {
			respBody, err = service.PostJSONRetry(ctx, p.client, url, body, p.retries)
		}
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}

		search := SearchData{}
		if err := json.Unmarshal(respBody, &search); err != nil {
			return nil, fmt.Errorf("query.Unmarshal: %w (%s)", err, url)
		}
		features = append(features, search.Features...)

		next := nextLink(search.Links)
		if next == nil || len(search.Features) == 0 {
			break
		}
		url, method = next.Href, strings.ToUpper(next.Method)
		if method == "" {
			method = "GET"
		}
		if next.Body != nil {
			if !next.Merge {
				body = map[string]interface{}{}
			}
			for k, v := range next.Body {
				body[k] = v
			}
		}
	}
	if len(features) > limit {
		features = features[:limit]
	}
	return features, nil
}

func nextLink(links []Link) *Link {
	for i := range links {
		if links[i].Rel == "next" && links[i].Href != "" {
			return &links[i]
		}
	}
	return nil
}

func toScene(feature Feature) (*common.Scene, error) {
	properties := feature.Properties
	datetime, ok := properties["datetime"].(string)
	if !ok {
		return nil, fmt.Errorf("missing datetime property")
	}
	date, err := time.Parse(time.RFC3339Nano, datetime)
	if err != nil {
		return nil, fmt.Errorf("parse datetime property: %w", err)
	}
	cloudCover, ok := properties["eo:cloud_cover"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing eo:cloud_cover property")
	}

	scene := &common.Scene{
		SourceID:   feature.ID,
		Collection: feature.Collection,
		Date:       date.UTC(),
		CloudCover: cloudCover,
		Assets:     feature.Assets,
		Tags: map[string]string{
			common.TagSourceID:             feature.ID,
			common.TagCollection:           feature.Collection,
			common.TagAcquisitionDate:      datetime,
			common.TagCloudCoverPercentage: fmt.Sprintf("%v", cloudCover),
		},
	}
	if feature.Geometry != nil && feature.Geometry.Geometry != nil {
		scene.GeometryWKT = wkt.MustEncode(feature.Geometry.Geometry)
	}
	optionalTags := map[string]string{
		"platform":           common.TagPlatform,
		"s2:mgrs_tile":       common.TagTile,
		"sat:relative_orbit": common.TagRelativeOrbit,
		"s2:generation_time": common.TagProcessingDate,
	}
	for property, tag := range optionalTags {
		if v, ok := properties[property]; ok {
			scene.Tags[tag] = fmt.Sprintf("%v", v)
		}
	}
	if info, err := common.Info(feature.ID); err == nil {
		scene.Tags[common.TagMission] = info["MISSION_ID"]
		scene.Tags[common.TagProductLevel] = info["PRODUCT_LEVEL"]
	}
	return scene, nil
}
