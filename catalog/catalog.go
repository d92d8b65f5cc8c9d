package catalog

import (
	"context"
	"fmt"

	"github.com/airbusgeo/s2-indices/catalog/entities"
	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/interface/catalog"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

// Catalog is the main class of this package
type Catalog struct {
	Provider catalog.ScenesProvider
	// Signer is optional
	Signer catalog.AssetsSigner
}

// Search returns the scene that best fits the query, with signed assets.
// The query is validated (and default values are set).
func (c *Catalog) Search(ctx context.Context, query entities.SceneQuery) (*common.Scene, error) {
	if err := query.Validate(); err != nil {
		return nil, service.ErrInvalidInput{Reason: err.Error()}
	}
	if c.Provider == nil {
		return nil, fmt.Errorf("Search: no catalog is configured")
	}

	log.Logger(ctx).Sugar().Debugf("Search %s scenes in %v from %s (cloud cover <= %.1f%%)",
		query.Collection, *query.BBox, query.Datetime(), query.MaxCloudCover)
	scenes, err := c.Provider.SearchScenes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Search.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("%d scenes found", len(scenes))

	scenes, err = refineInventory(ctx, query, scenes)
	if err != nil {
		return nil, fmt.Errorf("Search.%w", err)
	}
	scene := selectScene(scenes)
	if scene == nil {
		return nil, service.ErrNoMatchingScene{Filter: describeQuery(query)}
	}
	log.Logger(ctx).Sugar().Infof("Scene %s selected (%s, cloud cover: %.2f%%)", scene.SourceID, scene.Date.Format("2006-01-02"), scene.CloudCover)

	for _, key := range common.RequiredAssets(query.IndexType) {
		if _, ok := scene.Asset(key); !ok {
			return nil, service.ErrAssetUnavailable{Asset: key, Reason: fmt.Sprintf("not found in scene %s", scene.SourceID)}
		}
	}

	selected := *scene
	if c.Signer != nil {
		if selected, err = c.Signer.SignAssets(ctx, selected); err != nil {
			return nil, fmt.Errorf("Search.%w", err)
		}
	}
	return &selected, nil
}

func describeQuery(query entities.SceneQuery) string {
	desc := fmt.Sprintf("collection=%s datetime=%s cloud_cover<=%v", query.Collection, query.Datetime(), query.MaxCloudCover)
	if query.RequireFullCoverage {
		desc += " full_coverage"
	}
	return desc
}
