package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/airbusgeo/s2-indices/catalog/entities"
	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/geometry"
	"github.com/airbusgeo/s2-indices/service/log"
)

func refineInventory(ctx context.Context, query entities.SceneQuery, scenes entities.Scenes) (entities.Scenes, error) {
	var err error
	scenes = removeDoubleEntries(scenes)
	scenes = removeCloudy(scenes, query.MaxCloudCover)
	if query.RequireFullCoverage {
		if scenes, err = removeNotCovering(ctx, scenes, query); err != nil {
			return nil, fmt.Errorf("refineInventory.%w", err)
		}
	}
	return scenes, nil
}

// removeDoubleEntries keeps the first occurrence of each SourceID
func removeDoubleEntries(scenes entities.Scenes) entities.Scenes {
	seen := service.StringSet{}
	var res entities.Scenes
	for _, s := range scenes {
		if seen.Exists(s.SourceID) {
			continue
		}
		seen.Push(s.SourceID)
		res = append(res, s)
	}
	return res
}

// removeCloudy removes the scenes above the cloud cover ceiling.
// Scenes without cloud cover are removed as well.
func removeCloudy(scenes entities.Scenes, maxCloudCover float64) entities.Scenes {
	var res entities.Scenes
	for _, s := range scenes {
		if s.CloudCover >= 0 && s.CloudCover <= maxCloudCover {
			res = append(res, s)
		}
	}
	return res
}

// removeNotCovering removes the scenes whose footprint does not contain the bbox
func removeNotCovering(ctx context.Context, scenes entities.Scenes, query entities.SceneQuery) (entities.Scenes, error) {
	var res entities.Scenes
	for _, s := range scenes {
		if s.GeometryWKT == "" {
			log.Logger(ctx).Sugar().Debugf("%s: no footprint, discarded", s.SourceID)
			continue
		}
		covers, err := geometry.Covers(s.GeometryWKT, query.BBox)
		if err != nil {
			return nil, fmt.Errorf("removeNotCovering[%s].%w", s.SourceID, err)
		}
		if !covers {
			log.Logger(ctx).Sugar().Debugf("%s: partial coverage, discarded", s.SourceID)
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

// sortScenes sorts the scenes by preference: most recent first,
// then lowest cloud cover, then smallest id
func sortScenes(scenes entities.Scenes) {
	sort.SliceStable(scenes, func(i, j int) bool {
		si, sj := scenes[i], scenes[j]
		if !si.Date.Equal(sj.Date) {
			return si.Date.After(sj.Date)
		}
		if si.CloudCover != sj.CloudCover {
			return si.CloudCover < sj.CloudCover
		}
		return si.SourceID < sj.SourceID
	})
}

// selectScene returns the preferred scene or nil if scenes is empty.
// The input is not modified.
func selectScene(scenes entities.Scenes) *common.Scene {
	if len(scenes) == 0 {
		return nil
	}
	sorted := append(entities.Scenes{}, scenes...)
	sortScenes(sorted)
	return sorted[0]
}
