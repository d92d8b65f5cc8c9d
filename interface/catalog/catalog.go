package catalog

import (
	"context"

	"github.com/airbusgeo/s2-indices/catalog/entities"
	"github.com/airbusgeo/s2-indices/common"
)

// ScenesProvider searches the scenes intersecting the bbox of the query
type ScenesProvider interface {
	SearchScenes(ctx context.Context, query entities.SceneQuery) (entities.Scenes, error)
}

// AssetsSigner makes the assets of a scene readable (e.g. by appending a token to their href)
type AssetsSigner interface {
	SignAssets(ctx context.Context, scene common.Scene) (common.Scene, error)
}
