package common

import "sort"

// Band is the code of a Sentinel-2 band, also used as the key of its STAC asset
type Band string

// Bands used by the indices
const (
	BandGreen Band = "B03"
	BandRed   Band = "B04"
	BandNIR   Band = "B08"
	BandSWIR  Band = "B11"
)

// AssetPreview is the key of the rendered true-color asset
const AssetPreview = "rendered_preview"

// RequiredBands returns the sorted list of bands needed by the index type
func RequiredBands(it IndexType) []Band {
	var bands []Band
	if it == IndexTypeNDVI || it == IndexTypeAll {
		bands = append(bands, BandRed, BandNIR)
	}
	if it == IndexTypeNDWI || it == IndexTypeAll {
		bands = append(bands, BandGreen, BandSWIR)
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i] < bands[j] })
	return bands
}

// RequiredAssets returns the keys of the assets needed by the index type
func RequiredAssets(it IndexType) []string {
	var assets []string
	if it.NeedsPreview() {
		assets = append(assets, AssetPreview)
	}
	for _, b := range RequiredBands(it) {
		assets = append(assets, string(b))
	}
	return assets
}
