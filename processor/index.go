package processor

import (
	"github.com/mazznoer/colorgrad"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/interface/raster"
	"github.com/airbusgeo/s2-indices/service"
)

// Index is a normalized difference (Positive - Negative) / (Positive + Negative)
type Index struct {
	Name     string
	Positive common.Band
	Negative common.Band
	// Colormap of the heatmap, from -1 to 1
	Colormap func() colorgrad.Gradient
}

// Supported indices
var (
	NDVI  = Index{Name: "NDVI", Positive: common.BandNIR, Negative: common.BandRed, Colormap: colorgrad.RdYlGn}
	MNDWI = Index{Name: "MNDWI", Positive: common.BandGreen, Negative: common.BandSWIR, Colormap: colorgrad.PuBu}
)

// IndexResult is the output of NormalizedDifference, row-major
type IndexResult struct {
	Index  Index
	Width  int
	Height int
	Values []float32
}

// NormalizedDifference computes the index pixel by pixel.
// Pixels where the denominator is zero are set to 0. Values are clamped to [-1, 1].
func NormalizedDifference(index Index, positive, negative *raster.BandRaster) (*IndexResult, error) {
	if positive.Width != negative.Width || positive.Height != negative.Height || len(positive.Data) != len(negative.Data) {
		return nil, service.ErrShapeMismatch{
			File1: string(positive.Band), Width1: positive.Width, Height1: positive.Height,
			File2: string(negative.Band), Width2: negative.Width, Height2: negative.Height,
		}
	}
	res := &IndexResult{
		Index:  index,
		Width:  positive.Width,
		Height: positive.Height,
		Values: make([]float32, len(positive.Data)),
	}
	for i := range positive.Data {
		p, n := float32(positive.Data[i]), float32(negative.Data[i])
		den := p + n
		if den == 0 {
			continue
		}
		v := (p - n) / den
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		res.Values[i] = v
	}
	return res, nil
}

// MinMax returns the extrema of the values (0, 0 if empty)
func (r *IndexResult) MinMax() (float32, float32) {
	if len(r.Values) == 0 {
		return 0, 0
	}
	min, max := r.Values[0], r.Values[0]
	for _, v := range r.Values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
