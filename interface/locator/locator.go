package locator

import (
	"context"

	"github.com/airbusgeo/s2-indices/common"
)

// Geocoder resolves a free-text place name to a coordinate
type Geocoder interface {
	// Geocode returns the coordinate of the best match
	// Raise service.ErrAddressNotFound
	Geocode(ctx context.Context, address string) (common.Coordinate, error)
}
