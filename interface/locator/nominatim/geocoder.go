package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "s2-indices-fetcher"
)

// Geocoder implements locator.Geocoder for Nominatim (OpenStreetMap)
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	retries   int
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewGeocoder creates a new Nominatim geocoder
// Nominatim usage policy requires an identifying userAgent
func NewGeocoder(baseURL, userAgent string, client *http.Client, retries int) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Geocoder{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
		retries:   retries,
	}
}

// Geocode implements locator.Geocoder
func (g *Geocoder) Geocode(ctx context.Context, address string) (common.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return common.Coordinate{}, service.ErrInvalidInput{Reason: "empty address"}
	}

	q := neturl.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	url := g.baseURL + "/search?" + q.Encode()

	body, err := service.GetBodyRetry(ctx, g.client, url, http.Header{"User-Agent": []string{g.userAgent}}, g.retries)
	if err != nil {
		return common.Coordinate{}, service.ErrAddressNotFound{Address: address, Err: err}
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return common.Coordinate{}, fmt.Errorf("Geocode.Unmarshal: %w (response: %s)", err, body)
	}
	if len(places) == 0 {
		return common.Coordinate{}, service.ErrAddressNotFound{Address: address}
	}

	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	if errLon != nil || errLat != nil {
		return common.Coordinate{}, fmt.Errorf("Geocode: invalid coordinates for '%s': %s,%s", address, places[0].Lon, places[0].Lat)
	}
	log.Logger(ctx).Sugar().Debugf("'%s' resolved to %s", address, places[0].DisplayName)
	return common.Coordinate{Lon: lon, Lat: lat}, nil
}
