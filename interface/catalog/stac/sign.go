package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

const (
	PlanetaryComputerSASURL = "https://planetarycomputer.microsoft.com/api/sas/v1"
	azureBlobSuffix         = ".blob.core.windows.net"
	// Tokens expiring within this delay are renewed
	tokenExpiryMargin = time.Minute
)

type sasToken struct {
	Expiry time.Time `json:"msft:expiry"`
	Token  string    `json:"token"`
}

// SASSigner implements catalog.AssetsSigner using the Planetary Computer SAS API
type SASSigner struct {
	baseURL string
	client  *http.Client
	retries int

	mu     sync.Mutex
	tokens map[string]sasToken
	now    func() time.Time
}

// NewSASSigner creates a signer. Tokens are cached per collection until they expire
func NewSASSigner(baseURL string, client *http.Client, retries int) *SASSigner {
	if baseURL == "" {
		baseURL = PlanetaryComputerSASURL
	}
	return &SASSigner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		retries: retries,
		tokens:  map[string]sasToken{},
		now:     time.Now,
	}
}

// SignAssets implements catalog.AssetsSigner
// Returns a copy of the scene whose blob-storage hrefs carry a SAS token
func (s *SASSigner) SignAssets(ctx context.Context, scene common.Scene) (common.Scene, error) {
	assets := make(map[string]common.Asset, len(scene.Assets))
	for key, asset := range scene.Assets {
		signed, err := s.signHref(ctx, scene.Collection, asset.Href)
		if err != nil {
			return scene, fmt.Errorf("SignAssets[%s]: %w", key, err)
		}
		asset.Href = signed
		assets[key] = asset
	}
	scene.Assets = assets
	return scene, nil
}

func (s *SASSigner) signHref(ctx context.Context, collection, href string) (string, error) {
	u, err := neturl.Parse(href)
	if err != nil {
		return "", fmt.Errorf("signHref.Parse: %w", err)
	}
	if !strings.HasSuffix(u.Hostname(), azureBlobSuffix) || u.Query().Has("sig") {
		return href, nil
	}
	token, err := s.token(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("signHref.%w", err)
	}
	if u.RawQuery == "" {
		u.RawQuery = token
	} else {
		u.RawQuery += "&" + token
	}
	return u.String(), nil
}

func (s *SASSigner) token(ctx context.Context, collection string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[collection]; ok && s.now().Add(tokenExpiryMargin).Before(t.Expiry) {
		return t.Token, nil
	}

	url := s.baseURL + "/token/" + neturl.PathEscape(collection)
	log.Logger(ctx).Sugar().Debugf("[STAC] Request SAS token for %s", collection)
	body, err := service.GetBodyRetry(ctx, s.client, url, nil, s.retries)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	t := sasToken{}
	if err := json.Unmarshal(body, &t); err != nil {
		return "", fmt.Errorf("token.Unmarshal: %w", err)
	}
	if t.Token == "" {
		return "", fmt.Errorf("token: empty token for collection %s", collection)
	}
	s.tokens[collection] = t
	return t.Token, nil
}
