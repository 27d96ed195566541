package location

import (
	"context"
	"fmt"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GoogleGeolocationProvider uses the Google Maps Geolocation API to estimate the position from
// nearby WiFi access points and cell towers, falling back to the IP address.
type GoogleGeolocationProvider struct {
	client     geolocator
	modemIndex int
	timeout    time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	wifi  func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	cells func(ctx context.Context, modemIndex int) ([]maps.CellTower, error)
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return newGoogleGeolocationProvider(c, modemIndex, logger), nil
}

func newGoogleGeolocationProvider(client geolocator, modemIndex int, logger zerolog.Logger) *GoogleGeolocationProvider {
	return &GoogleGeolocationProvider{
		client:     client,
		modemIndex: modemIndex,
		timeout:    10 * time.Second,
		logger:     logger,
		now:        time.Now,
		wifi:       getWiFiAccessPoints,
		cells:      getCellTowers,
	}
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (models.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &maps.GeolocationRequest{ConsiderIP: true}

	// Radio data only sharpens the estimate; the IP fallback still works without it.
	if wifiAPs, err := g.wifi(ctx); err != nil {
		g.logger.Debug().Err(err).Msg("WiFi scan unavailable")
	} else {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := g.cells(ctx, g.modemIndex); err != nil {
		g.logger.Debug().Err(err).Msg("Cell tower scan unavailable")
	} else {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return models.Position{}, fmt.Errorf("geolocate: %w", err)
	}

	return models.Position{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
		Timestamp: g.now(),
	}, nil
}

// Close is a no-op; the API client holds no resources.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
