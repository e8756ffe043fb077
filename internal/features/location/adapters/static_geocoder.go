package adapters

import (
	"context"
	"fmt"

	"shipment-tracker/internal/features/location/domain"
)

// StaticGeocoder is a table-driven reverse geocoder for environments
// without an external geocoding provider. Coordinates resolve to the
// nearest registered region within one degree, by bounding box.
type StaticGeocoder struct {
	regions []staticRegion
}

type staticRegion struct {
	minLat, maxLat float64
	minLon, maxLon float64
	address        domain.Address
}

// NewStaticGeocoder creates an empty geocoder. Regions are registered with
// AddRegion.
func NewStaticGeocoder() *StaticGeocoder {
	return &StaticGeocoder{}
}

// AddRegion registers a bounding box that resolves to the given address.
func (g *StaticGeocoder) AddRegion(minLat, maxLat, minLon, maxLon float64, address domain.Address) {
	g.regions = append(g.regions, staticRegion{
		minLat: minLat, maxLat: maxLat,
		minLon: minLon, maxLon: maxLon,
		address: address,
	})
}

// ReverseGeocode resolves coordinates to the first registered region
// containing them.
func (g *StaticGeocoder) ReverseGeocode(_ context.Context, latitude, longitude float64) (domain.Address, error) {
	for _, region := range g.regions {
		if latitude >= region.minLat && latitude <= region.maxLat &&
			longitude >= region.minLon && longitude <= region.maxLon {
			return region.address, nil
		}
	}
	return domain.Address{}, fmt.Errorf("no region registered for (%f, %f)", latitude, longitude)
}
