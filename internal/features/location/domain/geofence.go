package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"shipment-tracker/internal/core/geo"

	"github.com/google/uuid"
)

var (
	// ErrInvalidGeofence is returned for out-of-range radii or degenerate
	// polygon boundaries.
	ErrInvalidGeofence = errors.New("invalid geofence")
	// ErrGeofenceState is returned for redundant activate/deactivate calls.
	ErrGeofenceState = errors.New("invalid geofence state")
)

// maxRadiusMeters bounds circular geofences.
const maxRadiusMeters = 50000

// GeofenceType distinguishes circular from polygonal boundaries.
type GeofenceType string

const (
	GeofenceCircular GeofenceType = "CIRCULAR"
	GeofencePolygon  GeofenceType = "POLYGON"
)

// NotificationPolicy configures which containment changes notify
// stakeholders and the dwell threshold for dwell alerts.
type NotificationPolicy struct {
	NotifyOnEntry bool `json:"notify_on_entry"`
	NotifyOnExit  bool `json:"notify_on_exit"`
	NotifyOnDwell bool `json:"notify_on_dwell"`
	// DwellTimeMinutes overrides the engine's default dwell threshold
	// when positive.
	DwellTimeMinutes int `json:"dwell_time_minutes,omitempty"`
}

// Geofence is a virtual boundary that triggers containment events.
type Geofence struct {
	// ID is the unique identifier.
	ID string `json:"id"`
	// Name is unique per owner.
	Name string `json:"name"`
	// CustomerID is the owner.
	CustomerID string `json:"customer_id"`
	// Type selects which boundary fields apply.
	Type GeofenceType `json:"type"`

	// CenterLatitude, CenterLongitude and RadiusMeters define a circular fence.
	CenterLatitude  float64 `json:"center_latitude,omitempty"`
	CenterLongitude float64 `json:"center_longitude,omitempty"`
	RadiusMeters    float64 `json:"radius_meters,omitempty"`

	// Boundary is the ordered vertex ring of a polygon fence, at least 3 vertices.
	Boundary []geo.Point `json:"boundary,omitempty"`

	// Active controls whether the engine evaluates this fence.
	Active bool `json:"active"`

	Tags         []string           `json:"tags,omitempty"`
	Notification NotificationPolicy `json:"notification"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCircularGeofence validates the radius and constructs an active
// circular fence.
func NewCircularGeofence(name, customerID string, centerLat, centerLon, radiusMeters float64) (*Geofence, error) {
	if radiusMeters <= 0 || radiusMeters > maxRadiusMeters {
		return nil, fmt.Errorf("%w: radius must be between 0 and %d meters", ErrInvalidGeofence, maxRadiusMeters)
	}
	if !geo.ValidCoordinates(centerLat, centerLon) {
		return nil, fmt.Errorf("%w: center (%f, %f) out of range", ErrInvalidGeofence, centerLat, centerLon)
	}

	now := time.Now().UTC()
	return &Geofence{
		ID:              uuid.NewString(),
		Name:            name,
		CustomerID:      customerID,
		Type:            GeofenceCircular,
		CenterLatitude:  centerLat,
		CenterLongitude: centerLon,
		RadiusMeters:    radiusMeters,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// NewPolygonGeofence validates the boundary and constructs an active
// polygon fence.
func NewPolygonGeofence(name, customerID string, boundary []geo.Point) (*Geofence, error) {
	if len(boundary) < 3 {
		return nil, fmt.Errorf("%w: polygon boundary needs at least 3 vertices", ErrInvalidGeofence)
	}
	for _, v := range boundary {
		if !geo.ValidCoordinates(v.Latitude, v.Longitude) {
			return nil, fmt.Errorf("%w: vertex (%f, %f) out of range", ErrInvalidGeofence, v.Latitude, v.Longitude)
		}
	}

	now := time.Now().UTC()
	return &Geofence{
		ID:         uuid.NewString(),
		Name:       name,
		CustomerID: customerID,
		Type:       GeofencePolygon,
		Boundary:   append([]geo.Point(nil), boundary...),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Contains reports whether the point is inside the fence. On-boundary
// points are treated as inside for both fence types.
func (g *Geofence) Contains(p geo.Point) bool {
	switch g.Type {
	case GeofenceCircular:
		center := geo.Point{Latitude: g.CenterLatitude, Longitude: g.CenterLongitude}
		return geo.DistanceMeters(center, p) <= g.RadiusMeters
	case GeofencePolygon:
		return polygonContains(g.Boundary, p)
	default:
		return false
	}
}

// Activate enables evaluation of this fence.
func (g *Geofence) Activate() error {
	if g.Active {
		return fmt.Errorf("%w: geofence is already active", ErrGeofenceState)
	}
	g.Active = true
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate disables evaluation of this fence.
func (g *Geofence) Deactivate() error {
	if !g.Active {
		return fmt.Errorf("%w: geofence is already inactive", ErrGeofenceState)
	}
	g.Active = false
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateRadius changes a circular fence's radius.
func (g *Geofence) UpdateRadius(radiusMeters float64) error {
	if g.Type != GeofenceCircular {
		return fmt.Errorf("%w: can only update radius for circular geofences", ErrGeofenceState)
	}
	if radiusMeters <= 0 || radiusMeters > maxRadiusMeters {
		return fmt.Errorf("%w: radius must be between 0 and %d meters", ErrInvalidGeofence, maxRadiusMeters)
	}
	g.RadiusMeters = radiusMeters
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// Specificity orders fences for deterministic evaluation: smaller values
// are evaluated first, so the most specific containing fence wins when
// fences overlap. Circles order by radius; polygons follow all circles,
// ordered by vertex count.
func (g *Geofence) Specificity() float64 {
	if g.Type == GeofenceCircular {
		return g.RadiusMeters
	}
	return maxRadiusMeters + float64(len(g.Boundary))
}

// polygonContains runs an even-odd ray cast over the boundary edges.
// Points on an edge or vertex count as inside.
func polygonContains(boundary []geo.Point, p geo.Point) bool {
	inside := false

	for i, j := 0, len(boundary)-1; i < len(boundary); j, i = i, i+1 {
		a, b := boundary[j], boundary[i]

		if pointOnSegment(a, b, p) {
			return true
		}

		crosses := (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude)
		if crosses {
			x := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
	}

	return inside
}

// pointOnSegment reports whether p lies on the segment ab, within a small
// tolerance in degree space.
func pointOnSegment(a, b, p geo.Point) bool {
	const eps = 1e-9

	cross := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude) -
		(b.Latitude-a.Latitude)*(p.Longitude-a.Longitude)
	if math.Abs(cross) > eps {
		return false
	}

	return p.Latitude >= math.Min(a.Latitude, b.Latitude)-eps &&
		p.Latitude <= math.Max(a.Latitude, b.Latitude)+eps &&
		p.Longitude >= math.Min(a.Longitude, b.Longitude)-eps &&
		p.Longitude <= math.Max(a.Longitude, b.Longitude)+eps
}
