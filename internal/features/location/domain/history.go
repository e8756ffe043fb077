package domain

import (
	"time"

	"shipment-tracker/internal/core/geo"
)

// DateFormat is the calendar-day key for history buckets.
const DateFormat = "2006-01-02"

// HistoryPoint is the compact location shape stored in daily buckets.
type HistoryPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStatistics are rolling aggregates over a bucket's points,
// maintained incrementally so appends stay O(1).
type HistoryStatistics struct {
	// TotalPoints counts every appended point, including ones later
	// dropped by compression.
	TotalPoints int `json:"total_points"`
	// TotalDistanceKm accumulates pairwise distance between consecutive points.
	TotalDistanceKm float64  `json:"total_distance_km"`
	MaxSpeed        *float64 `json:"max_speed,omitempty"`
	AvgSpeed        *float64 `json:"avg_speed,omitempty"`
	MinLatitude     *float64 `json:"min_latitude,omitempty"`
	MaxLatitude     *float64 `json:"max_latitude,omitempty"`
	MinLongitude    *float64 `json:"min_longitude,omitempty"`
	MaxLongitude    *float64 `json:"max_longitude,omitempty"`
	LastUpdate      time.Time `json:"last_update"`
}

// History is the daily location bucket for one shipment: an ordered point
// sequence plus rolling statistics. Point count is bounded; once it exceeds
// the configured cap the sequence is compressed by uniform sub-sampling,
// trading precision for bounded storage.
type History struct {
	// ID is shipmentID_date.
	ID string `json:"id"`
	// ShipmentID is the owning shipment.
	ShipmentID string `json:"shipment_id"`
	// Date is the bucket's calendar day in DateFormat.
	Date string `json:"date"`

	Points     []HistoryPoint    `json:"points"`
	Statistics HistoryStatistics `json:"statistics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDailyHistory creates an empty bucket for the given shipment and day.
func NewDailyHistory(shipmentID, date string) *History {
	now := time.Now().UTC()
	return &History{
		ID:         shipmentID + "_" + date,
		ShipmentID: shipmentID,
		Date:       date,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Append adds a point and updates the rolling statistics in constant time.
func (h *History) Append(p HistoryPoint) {
	if len(h.Points) > 0 {
		last := h.Points[len(h.Points)-1]
		h.Statistics.TotalDistanceKm += geo.Distance(
			geo.Point{Latitude: last.Latitude, Longitude: last.Longitude},
			geo.Point{Latitude: p.Latitude, Longitude: p.Longitude},
		)
	}

	h.Points = append(h.Points, p)
	h.updateStatistics(p)
	h.UpdatedAt = time.Now().UTC()
}

// Compress reduces the point sequence to roughly keepN points by uniform
// sub-sampling, always retaining the most recent point. No-op when the
// bucket is already within bounds.
func (h *History) Compress(keepN int) {
	if keepN <= 0 || len(h.Points) <= keepN {
		return
	}

	skipFactor := len(h.Points) / keepN
	if skipFactor < 2 {
		skipFactor = 2
	}

	compressed := make([]HistoryPoint, 0, keepN+1)
	for i := 0; i < len(h.Points); i += skipFactor {
		compressed = append(compressed, h.Points[i])
	}

	last := h.Points[len(h.Points)-1]
	if len(compressed) == 0 || compressed[len(compressed)-1].Timestamp != last.Timestamp {
		compressed = append(compressed, last)
	}

	h.Points = compressed
	h.UpdatedAt = time.Now().UTC()
}

func (h *History) updateStatistics(p HistoryPoint) {
	stats := &h.Statistics

	stats.TotalPoints++
	stats.LastUpdate = p.Timestamp

	stats.MinLatitude = minFloat(stats.MinLatitude, p.Latitude)
	stats.MaxLatitude = maxFloat(stats.MaxLatitude, p.Latitude)
	stats.MinLongitude = minFloat(stats.MinLongitude, p.Longitude)
	stats.MaxLongitude = maxFloat(stats.MaxLongitude, p.Longitude)

	if p.Speed != nil {
		stats.MaxSpeed = maxFloat(stats.MaxSpeed, *p.Speed)

		prev := 0.0
		if stats.AvgSpeed != nil {
			prev = *stats.AvgSpeed
		}
		avg := (prev*float64(stats.TotalPoints-1) + *p.Speed) / float64(stats.TotalPoints)
		stats.AvgSpeed = &avg
	}
}

func minFloat(current *float64, candidate float64) *float64 {
	if current == nil || candidate < *current {
		return &candidate
	}
	return current
}

func maxFloat(current *float64, candidate float64) *float64 {
	if current == nil || candidate > *current {
		return &candidate
	}
	return current
}
