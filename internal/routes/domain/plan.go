// Package domain derives the planning figures shown for a route. Nothing
// here is persisted.
package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Stop is the part of a job the planner looks at.
type Stop struct {
	EstimatedMinutes *int
	Latitude         *float64
	Longitude        *float64
	Cancelled        bool
}

// WorkloadHours sums the estimated time of the active stops, in hours with
// one decimal. Stops without an estimate count as zero.
func WorkloadHours(stops []Stop) float64 {
	minutes := 0
	for _, s := range stops {
		if s.Cancelled || s.EstimatedMinutes == nil {
			continue
		}
		minutes += *s.EstimatedMinutes
	}
	return round1(float64(minutes) / 60)
}

// DistanceKm is the great-circle length of the path through the active stops
// that have coordinates, in route order.
func DistanceKm(stops []Stop) float64 {
	path := make(orb.LineString, 0, len(stops))
	for _, s := range stops {
		if s.Cancelled || s.Latitude == nil || s.Longitude == nil {
			continue
		}
		path = append(path, orb.Point{*s.Longitude, *s.Latitude})
	}
	if len(path) < 2 {
		return 0
	}
	return round1(geo.Length(path) / 1000)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
