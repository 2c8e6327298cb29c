// Package geo holds the great-circle helpers shared by the tracker and the
// visit log.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusM is the mean Earth radius used by the haversine formula.
const EarthRadiusM = 6371000.0

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	// cos product grouped so swapping a and b yields the identical value
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*(math.Cos(lat1)*math.Cos(lat2))
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusM * c
}

// PathDistanceMeters sums the segment distances of an ordered path.
func PathDistanceMeters(points []Coordinate) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceMeters(points[i-1], points[i])
	}
	return total
}

// FormatDistance renders meters for display: "412 m", "1.25 km", "12.3 km".
func FormatDistance(meters float64) string {
	if math.IsNaN(meters) || meters <= 0 {
		return "0 m"
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int64(math.Round(meters)))
	}
	km := meters / 1000
	if km < 10 {
		return fmt.Sprintf("%.2f km", km)
	}
	return fmt.Sprintf("%.1f km", km)
}

// LineString converts a path to an orb geometry (lng, lat order).
func LineString(points []Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, orb.Point{p.Lng, p.Lat})
	}
	return ls
}

func toRad(v float64) float64 {
	return v * math.Pi / 180
}
