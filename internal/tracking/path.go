package tracking

import (
	"github.com/etsibreadud/qbloco-app/internal/shared/geo"

	"github.com/paulmach/orb/geojson"
)

// Path returns the accepted path as a GeoJSON LineString feature. Per-point
// times go in the coordTimes property, the layout GPS export tools use.
func (t *Tracker) Path() *geojson.Feature {
	snap := t.Snapshot()
	return PathFeature(snap)
}

func PathFeature(snap Snapshot) *geojson.Feature {
	coords := make([]geo.Coordinate, 0, len(snap.Points))
	times := make([]string, 0, len(snap.Points))
	for _, p := range snap.Points {
		coords = append(coords, p.Coordinate())
		times = append(times, p.Timestamp.UTC().Format(timeLayout))
	}

	f := geojson.NewFeature(geo.LineString(coords))
	f.Properties["state"] = string(snap.State)
	f.Properties["distance_m"] = snap.DistanceM
	f.Properties["distance_label"] = snap.DistanceLabel
	f.Properties["point_count"] = len(snap.Points)
	f.Properties["coordTimes"] = times
	return f
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
