package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := DistanceMeters(Coordinate{Lat: -6.2, Lng: 106.816}, Coordinate{Lat: -6.9175, Lng: 107.6191})
	if d < 100000 || d > 140000 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestDistanceMetersSameSymmetric(t *testing.T) {
	coords := []Coordinate{
		{Lat: -22.9068, Lng: -43.1729},
		{Lat: 0, Lng: 0},
		{Lat: 89.9, Lng: 179.9},
		{Lat: -33.8688, Lng: 151.2093},
	}
	for _, a := range coords {
		if d := DistanceMeters(a, a); d != 0 {
			t.Fatalf("expected zero distance for %v, got %v", a, d)
		}
		for _, b := range coords {
			if DistanceMeters(a, b) != DistanceMeters(b, a) {
				t.Fatalf("distance not symmetric for %v %v", a, b)
			}
			if DistanceMeters(a, b) < 0 {
				t.Fatalf("negative distance")
			}
		}
	}
}

func TestDistanceMetersOneDegreeLatitude(t *testing.T) {
	d := DistanceMeters(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 1, Lng: 0})
	want := EarthRadiusM * math.Pi / 180
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("expected %v, got %v", want, d)
	}
}

func TestPathDistanceMetersEmptyAndSingle(t *testing.T) {
	if PathDistanceMeters(nil) != 0 {
		t.Fatalf("expected zero for nil path")
	}
	if PathDistanceMeters([]Coordinate{}) != 0 {
		t.Fatalf("expected zero for empty path")
	}
	if PathDistanceMeters([]Coordinate{{Lat: -22.9, Lng: -43.2}}) != 0 {
		t.Fatalf("expected zero for single point")
	}
}

func TestPathDistanceMetersSumsSegments(t *testing.T) {
	path := []Coordinate{
		{Lat: -22.9711, Lng: -43.1822},
		{Lat: -22.9700, Lng: -43.1810},
		{Lat: -22.9690, Lng: -43.1825},
		{Lat: -22.9705, Lng: -43.1840},
		{Lat: -22.9711, Lng: -43.1822},
	}
	want := DistanceMeters(path[0], path[1]) +
		DistanceMeters(path[1], path[2]) +
		DistanceMeters(path[2], path[3]) +
		DistanceMeters(path[3], path[4])

	got := PathDistanceMeters(path)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	// closed loop: endpoint distance is zero but the walk is not
	if DistanceMeters(path[0], path[4]) != 0 || got <= 0 {
		t.Fatalf("path distance must not shortcut through endpoints")
	}
}

func TestFormatDistance(t *testing.T) {
	cases := map[float64]string{
		-5:    "0 m",
		0:     "0 m",
		0.4:   "0 m",
		12.6:  "13 m",
		999:   "999 m",
		1000:  "1.00 km",
		1234:  "1.23 km",
		9999:  "10.00 km",
		10000: "10.0 km",
		42195: "42.2 km",
	}
	for in, want := range cases {
		if got := FormatDistance(in); got != want {
			t.Fatalf("FormatDistance(%v) = %q, want %q", in, got, want)
		}
	}
	if FormatDistance(math.NaN()) != "0 m" {
		t.Fatalf("expected NaN to format as zero")
	}
}

func TestLineString(t *testing.T) {
	ls := LineString([]Coordinate{{Lat: -22.9, Lng: -43.2}, {Lat: -22.8, Lng: -43.1}})
	if len(ls) != 2 {
		t.Fatalf("unexpected length %d", len(ls))
	}
	if ls[0][0] != -43.2 || ls[0][1] != -22.9 {
		t.Fatalf("expected lng,lat order, got %v", ls[0])
	}
}
