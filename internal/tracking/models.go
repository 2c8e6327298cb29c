package tracking

import (
	"time"

	"github.com/etsibreadud/qbloco-app/internal/shared/geo"
)

type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
	StateError    State = "error"
)

// Fix is one reported device position. A zero Timestamp is stamped with the
// tracker clock on arrival; a nil Accuracy means the platform did not report one.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"t"`
	Accuracy  *float64  `json:"acc,omitempty"`
}

func (f Fix) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: f.Lat, Lng: f.Lng}
}

// Decision is the outcome of running a fix through the acceptance pipeline.
type Decision string

const (
	DecisionAccepted          Decision = "accepted"
	DecisionRejectedAccuracy  Decision = "rejected_accuracy"
	DecisionRejectedDuplicate Decision = "rejected_duplicate"
	DecisionRejectedSpeed     Decision = "rejected_speed"
	DecisionRejectedJitter    Decision = "rejected_jitter"
	DecisionIgnored           Decision = "ignored"
)

type PermissionState string

const (
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
	PermissionUnknown     PermissionState = "unknown"
	PermissionUnsupported PermissionState = "unsupported"
)

// WatchOptions are passed through to the location provider.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		MaximumAge:   3 * time.Second,
		Timeout:      15 * time.Second,
	}
}

// Snapshot is the read model handed to callers. Points is a copy. Seq grows
// with every snapshot taken, so a snapshot with a lower Seq than one already
// seen describes older state.
type Snapshot struct {
	Seq           uint64  `json:"seq"`
	State         State   `json:"state"`
	LastError     string  `json:"last_error,omitempty"`
	ErrorKind     string  `json:"error_kind,omitempty"`
	Points        []Fix   `json:"points"`
	DistanceM     float64 `json:"distance_m"`
	DistanceLabel string  `json:"distance_label"`
}
