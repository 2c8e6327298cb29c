package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/etsibreadud/qbloco-app/internal/tracking"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

var ErrNoTrack = errors.New("no LineString track in file")

// Replay plays back a recorded walk stored as a GeoJSON LineString feature.
// Per-point times come from the coordTimes property and optional accuracies
// from an accuracies property of the same length.
type Replay struct {
	Path string
	// Speed scales the recorded gaps between fixes; 0 replays without pausing.
	Speed float64
}

func NewReplay(path string, speed float64) *Replay {
	return &Replay{Path: path, Speed: speed}
}

func (r *Replay) Available() bool {
	if r.Path == "" {
		return false
	}
	_, err := os.Stat(r.Path)
	return err == nil
}

func (r *Replay) Permission(context.Context) tracking.PermissionState {
	return tracking.PermissionGranted
}

type replayWatch struct {
	cancel context.CancelFunc
}

func (r *Replay) Watch(onFix func(tracking.Fix), _ func(error), _ tracking.WatchOptions) (tracking.Subscription, error) {
	fixes, err := LoadTrack(r.Path)
	if err != nil {
		return nil, &tracking.PositionError{Code: tracking.CodePositionUnavailable, Message: err.Error()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go r.play(ctx, fixes, onFix)
	return &replayWatch{cancel: cancel}, nil
}

func (r *Replay) Clear(sub tracking.Subscription) {
	if w, ok := sub.(*replayWatch); ok {
		w.cancel()
	}
}

func (r *Replay) play(ctx context.Context, fixes []tracking.Fix, onFix func(tracking.Fix)) {
	for i, fix := range fixes {
		if i > 0 && r.Speed > 0 {
			gap := time.Duration(float64(fix.Timestamp.Sub(fixes[i-1].Timestamp)) / r.Speed)
			if gap > 0 {
				timer := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
		}
		if ctx.Err() != nil {
			return
		}
		onFix(fix)
	}
}

// LoadTrack reads a GeoJSON Feature or FeatureCollection and returns the
// fixes of its first LineString.
func LoadTrack(path string) ([]tracking.Fix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}

	var feature *geojson.Feature
	switch gjson.GetBytes(data, "type").String() {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
		for _, f := range fc.Features {
			if _, ok := f.Geometry.(orb.LineString); ok {
				feature = f
				break
			}
		}
	case "Feature":
		feature, err = geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
	}
	if feature == nil {
		return nil, ErrNoTrack
	}
	line, ok := feature.Geometry.(orb.LineString)
	if !ok || len(line) == 0 {
		return nil, ErrNoTrack
	}

	times, _ := feature.Properties["coordTimes"].([]interface{})
	accuracies, _ := feature.Properties["accuracies"].([]interface{})

	fixes := make([]tracking.Fix, 0, len(line))
	for i, pt := range line {
		fix := tracking.Fix{Lat: pt.Lat(), Lng: pt.Lon()}
		if i < len(times) {
			if s, ok := times[i].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					fix.Timestamp = t
				}
			}
		}
		if i < len(accuracies) {
			if v, ok := accuracies[i].(float64); ok {
				fix.Accuracy = &v
			}
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}
