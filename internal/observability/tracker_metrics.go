// Package observability exposes the agent's Prometheus metrics.
package observability

import (
	"fmt"
	"sync"

	"github.com/etsibreadud/qbloco-app/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TrackerCollector records tracker decisions and session state. It is a
// tracking.Observer.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	Fixes     *prometheus.CounterVec
	Errors    *prometheus.CounterVec
	DistanceM prometheus.Gauge
	Points    prometheus.Gauge

	mu      sync.Mutex
	lastSeq uint64
}

// NewTrackerCollector registers tracker metrics against reg, reusing
// collectors that are already registered under the same name.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fixes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qbloco_tracker_fixes_total",
		Help: "Location fixes seen by the tracker, by pipeline decision.",
	}, []string{"decision"}), "qbloco_tracker_fixes_total")
	if err != nil {
		return nil, err
	}

	errs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qbloco_tracker_errors_total",
		Help: "Tracking sessions that ended in the error state, by error kind.",
	}, []string{"kind"}), "qbloco_tracker_errors_total")
	if err != nil {
		return nil, err
	}

	distance, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qbloco_tracker_distance_meters",
		Help: "Cumulative distance of the current path.",
	}), "qbloco_tracker_distance_meters")
	if err != nil {
		return nil, err
	}

	points, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qbloco_tracker_points",
		Help: "Accepted points in the current path.",
	}), "qbloco_tracker_points")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:  gatherer,
		Fixes:     fixes,
		Errors:    errs,
		DistanceM: distance,
		Points:    points,
	}, nil
}

func (c *TrackerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

func (c *TrackerCollector) FixDecided(_ tracking.Fix, decision tracking.Decision, snap tracking.Snapshot) {
	if c == nil {
		return
	}
	c.Fixes.WithLabelValues(string(decision)).Inc()
	c.setPath(snap)
}

func (c *TrackerCollector) StateChanged(snap tracking.Snapshot) {
	if c == nil {
		return
	}
	if snap.State == tracking.StateError && snap.ErrorKind != "" {
		c.Errors.WithLabelValues(snap.ErrorKind).Inc()
	}
	c.setPath(snap)
}

// setPath ignores snapshots older than the last one applied, so a late
// callback cannot overwrite the gauges after a reset.
func (c *TrackerCollector) setPath(snap tracking.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Seq < c.lastSeq {
		return
	}
	c.lastSeq = snap.Seq
	c.DistanceM.Set(snap.DistanceM)
	c.Points.Set(float64(len(snap.Points)))
}

// Handler serves the collector's gatherer in the Prometheus text format.
func (c *TrackerCollector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{}))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
