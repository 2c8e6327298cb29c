// Package location provides the tracking.Provider implementations the agent
// can run against.
package location

import (
	"fmt"
	"strings"

	"github.com/etsibreadud/qbloco-app/internal/config"
	"github.com/etsibreadud/qbloco-app/internal/tracking"
)

func New(cfg config.Config) (tracking.Provider, error) {
	switch strings.ToLower(cfg.LocationSource) {
	case "", "gpsd":
		return NewGPSD(cfg.GPSDAddr), nil
	case "replay":
		return NewReplay(cfg.ReplayFile, cfg.ReplaySpeed), nil
	default:
		return nil, fmt.Errorf("unknown location source %q", cfg.LocationSource)
	}
}

func WatchOptions(cfg config.Config) tracking.WatchOptions {
	return tracking.WatchOptions{
		HighAccuracy: cfg.HighAccuracy,
		MaximumAge:   cfg.MaximumAge,
		Timeout:      cfg.Timeout,
	}
}
