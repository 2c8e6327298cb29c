package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.LocationSource != "gpsd" || cfg.GPSDAddr != "localhost:2947" {
		t.Fatalf("expected gpsd defaults, got %q %q", cfg.LocationSource, cfg.GPSDAddr)
	}
	if !cfg.HighAccuracy || cfg.MaximumAge != 3*time.Second || cfg.Timeout != 15*time.Second {
		t.Fatalf("unexpected watch defaults %+v", cfg)
	}
	if cfg.PermissionProbeLimit != 2*time.Second || cfg.ReplaySpeed != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEVICE_ID", "phone-7")
	t.Setenv("LOCATION_SOURCE", "replay")
	t.Setenv("REPLAY_FILE", "/tmp/walk.geojson")
	t.Setenv("REPLAY_SPEED", "4")
	t.Setenv("LOCATION_HIGH_ACCURACY", "false")
	t.Setenv("LOCATION_TIMEOUT", "30s")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.DeviceID != "phone-7" {
		t.Fatalf("expected override device id")
	}
	if cfg.LocationSource != "replay" || cfg.ReplayFile != "/tmp/walk.geojson" || cfg.ReplaySpeed != 4 {
		t.Fatalf("expected replay overrides, got %+v", cfg)
	}
	if cfg.HighAccuracy {
		t.Fatalf("expected high accuracy disabled")
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected timeout override, got %v", cfg.Timeout)
	}
}
