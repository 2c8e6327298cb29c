package server

import (
	"fmt"

	"github.com/etsibreadud/qbloco-app/internal/auth"
	"github.com/etsibreadud/qbloco-app/internal/config"
	"github.com/etsibreadud/qbloco-app/internal/db"
	"github.com/etsibreadud/qbloco-app/internal/location"
	"github.com/etsibreadud/qbloco-app/internal/observability"
	"github.com/etsibreadud/qbloco-app/internal/stream"
	"github.com/etsibreadud/qbloco-app/internal/tracking"
	"github.com/etsibreadud/qbloco-app/internal/visit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      db.Querier
	Redis   *redis.Client
	Stream  *stream.Hub
	Tracker *tracking.Tracker
	Visits  *visit.Service
	Metrics *observability.TrackerCollector
}

// NewServer wires the tracker to its observers and mounts every route. The
// tracker's live events are published on the stream topic named by DeviceID.
func NewServer(cfg config.Config, q db.Querier, redisClient *redis.Client, provider tracking.Provider) (*Server, error) {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	metrics, err := observability.NewTrackerCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	hub := stream.NewHub(redisClient)
	tracker := tracking.NewTracker(provider,
		tracking.WithWatchOptions(location.WatchOptions(cfg)),
		tracking.WithProbeTimeout(cfg.PermissionProbeLimit),
		tracking.WithObserver(hub.Observer(cfg.DeviceID)),
		tracking.WithObserver(metrics),
	)

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      q,
		Redis:   redisClient,
		Stream:  hub,
		Tracker: tracker,
		Visits:  visit.NewService(q, tracker),
		Metrics: metrics,
	}

	registerRoutes(s)
	return s, nil
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "tracker": s.Tracker.State()})
	})
	s.App.Get("/metrics", s.Metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracker, jwtMiddleware)
	visit.RegisterRoutes(s.App.Group("/visits"), s.Visits, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
