package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"backend-qingheplan/internal/auth"
	"backend-qingheplan/internal/config"
	"backend-qingheplan/internal/shared/geo"
	"backend-qingheplan/internal/stream"
	"backend-qingheplan/internal/tracking"
	"backend-qingheplan/internal/workout"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Resources are the connections main managed to open; any may be nil.
type Resources struct {
	Postgres *pgxpool.Pool
	SQLite   *sql.DB
	Redis    *redis.Client
}

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	Redis    *redis.Client
	Stream   *stream.Hub
	Store    workout.Store
	Tracking *tracking.Service
}

func NewServer(cfg config.Config, res Resources) (*Server, error) {
	transformer, err := geo.NewTransformer(cfg.Datum)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg, res)
	if err != nil {
		return nil, err
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		Redis: res.Redis,
		Store: store,
	}
	s.Stream = stream.NewHub(res.Redis)

	var persist tracking.Persistence
	if store != nil {
		persist = store
	} else {
		log.Printf("workout persistence disabled: no %s connection", cfg.StoreDriver)
	}
	s.Tracking = tracking.NewService(TrackingConfig(cfg), persist, s.Stream, tracking.WithTransformer(transformer))

	registerRoutes(s)
	return s, nil
}

func newStore(cfg config.Config, res Resources) (workout.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		if res.SQLite == nil {
			return nil, nil
		}
		return workout.NewSQLiteStore(context.Background(), res.SQLite)
	case config.StorePostgres, "":
		if res.Postgres == nil {
			return nil, nil
		}
		return workout.NewPostgresStore(res.Postgres), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// TrackingConfig overlays configured thresholds on the pipeline defaults.
func TrackingConfig(cfg config.Config) tracking.Config {
	tc := tracking.DefaultConfig()
	if cfg.MaxAccuracyM > 0 {
		tc.MaxAccuracyM = cfg.MaxAccuracyM
	}
	if cfg.MaxFixAge > 0 {
		tc.MaxFixAge = cfg.MaxFixAge
	}
	if cfg.RouteCap > 0 {
		tc.RouteCap = cfg.RouteCap
	}
	if cfg.SpeedCap > 0 {
		tc.SpeedCap = cfg.SpeedCap
	}
	if cfg.EmergencyRouteCap > 0 {
		tc.EmergencyRouteCap = cfg.EmergencyRouteCap
	}
	if cfg.EmergencySpeedCap > 0 {
		tc.EmergencySpeedCap = cfg.EmergencySpeedCap
	}
	return tc
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "persistence": s.Store != nil})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	if s.Store != nil {
		workout.RegisterRoutes(s.App.Group("/workouts", jwtMiddleware), s.Store)
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Close stops live pipelines, waiting for pending exports, and the hub.
func (s *Server) Close() {
	s.Tracking.Close()
	s.Stream.Close()
}
