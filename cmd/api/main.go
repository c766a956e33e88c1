package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-qingheplan/internal/config"
	"backend-qingheplan/internal/db"
	"backend-qingheplan/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectSQLite   func(config.Config) (*sql.DB, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, server.Resources, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectSQLite:   db.ConnectSQLite,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	var res server.Resources
	var err error
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		res.SQLite, err = deps.connectSQLite(cfg)
		if err != nil {
			log.Printf("sqlite open failed: %v", err)
		}
	default:
		res.Postgres, err = deps.connectPostgres(cfg)
		if err != nil {
			log.Printf("postgres connection failed: %v", err)
		}
	}

	res.Redis = deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, res, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

// Run starts the HTTP server and waits for termination signals. Live
// sessions are stopped and their workouts exported before connections close.
func Run(ctx context.Context, cfg config.Config, res server.Resources, signals <-chan os.Signal, listen ListenFunc) error {
	srv, err := server.NewServer(cfg, res)
	if err != nil {
		return err
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			srv.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = shutdownFn(srv.App, shutdownCtx)
	srv.Close()
	if res.Postgres != nil {
		res.Postgres.Close()
	}
	if res.SQLite != nil {
		_ = res.SQLite.Close()
	}
	if res.Redis != nil {
		_ = res.Redis.Close()
	}
	return err
}
