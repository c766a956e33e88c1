package db

import (
	"context"
	"database/sql"
	"time"

	"backend-qingheplan/internal/config"

	_ "modernc.org/sqlite"
)

var openSQLiteFn = sql.Open

func ConnectSQLite(cfg config.Config) (*sql.DB, error) {
	conn, err := openSQLiteFn("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps :memory: shared
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
