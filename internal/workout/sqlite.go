package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backend-qingheplan/internal/tracking"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS workouts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	workout_type TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	distance_km REAL NOT NULL,
	duration_seconds INTEGER NOT NULL,
	average_speed_mps REAL NOT NULL,
	max_speed_mps REAL NOT NULL,
	best_pace REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS workout_points (
	workout_id TEXT NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	lat REAL NOT NULL,
	lng REAL NOT NULL,
	altitude_m REAL,
	recorded_at INTEGER NOT NULL,
	speed_mps REAL,
	course REAL NOT NULL,
	horizontal_accuracy REAL NOT NULL,
	PRIMARY KEY (workout_id, seq)
);`

// SQLiteStore keeps workouts in a local sqlite file. Times are stored as
// unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) SaveWorkout(ctx context.Context, w tracking.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin workout tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workouts (id, user_id, workout_type, start_time, end_time, distance_km, duration_seconds, average_speed_mps, max_speed_mps, best_pace)
		VALUES (?,?,?,?,?,?,?,?,?,?)
	`, w.ID, w.UserID, w.WorkoutType, w.StartTime.UnixNano(), w.EndTime.UnixNano(), w.DistanceKm, w.DurationSeconds, w.AverageSpeed, w.MaxSpeed, w.BestPace)
	if err != nil {
		return fmt.Errorf("insert workout %s: %w", w.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workout_points (workout_id, seq, lat, lng, altitude_m, recorded_at, speed_mps, course, horizontal_accuracy)
		VALUES (?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range w.Points {
		if _, err := stmt.ExecContext(ctx, w.ID, i, p.Latitude, p.Longitude, nullFloat(p.Altitude), p.Timestamp.UnixNano(), nullFloat(p.Speed), p.Course, p.HorizontalAccuracy); err != nil {
			return fmt.Errorf("insert workout %s point %d: %w", w.ID, i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Workout(ctx context.Context, id string) (tracking.Workout, error) {
	var w tracking.Workout
	var start, end int64
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, workout_type, start_time, end_time, distance_km, duration_seconds, average_speed_mps, max_speed_mps, best_pace
		FROM workouts WHERE id=?
	`, id)
	err := row.Scan(&w.ID, &w.UserID, &w.WorkoutType, &start, &end, &w.DistanceKm, &w.DurationSeconds, &w.AverageSpeed, &w.MaxSpeed, &w.BestPace)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.Workout{}, ErrNotFound
	}
	if err != nil {
		return tracking.Workout{}, err
	}
	w.StartTime = time.Unix(0, start).UTC()
	w.EndTime = time.Unix(0, end).UTC()
	return w, nil
}

func (s *SQLiteStore) Points(ctx context.Context, id string) ([]tracking.RoutePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lat, lng, altitude_m, recorded_at, speed_mps, course, horizontal_accuracy
		FROM workout_points WHERE workout_id=?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []tracking.RoutePoint{}
	for rows.Next() {
		var p tracking.RoutePoint
		var altitude, speed sql.NullFloat64
		var recorded int64
		if err := rows.Scan(&p.Latitude, &p.Longitude, &altitude, &recorded, &speed, &p.Course, &p.HorizontalAccuracy); err != nil {
			return nil, err
		}
		p.Timestamp = time.Unix(0, recorded).UTC()
		if altitude.Valid {
			p.Altitude = &altitude.Float64
		}
		if speed.Valid {
			p.Speed = &speed.Float64
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(points) == 0 {
		if err := s.exists(ctx, id); err != nil {
			return nil, err
		}
	}
	return points, nil
}

func (s *SQLiteStore) exists(ctx context.Context, id string) error {
	var found bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM workouts WHERE id=?)`, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
