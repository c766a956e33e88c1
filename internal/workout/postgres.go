package workout

import (
	"context"
	"errors"
	"fmt"

	"backend-qingheplan/internal/db"
	"backend-qingheplan/internal/tracking"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(db db.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveWorkout writes the summary row and bulk-copies the route in one
// transaction.
func (s *PostgresStore) SaveWorkout(ctx context.Context, w tracking.Workout) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin workout tx: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workouts (id, user_id, workout_type, start_time, end_time, distance_km, duration_seconds, average_speed_mps, max_speed_mps, best_pace)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, w.ID, w.UserID, w.WorkoutType, w.StartTime, w.EndTime, w.DistanceKm, w.DurationSeconds, w.AverageSpeed, w.MaxSpeed, w.BestPace)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("insert workout %s: %w", w.ID, err)
	}

	if len(w.Points) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"workout_points"}, pointColumns,
			pgx.CopyFromSlice(len(w.Points), func(i int) ([]any, error) {
				p := w.Points[i]
				return []any{w.ID, i, p.Latitude, p.Longitude, p.Altitude, p.Timestamp, p.Speed, p.Course, p.HorizontalAccuracy}, nil
			}))
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("copy workout %s points: %w", w.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit workout %s: %w", w.ID, err)
	}
	return nil
}

func (s *PostgresStore) Workout(ctx context.Context, id string) (tracking.Workout, error) {
	var w tracking.Workout
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, workout_type, start_time, end_time, distance_km, duration_seconds, average_speed_mps, max_speed_mps, best_pace
		FROM workouts WHERE id=$1
	`, id)
	err := row.Scan(&w.ID, &w.UserID, &w.WorkoutType, &w.StartTime, &w.EndTime, &w.DistanceKm, &w.DurationSeconds, &w.AverageSpeed, &w.MaxSpeed, &w.BestPace)
	if errors.Is(err, pgx.ErrNoRows) {
		return tracking.Workout{}, ErrNotFound
	}
	if err != nil {
		return tracking.Workout{}, err
	}
	return w, nil
}

func (s *PostgresStore) Points(ctx context.Context, id string) ([]tracking.RoutePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lat, lng, altitude_m, recorded_at, speed_mps, course, horizontal_accuracy
		FROM workout_points WHERE workout_id=$1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []tracking.RoutePoint{}
	for rows.Next() {
		var p tracking.RoutePoint
		var altitude, speed pgtype.Float8
		if err := rows.Scan(&p.Latitude, &p.Longitude, &altitude, &p.Timestamp, &speed, &p.Course, &p.HorizontalAccuracy); err != nil {
			return nil, err
		}
		p.Altitude = float8Ptr(altitude)
		p.Speed = float8Ptr(speed)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		if err := s.exists(ctx, id); err != nil {
			return nil, err
		}
	}
	return points, nil
}

func (s *PostgresStore) exists(ctx context.Context, id string) error {
	var found bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workouts WHERE id=$1)`, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func float8Ptr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
