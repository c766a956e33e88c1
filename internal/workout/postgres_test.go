package workout

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-qingheplan/internal/tracking"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func sampleWorkout() tracking.Workout {
	start := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	speed := 5.0
	altitude := 12.5
	return tracking.Workout{
		ID:              "w-1",
		UserID:          "user-1",
		WorkoutType:     "running",
		StartTime:       start,
		EndTime:         start.Add(10 * time.Second),
		DistanceKm:      0.01,
		DurationSeconds: 10,
		AverageSpeed:    5,
		MaxSpeed:        5,
		BestPace:        1000.0 / 300,
		Points: []tracking.RoutePoint{
			{Latitude: 31.23, Longitude: 121.47, Timestamp: start, Speed: &speed, Altitude: &altitude, Course: -1},
			{Latitude: 31.2301, Longitude: 121.47, Timestamp: start.Add(5 * time.Second), Course: -1},
		},
	}
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectWorkoutInsert(mock pgxmock.PgxPoolIface, w tracking.Workout) *pgxmock.ExpectedExec {
	return mock.ExpectExec(`INSERT INTO workouts`).
		WithArgs(w.ID, w.UserID, w.WorkoutType, pgxmock.AnyArg(), pgxmock.AnyArg(), w.DistanceKm, w.DurationSeconds, w.AverageSpeed, w.MaxSpeed, w.BestPace)
}

func TestPostgresSaveWorkout(t *testing.T) {
	mock := newMock(t)
	w := sampleWorkout()

	mock.ExpectBegin()
	expectWorkoutInsert(mock, w).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"workout_points"}, pointColumns).WillReturnResult(int64(len(w.Points)))
	mock.ExpectCommit()

	if err := NewPostgresStore(mock).SaveWorkout(context.Background(), w); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSaveWorkoutRollsBack(t *testing.T) {
	w := sampleWorkout()

	t.Run("insert", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectWorkoutInsert(mock, w).WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		if err := NewPostgresStore(mock).SaveWorkout(context.Background(), w); err == nil {
			t.Fatalf("expected insert error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("copy", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectWorkoutInsert(mock, w).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCopyFrom(pgx.Identifier{"workout_points"}, pointColumns).WillReturnError(errors.New("copy failed"))
		mock.ExpectRollback()

		if err := NewPostgresStore(mock).SaveWorkout(context.Background(), w); err == nil {
			t.Fatalf("expected copy error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("begin", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		if err := NewPostgresStore(mock).SaveWorkout(context.Background(), w); err == nil {
			t.Fatalf("expected begin error")
		}
	})
}

func TestPostgresWorkout(t *testing.T) {
	mock := newMock(t)
	w := sampleWorkout()

	mock.ExpectQuery(`SELECT id, user_id, workout_type`).
		WithArgs("w-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "workout_type", "start_time", "end_time", "distance_km", "duration_seconds", "average_speed_mps", "max_speed_mps", "best_pace"}).
			AddRow(w.ID, w.UserID, w.WorkoutType, w.StartTime, w.EndTime, w.DistanceKm, w.DurationSeconds, w.AverageSpeed, w.MaxSpeed, w.BestPace))

	got, err := NewPostgresStore(mock).Workout(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("workout: %v", err)
	}
	if got.ID != w.ID || got.DurationSeconds != 10 || !got.EndTime.Equal(w.EndTime) {
		t.Fatalf("workout = %+v", got)
	}

	mock.ExpectQuery(`SELECT id, user_id, workout_type`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	if _, err := NewPostgresStore(mock).Workout(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresPoints(t *testing.T) {
	mock := newMock(t)
	start := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT lat, lng, altitude_m`).
		WithArgs("w-1").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lng", "altitude_m", "recorded_at", "speed_mps", "course", "horizontal_accuracy"}).
			AddRow(31.23, 121.47, 12.5, start, 5.0, -1.0, 0.0).
			AddRow(31.2301, 121.47, nil, start.Add(time.Second), nil, -1.0, 0.0))

	points, err := NewPostgresStore(mock).Points(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d", len(points))
	}
	if points[0].Speed == nil || *points[0].Speed != 5 || *points[0].Altitude != 12.5 {
		t.Fatalf("first point = %+v", points[0])
	}
	if points[1].Speed != nil || points[1].Altitude != nil {
		t.Fatalf("nulls must stay nil: %+v", points[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresPointsUnknownWorkout(t *testing.T) {
	mock := newMock(t)
	columns := []string{"lat", "lng", "altitude_m", "recorded_at", "speed_mps", "course", "horizontal_accuracy"}

	mock.ExpectQuery(`SELECT lat, lng, altitude_m`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(columns))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	if _, err := NewPostgresStore(mock).Points(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery(`SELECT lat, lng, altitude_m`).
		WithArgs("w-empty").
		WillReturnRows(pgxmock.NewRows(columns))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("w-empty").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	points, err := NewPostgresStore(mock).Points(context.Background(), "w-empty")
	if err != nil || points == nil || len(points) != 0 {
		t.Fatalf("points = %v, %v", points, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
