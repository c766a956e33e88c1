package workout

import (
	"context"
	"errors"

	"backend-qingheplan/internal/tracking"
)

var ErrNotFound = errors.New("workout not found")

// Store persists finished workouts and reads them back.
type Store interface {
	SaveWorkout(ctx context.Context, w tracking.Workout) error
	Workout(ctx context.Context, id string) (tracking.Workout, error)
	Points(ctx context.Context, id string) ([]tracking.RoutePoint, error)
}

var pointColumns = []string{
	"workout_id", "seq", "lat", "lng", "altitude_m", "recorded_at", "speed_mps", "course", "horizontal_accuracy",
}
