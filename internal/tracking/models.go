package tracking

import (
	"time"

	"github.com/paulmach/orb"

	"backend-qingheplan/internal/shared/geo"
)

type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
	StatePaused   State = "paused"
	StateStopped  State = "stopped"
)

// Degraded conditions reported alongside snapshots.
const (
	StatusOK               = "ok"
	StatusLowAccuracy      = "low_accuracy"
	StatusPermissionDenied = "permission_denied"
)

// RawFix is one positioning measurement as delivered by the device.
type RawFix struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	Timestamp          time.Time `json:"timestamp"`
	Speed              *float64  `json:"speed,omitempty"`
	Course             *float64  `json:"course,omitempty"`
	Altitude           *float64  `json:"altitude,omitempty"`
}

func (f RawFix) Point() orb.Point {
	return geo.Point(f.Latitude, f.Longitude)
}

// RoutePoint is one exported element of a finished workout.
type RoutePoint struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           *float64  `json:"altitude,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Speed              *float64  `json:"speed,omitempty"`
	Course             float64   `json:"course"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
}

// Workout is what a stopped session hands to persistence.
type Workout struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	WorkoutType     string       `json:"workout_type"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DistanceKm      float64      `json:"distance_km"`
	DurationSeconds int64        `json:"duration_seconds"`
	AverageSpeed    float64      `json:"average_speed_mps"`
	MaxSpeed        float64      `json:"max_speed_mps"`
	BestPace        float64      `json:"best_pace_min_per_km"`
	Points          []RoutePoint `json:"points,omitempty"`
}

// Rejections counts dropped fixes by reason.
type Rejections struct {
	InvalidCoordinate int `json:"invalid_coordinate"`
	Accuracy          int `json:"accuracy"`
	Stale             int `json:"stale"`
	TooSoon           int `json:"too_soon"`
	Jump              int `json:"jump"`
	Jitter            int `json:"jitter"`
	Paused            int `json:"paused"`
	Inactive          int `json:"inactive"`
	DistanceGuard     int `json:"distance_guard"`
	SpeedGuard        int `json:"speed_guard"`
}

// Snapshot is an immutable view of a session published to observers.
type Snapshot struct {
	SessionID       string     `json:"session_id"`
	WorkoutType     string     `json:"workout_type"`
	State           State      `json:"state"`
	IsTracking      bool       `json:"is_tracking"`
	Status          string     `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	DistanceKm      float64    `json:"distance_km"`
	DurationSeconds int64      `json:"duration_seconds"`
	CurrentSpeed    float64    `json:"current_speed_mps"`
	MaxSpeed        float64    `json:"max_speed_mps"`
	AverageSpeed    float64    `json:"average_speed_mps"`
	CurrentPace     float64    `json:"current_pace_min_per_km"`
	BestPace        float64    `json:"best_pace_min_per_km"`
	PointCount      int        `json:"point_count"`
	SampleCount     int        `json:"sample_count"`
	Accepted        int        `json:"accepted"`
	Rejected        Rejections `json:"rejected"`

	PaceText       string `json:"pace_text"`
	BestPaceText   string `json:"best_pace_text"`
	SpeedText      string `json:"speed_text"`
	DistanceText   string `json:"distance_text"`
	DurationText   string `json:"duration_text"`
	AcceptanceText string `json:"acceptance_text"`
}
