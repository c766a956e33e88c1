package tracking

import "time"

// Config holds the ingestion thresholds and history caps.
type Config struct {
	// Fix admission
	MaxAccuracyM     float64       // reject fixes less precise than this
	MaxFixAge        time.Duration // reject fixes older/newer than now by more
	MinFixInterval   time.Duration // reject fixes this close to the last accepted one
	MaxImpliedSpeed  float64       // m/s, anti-jump
	MinDisplacementM float64       // m, jitter debounce

	// Accumulator guards
	MaxDistanceStepM  float64       // m, larger steps are not added to distance
	MinDistanceStepDt time.Duration // steps must be strictly longer than this
	MinSpeedDt        time.Duration
	MinSpeedStepM     float64
	MaxSpeed          float64 // m/s, 50 km/h

	// History caps
	TrimEvery         int
	RouteCap          int
	SpeedCap          int
	EmergencyRouteCap int
	EmergencySpeedCap int

	SnapshotBuffer int
	EventQueue     int
	PersistTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAccuracyM:      50.0,
		MaxFixAge:         10 * time.Second,
		MinFixInterval:    100 * time.Millisecond,
		MaxImpliedSpeed:   50.0,
		MinDisplacementM:  3.0,
		MaxDistanceStepM:  100.0,
		MinDistanceStepDt: 500 * time.Millisecond,
		MinSpeedDt:        500 * time.Millisecond,
		MinSpeedStepM:     1.0,
		MaxSpeed:          13.9,
		TrimEvery:         100,
		RouteCap:          5000,
		SpeedCap:          500,
		EmergencyRouteCap: 1000,
		EmergencySpeedCap: 100,
		SnapshotBuffer:    16,
		EventQueue:        256,
		PersistTimeout:    30 * time.Second,
	}
}
