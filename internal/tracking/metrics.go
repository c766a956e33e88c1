package tracking

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"

	"backend-qingheplan/internal/shared/geo"
)

// DisplayFix is an accepted fix after datum correction.
type DisplayFix struct {
	Point     orb.Point
	Timestamp time.Time
}

// Metrics aggregates distance, speed and pace from display fixes. Distance
// and speed each keep their own reference fix and their own outlier guard.
type Metrics struct {
	cfg Config

	distanceKm   float64
	currentSpeed float64
	maxSpeed     float64
	averageSpeed float64
	currentPace  float64
	bestPace     float64 // 0 until the first positive pace

	lastDistance *DisplayFix
	lastSpeed    *DisplayFix

	distanceRejected int
	speedRejected    int
}

func NewMetrics(cfg Config) *Metrics {
	return &Metrics{cfg: cfg}
}

// UpdateDistance adds the step from the previous distance reference when it
// passes the step guard. The reference always advances so one outlier does
// not block later steps.
func (m *Metrics) UpdateDistance(fix DisplayFix) bool {
	prev := m.lastDistance
	m.lastDistance = &fix
	if prev == nil {
		return false
	}

	d := geo.DistanceM(prev.Point, fix.Point)
	dt := fix.Timestamp.Sub(prev.Timestamp)
	if d > m.cfg.MaxDistanceStepM || dt <= m.cfg.MinDistanceStepDt || math.IsNaN(d) {
		m.distanceRejected++
		return false
	}
	m.distanceKm += d / 1000
	return true
}

// UpdateSpeed derives a speed sample against the last speed reference. The
// first fix only seeds the reference; steps that are too short in time or
// space leave it in place until enough movement accumulates.
func (m *Metrics) UpdateSpeed(fix DisplayFix) (float64, bool) {
	if m.lastSpeed == nil {
		m.lastSpeed = &fix
		return 0, false
	}

	d := geo.DistanceM(m.lastSpeed.Point, fix.Point)
	dt := fix.Timestamp.Sub(m.lastSpeed.Timestamp)
	if dt < m.cfg.MinSpeedDt || d < m.cfg.MinSpeedStepM {
		return 0, false
	}

	speed := d / dt.Seconds()
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed > m.cfg.MaxSpeed {
		m.speedRejected++
		return 0, false
	}

	m.lastSpeed = &fix
	m.currentSpeed = speed
	if speed > m.maxSpeed {
		m.maxSpeed = speed
	}
	m.currentPace = Pace(speed)
	if m.currentPace > 0 && (m.bestPace == 0 || m.currentPace < m.bestPace) {
		m.bestPace = m.currentPace
	}
	return speed, true
}

// RecomputeAverage sets the average speed to the mean of the retained
// samples.
func (m *Metrics) RecomputeAverage(samples []float64) {
	if len(samples) == 0 {
		m.averageSpeed = 0
		return
	}
	m.averageSpeed = stat.Mean(samples, nil)
}

// ResetReferences forgets the distance and speed reference fixes so the
// next fix starts a fresh segment.
func (m *Metrics) ResetReferences() {
	m.lastDistance = nil
	m.lastSpeed = nil
}

func (m *Metrics) DistanceKm() float64   { return m.distanceKm }
func (m *Metrics) CurrentSpeed() float64 { return m.currentSpeed }
func (m *Metrics) MaxSpeed() float64     { return m.maxSpeed }
func (m *Metrics) AverageSpeed() float64 { return m.averageSpeed }
func (m *Metrics) CurrentPace() float64  { return m.currentPace }
func (m *Metrics) BestPace() float64     { return m.bestPace }

// Pace converts m/s into minutes per kilometer. Zero, negative and
// non-finite speeds yield 0.
func Pace(speed float64) float64 {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return 0
	}
	return 1000 / (speed * 60)
}
