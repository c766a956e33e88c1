package tracking

import (
	"errors"
	"time"

	"github.com/paulmach/orb"

	"backend-qingheplan/internal/shared/geo"
)

// Session is one workout from start to stop. It is not safe for concurrent
// use; the owning Pipeline serializes every call.
type Session struct {
	ID          string
	UserID      string
	WorkoutType string

	state     State
	status    string
	startTime time.Time
	endTime   time.Time

	pausedAt    time.Time
	pausedTotal time.Duration

	validator   *Validator
	transformer geo.Transformer
	metrics     *Metrics
	buffer      *Buffer

	lastAccepted *RawFix
	accepted     int
	rejected     Rejections

	now func() time.Time
}

func newSession(id, userID, workoutType string, cfg Config, transformer geo.Transformer, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if transformer == nil {
		transformer = geo.Identity{}
	}
	return &Session{
		ID:          id,
		UserID:      userID,
		WorkoutType: workoutType,
		state:       StateTracking,
		status:      StatusOK,
		startTime:   now(),
		validator:   NewValidator(cfg, now),
		transformer: transformer,
		metrics:     NewMetrics(cfg),
		buffer:      NewBuffer(cfg),
		now:         now,
	}
}

// Ingest runs one fix through validation, datum correction, metrics and the
// route buffer. Rejected fixes only bump a counter.
func (s *Session) Ingest(fix RawFix) bool {
	switch s.state {
	case StateTracking:
	case StatePaused:
		s.rejected.Paused++
		return false
	default:
		s.rejected.Inactive++
		return false
	}

	if err := s.validator.Validate(fix, s.lastAccepted); err != nil {
		s.reject(err)
		return false
	}
	s.lastAccepted = &fix
	s.accepted++
	if s.status == StatusLowAccuracy {
		s.status = StatusOK
	}

	display := DisplayFix{Point: s.transformer.Transform(fix.Point()), Timestamp: fix.Timestamp}
	distanceBefore := s.metrics.distanceRejected
	s.metrics.UpdateDistance(display)
	if s.metrics.distanceRejected != distanceBefore {
		s.rejected.DistanceGuard++
	}

	speedBefore := s.metrics.speedRejected
	var sample *float64
	if speed, ok := s.metrics.UpdateSpeed(display); ok {
		sample = &speed
	}
	if s.metrics.speedRejected != speedBefore {
		s.rejected.SpeedGuard++
	}

	s.buffer.Append(display.Point, sample)
	s.metrics.RecomputeAverage(s.buffer.Speeds())
	return true
}

func (s *Session) reject(err error) {
	switch {
	case errors.Is(err, ErrInvalidCoordinate):
		s.rejected.InvalidCoordinate++
	case errors.Is(err, ErrAccuracy):
		s.rejected.Accuracy++
		if s.status == StatusOK {
			s.status = StatusLowAccuracy
		}
	case errors.Is(err, ErrStale):
		s.rejected.Stale++
	case errors.Is(err, ErrTooSoon):
		s.rejected.TooSoon++
	case errors.Is(err, ErrJump):
		s.rejected.Jump++
	case errors.Is(err, ErrJitter):
		s.rejected.Jitter++
	}
}

// Pause stops ingestion. Fixes delivered while paused are dropped.
func (s *Session) Pause() bool {
	if s.state != StateTracking {
		return false
	}
	s.state = StatePaused
	s.pausedAt = s.now()
	return true
}

// Resume restarts ingestion with fresh metrics references, so movement
// during the pause is never added to distance. The last accepted fix is
// kept: fixes older than it are still rejected.
func (s *Session) Resume() bool {
	if s.state != StatePaused {
		return false
	}
	s.pausedTotal += s.now().Sub(s.pausedAt)
	s.pausedAt = time.Time{}
	s.metrics.ResetReferences()
	s.state = StateTracking
	return true
}

// Stop finalizes the session. The returned workout carries route points only
// when any were recorded. A second Stop reports false and changes nothing.
func (s *Session) Stop() (Workout, bool) {
	if s.state != StateTracking && s.state != StatePaused {
		return Workout{}, false
	}
	end := s.now()
	if s.state == StatePaused {
		s.pausedTotal += end.Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	}
	s.endTime = end
	s.state = StateStopped

	w := Workout{
		ID:              s.ID,
		UserID:          s.UserID,
		WorkoutType:     s.WorkoutType,
		StartTime:       s.startTime,
		EndTime:         s.endTime,
		DistanceKm:      s.metrics.DistanceKm(),
		DurationSeconds: int64(s.duration().Seconds()),
		AverageSpeed:    s.metrics.AverageSpeed(),
		MaxSpeed:        s.metrics.MaxSpeed(),
		BestPace:        s.metrics.BestPace(),
	}
	if s.buffer.Len() > 0 {
		w.Points = synthesizeRoute(s.buffer.Route(), s.buffer.SpeedByPoint(), s.startTime, s.endTime)
	}
	s.buffer.Clear()
	return w, true
}

// EmergencyTrim applies the memory-pressure caps.
func (s *Session) EmergencyTrim() bool {
	trimmed := s.buffer.EmergencyTrim()
	s.metrics.RecomputeAverage(s.buffer.Speeds())
	return trimmed
}

func (s *Session) SetStatus(status string) {
	if status == "" {
		status = StatusOK
	}
	s.status = status
}

func (s *Session) State() State { return s.state }

func (s *Session) Route() []orb.Point { return s.buffer.Route() }

// duration is moving time: wall clock since start minus paused intervals.
func (s *Session) duration() time.Duration {
	end := s.endTime
	if end.IsZero() {
		end = s.now()
	}
	d := end.Sub(s.startTime) - s.pausedTotal
	if s.state == StatePaused {
		d -= end.Sub(s.pausedAt)
	}
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) Snapshot() Snapshot {
	m := s.metrics
	duration := int64(s.duration().Seconds())
	return Snapshot{
		SessionID:       s.ID,
		WorkoutType:     s.WorkoutType,
		State:           s.state,
		IsTracking:      s.state == StateTracking,
		Status:          s.status,
		StartTime:       s.startTime,
		DistanceKm:      m.DistanceKm(),
		DurationSeconds: duration,
		CurrentSpeed:    m.CurrentSpeed(),
		MaxSpeed:        m.MaxSpeed(),
		AverageSpeed:    m.AverageSpeed(),
		CurrentPace:     m.CurrentPace(),
		BestPace:        m.BestPace(),
		PointCount:      s.buffer.Len(),
		SampleCount:     s.buffer.SpeedLen(),
		Accepted:        s.accepted,
		Rejected:        s.rejected,
		PaceText:        FormatPace(m.CurrentPace()),
		BestPaceText:    FormatPace(m.BestPace()),
		SpeedText:       FormatSpeed(m.CurrentSpeed()),
		DistanceText:    FormatDistance(m.DistanceKm()),
		DurationText:    FormatDuration(duration),
		AcceptanceText:  FormatRatio(s.accepted, s.accepted+s.rejected.Total()),
	}
}

// synthesizeRoute spreads the session's wall-clock span evenly over the
// retained points; real per-point timestamps are not kept. Each point
// carries the speed sample measured at it, if one was retained.
func synthesizeRoute(route []orb.Point, speeds map[int]float64, start, end time.Time) []RoutePoint {
	step := end.Sub(start) / time.Duration(len(route))
	points := make([]RoutePoint, len(route))
	for i, p := range route {
		points[i] = RoutePoint{
			Latitude:  p.Lat(),
			Longitude: p.Lon(),
			Timestamp: start.Add(time.Duration(i) * step),
			Course:    -1,
		}
		if v, ok := speeds[i]; ok {
			points[i].Speed = &v
		}
	}
	return points
}

// idleSnapshot describes a pipeline with no session yet.
func idleSnapshot() Snapshot {
	return Snapshot{
		State:          StateIdle,
		Status:         StatusOK,
		PaceText:       FormatPace(0),
		BestPaceText:   FormatPace(0),
		SpeedText:      FormatSpeed(0),
		DistanceText:   FormatDistance(0),
		DurationText:   FormatDuration(0),
		AcceptanceText: FormatRatio(0, 0),
	}
}
