package tracking

import "github.com/paulmach/orb"

// Buffer keeps the most recent route coordinates and speed samples under
// two independent caps.
type Buffer struct {
	cfg Config

	route  []orb.Point
	speeds []float64

	// speedSeq holds the sequence number of the point each sample was
	// measured at; routeBase is the sequence number of route[0].
	speedSeq  []int
	routeBase int

	periodicTrims  int
	emergencyTrims int
}

func NewBuffer(cfg Config) *Buffer {
	return &Buffer{cfg: cfg}
}

// Append records a coordinate and, when present, a speed sample. Every
// TrimEvery-th point runs the periodic trim whether or not it drops anything.
func (b *Buffer) Append(p orb.Point, speed *float64) {
	b.route = append(b.route, p)
	if speed != nil {
		b.speeds = append(b.speeds, *speed)
		b.speedSeq = append(b.speedSeq, b.routeBase+len(b.route)-1)
	}
	if b.cfg.TrimEvery > 0 && len(b.route)%b.cfg.TrimEvery == 0 {
		b.trim(b.cfg.RouteCap, b.cfg.SpeedCap)
		b.periodicTrims++
	}
}

// EmergencyTrim reduces history to the emergency caps. It reports whether
// anything was dropped.
func (b *Buffer) EmergencyTrim() bool {
	before := len(b.route) + len(b.speeds)
	b.trim(b.cfg.EmergencyRouteCap, b.cfg.EmergencySpeedCap)
	b.emergencyTrims++
	return len(b.route)+len(b.speeds) != before
}

func (b *Buffer) trim(routeCap, speedCap int) {
	before := len(b.route)
	b.route = keepLast(b.route, routeCap)
	b.routeBase += before - len(b.route)
	b.speeds = keepLast(b.speeds, speedCap)
	b.speedSeq = keepLast(b.speedSeq, speedCap)
}

// keepLast copies the newest n elements into a fresh slice so the dropped
// prefix can be collected.
func keepLast[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		return s
	}
	out := make([]T, n, n+n/4)
	copy(out, s[len(s)-n:])
	return out
}

func (b *Buffer) Route() []orb.Point {
	out := make([]orb.Point, len(b.route))
	copy(out, b.route)
	return out
}

func (b *Buffer) Speeds() []float64 {
	out := make([]float64, len(b.speeds))
	copy(out, b.speeds)
	return out
}

// SpeedByPoint maps each retained sample onto the index of the retained
// route point it was measured at. Samples whose point was trimmed away are
// left out.
func (b *Buffer) SpeedByPoint() map[int]float64 {
	out := make(map[int]float64, len(b.speeds))
	for i, seq := range b.speedSeq {
		if idx := seq - b.routeBase; idx >= 0 && idx < len(b.route) {
			out[idx] = b.speeds[i]
		}
	}
	return out
}

func (b *Buffer) Len() int            { return len(b.route) }
func (b *Buffer) SpeedLen() int       { return len(b.speeds) }
func (b *Buffer) PeriodicTrims() int  { return b.periodicTrims }
func (b *Buffer) EmergencyTrims() int { return b.emergencyTrims }

func (b *Buffer) Clear() {
	b.route = nil
	b.speeds = nil
	b.speedSeq = nil
	b.routeBase = 0
}
