package tracking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

// fill appends points from..to-1, each valued by its index.
func fill(b *Buffer, from, to int, withSpeed bool) {
	for i := from; i < to; i++ {
		v := float64(i)
		p := orb.Point{v, v}
		if withSpeed {
			b.Append(p, &v)
		} else {
			b.Append(p, nil)
		}
	}
}

func TestBufferPeriodicTrim(t *testing.T) {
	cfg := testConfig()
	cfg.RouteCap = 150
	cfg.SpeedCap = 50
	b := NewBuffer(cfg)

	fill(b, 0, 99, true)
	if b.PeriodicTrims() != 0 || b.Len() != 99 || b.SpeedLen() != 99 {
		t.Fatalf("no trim expected before the 100th point: trims=%d len=%d", b.PeriodicTrims(), b.Len())
	}

	fill(b, 99, 100, true)
	if b.PeriodicTrims() != 1 {
		t.Fatalf("expected trim at 100 points")
	}
	if b.Len() != 100 || b.SpeedLen() != 50 {
		t.Fatalf("after first trim: len=%d speeds=%d", b.Len(), b.SpeedLen())
	}

	fill(b, 100, 200, true)
	if b.PeriodicTrims() != 2 {
		t.Fatalf("expected trim at 200 points, got %d", b.PeriodicTrims())
	}
	if b.Len() != 150 || b.SpeedLen() != 50 {
		t.Fatalf("after second trim: len=%d speeds=%d", b.Len(), b.SpeedLen())
	}

	// the newest entries survive
	route := b.Route()
	if route[len(route)-1] != (orb.Point{199, 199}) {
		t.Fatalf("last point = %v", route[len(route)-1])
	}
	if speeds := b.Speeds(); speeds[len(speeds)-1] != 199 || speeds[0] != 150 {
		t.Fatalf("speeds window = %v..%v", speeds[0], speeds[len(speeds)-1])
	}
}

func TestBufferEmergencyTrim(t *testing.T) {
	cfg := testConfig()
	cfg.EmergencyRouteCap = 20
	cfg.EmergencySpeedCap = 5
	b := NewBuffer(cfg)
	fill(b, 0, 60, true)

	if !b.EmergencyTrim() {
		t.Fatalf("expected history dropped")
	}
	if b.Len() != 20 || b.SpeedLen() != 5 {
		t.Fatalf("len=%d speeds=%d", b.Len(), b.SpeedLen())
	}
	if diff := cmp.Diff([]float64{55, 56, 57, 58, 59}, b.Speeds()); diff != "" {
		t.Fatalf("speeds mismatch (-want +got):\n%s", diff)
	}

	if b.EmergencyTrim() {
		t.Fatalf("second trim has nothing to drop")
	}
	if b.EmergencyTrims() != 2 {
		t.Fatalf("trims = %d", b.EmergencyTrims())
	}
}

func TestBufferSpeedByPointAfterTrims(t *testing.T) {
	cfg := testConfig()
	cfg.RouteCap = 150
	cfg.SpeedCap = 50
	cfg.EmergencyRouteCap = 20
	cfg.EmergencySpeedCap = 40
	b := NewBuffer(cfg)

	// no sample on the first point, as with a real session
	b.Append(orb.Point{0, 0}, nil)
	fill(b, 1, 200, true)

	byPoint := b.SpeedByPoint()
	if len(byPoint) != 50 {
		t.Fatalf("samples = %d", len(byPoint))
	}
	route := b.Route()
	for idx, v := range byPoint {
		if route[idx][0] != v {
			t.Fatalf("sample %v attached to point %v", v, route[idx])
		}
	}
	if _, ok := byPoint[len(route)-1]; !ok {
		t.Fatalf("newest point lost its sample")
	}

	b.EmergencyTrim()
	route = b.Route()
	byPoint = b.SpeedByPoint()
	if len(byPoint) != 20 {
		t.Fatalf("samples on retained points = %d", len(byPoint))
	}
	for idx, v := range byPoint {
		if route[idx][0] != v {
			t.Fatalf("after emergency trim sample %v attached to point %v", v, route[idx])
		}
	}
}

func TestBufferRouteIsCopy(t *testing.T) {
	b := NewBuffer(testConfig())
	fill(b, 0, 3, false)

	route := b.Route()
	route[0] = orb.Point{-1, -1}
	if b.Route()[0] == route[0] {
		t.Fatalf("route must not alias internal storage")
	}
	if b.SpeedLen() != 0 {
		t.Fatalf("nil speeds must not be recorded")
	}

	v := 3.0
	b.Append(orb.Point{3, 3}, &v)
	speeds := b.Speeds()
	speeds[0] = -1
	if b.Speeds()[0] != 3 {
		t.Fatalf("speeds must not alias internal storage")
	}

	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected cleared buffer")
	}
}

func TestKeepLast(t *testing.T) {
	s := []int{1, 2, 3, 4}
	if diff := cmp.Diff([]int{3, 4}, keepLast(s, 2)); diff != "" {
		t.Fatalf("keepLast mismatch:\n%s", diff)
	}
	if got := keepLast(s, 10); len(got) != 4 {
		t.Fatalf("short slices are kept whole")
	}
	if got := keepLast(s, -1); len(got) != 4 {
		t.Fatalf("negative cap disables trimming")
	}
	if got := keepLast(s, 0); len(got) != 0 {
		t.Fatalf("zero cap empties")
	}
}
