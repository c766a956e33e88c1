package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestOffsetNorth(t *testing.T) {
	origin := Point(0, 0)
	moved := OffsetNorth(origin, 5)
	if d := DistanceM(origin, moved); math.Abs(d-5) > 1e-6 {
		t.Fatalf("expected 5m, got %v", d)
	}
	if moved.Lon() != 0 {
		t.Fatalf("longitude changed")
	}
}

func TestValidCoordinate(t *testing.T) {
	cases := []struct {
		lat, lng float64
		ok       bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90.0001, 0, false},
		{0, 180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, c := range cases {
		if ValidCoordinate(c.lat, c.lng) != c.ok {
			t.Fatalf("ValidCoordinate(%v, %v) != %v", c.lat, c.lng, c.ok)
		}
	}
}

func TestGCJ02OutsideChinaIsIdentity(t *testing.T) {
	p := Point(48.8566, 2.3522)
	if got := (GCJ02{}).Transform(p); got != p {
		t.Fatalf("expected identity, got %v", got)
	}
}

func TestGCJ02ShiftsBeijing(t *testing.T) {
	p := Point(39.915, 116.404)
	got := (GCJ02{}).Transform(p)
	shift := DistanceM(p, got)
	if shift < 100 || shift > 1000 {
		t.Fatalf("unexpected shift %v m", shift)
	}
	if math.Abs(got.Lat()-39.9164) > 0.001 || math.Abs(got.Lon()-116.4102) > 0.001 {
		t.Fatalf("unexpected gcj02 point %v", got)
	}
	if again := (GCJ02{}).Transform(p); again != got {
		t.Fatalf("transform not deterministic")
	}
}

func TestNewTransformer(t *testing.T) {
	tr, err := NewTransformer("")
	if err != nil || tr.Name() != DatumGCJ02 {
		t.Fatalf("expected gcj02 default")
	}
	tr, err = NewTransformer(DatumWGS84)
	if err != nil || tr.Name() != DatumWGS84 {
		t.Fatalf("expected wgs84")
	}
	if _, err := NewTransformer("bogus"); err == nil {
		t.Fatalf("expected error")
	}
}
