package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	DatumWGS84 = "wgs84"
	DatumGCJ02 = "gcj02"
)

// Transformer converts device (WGS-84) coordinates into the datum used for
// display and accumulation.
type Transformer interface {
	Transform(p orb.Point) orb.Point
	Name() string
}

// NewTransformer returns the transformer registered for datum.
func NewTransformer(datum string) (Transformer, error) {
	switch datum {
	case "", DatumGCJ02:
		return GCJ02{}, nil
	case DatumWGS84:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown datum %q", datum)
	}
}

type Identity struct{}

func (Identity) Transform(p orb.Point) orb.Point { return p }
func (Identity) Name() string                    { return DatumWGS84 }

// GCJ02 applies the mainland China map offset. Points outside the China
// bounding box pass through unchanged.
type GCJ02 struct{}

const (
	krasovskyA  = 6378245.0
	krasovskyEE = 0.00669342162296594323
)

func (GCJ02) Name() string { return DatumGCJ02 }

func (GCJ02) Transform(p orb.Point) orb.Point {
	lat, lng := p.Lat(), p.Lon()
	if outOfChina(lat, lng) {
		return p
	}

	dLat := offsetLat(lng-105.0, lat-35.0)
	dLng := offsetLng(lng-105.0, lat-35.0)

	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - krasovskyEE*magic*magic
	sqrtMagic := math.Sqrt(magic)

	dLat = (dLat * 180.0) / ((krasovskyA * (1 - krasovskyEE)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (krasovskyA / sqrtMagic * math.Cos(radLat) * math.Pi)
	return orb.Point{lng + dLng, lat + dLat}
}

func outOfChina(lat, lng float64) bool {
	return lng < 72.004 || lng > 137.8347 || lat < 0.8293 || lat > 55.8271
}

func offsetLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func offsetLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
