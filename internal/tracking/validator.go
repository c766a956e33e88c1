package tracking

import (
	"errors"
	"time"

	"backend-qingheplan/internal/shared/geo"
)

var (
	ErrInvalidCoordinate = errors.New("fix coordinate invalid")
	ErrAccuracy          = errors.New("fix accuracy out of range")
	ErrStale             = errors.New("fix too old")
	ErrTooSoon           = errors.New("fix too close in time to last accepted fix")
	ErrJump              = errors.New("fix implies impossible speed")
	ErrJitter            = errors.New("fix displacement below debounce distance")
)

// Validator decides whether a raw fix is plausible given the last accepted
// one. It keeps no state of its own.
type Validator struct {
	cfg Config
	now func() time.Time
}

func NewValidator(cfg Config, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{cfg: cfg, now: now}
}

// Validate returns nil when fix is accepted, otherwise the first rule it
// breaks.
func (v *Validator) Validate(fix RawFix, last *RawFix) error {
	if !geo.ValidCoordinate(fix.Latitude, fix.Longitude) {
		return ErrInvalidCoordinate
	}
	if fix.HorizontalAccuracy > v.cfg.MaxAccuracyM || !(fix.HorizontalAccuracy > 0) {
		return ErrAccuracy
	}

	age := v.now().Sub(fix.Timestamp)
	if age < 0 {
		age = -age
	}
	if age > v.cfg.MaxFixAge {
		return ErrStale
	}

	if last == nil {
		return nil
	}

	dt := fix.Timestamp.Sub(last.Timestamp)
	if dt <= v.cfg.MinFixInterval {
		return ErrTooSoon
	}
	distance := geo.DistanceM(last.Point(), fix.Point())
	if distance/dt.Seconds() > v.cfg.MaxImpliedSpeed {
		return ErrJump
	}
	if distance < v.cfg.MinDisplacementM {
		return ErrJitter
	}
	return nil
}
