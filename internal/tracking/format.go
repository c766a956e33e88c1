package tracking

import (
	"fmt"
	"math"
)

const paceUnset = `--'--"`

// maxDisplayPace is the slowest pace shown, in min/km.
const maxDisplayPace = 999.0

// FormatPace renders min/km as M'SS".
func FormatPace(pace float64) string {
	if !(pace > 0) || pace > maxDisplayPace {
		return paceUnset
	}
	minutes := int(pace)
	seconds := int(math.Round((pace - float64(minutes)) * 60))
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf(`%d'%02d"`, minutes, seconds)
}

// FormatSpeed renders m/s as km/h with one decimal.
func FormatSpeed(mps float64) string {
	if math.IsNaN(mps) || math.IsInf(mps, 0) || mps < 0 {
		mps = 0
	}
	return fmt.Sprintf("%.1f km/h", mps*3.6)
}

func FormatDistance(km float64) string {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		km = 0
	}
	return fmt.Sprintf("%.2f km", km)
}

// FormatDuration formats seconds as "H:MM:SS" or "M:SS"
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRatio renders part/whole as a whole percentage, "0%" when undefined.
func FormatRatio(part, whole int) string {
	if whole <= 0 || part < 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(part)*100/float64(whole))))
}

func (r Rejections) Total() int {
	return r.InvalidCoordinate + r.Accuracy + r.Stale + r.TooSoon + r.Jump + r.Jitter +
		r.Paused + r.Inactive
}
