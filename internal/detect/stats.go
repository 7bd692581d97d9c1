package detect

import (
	"math"
	"sort"
	"time"
)

// Numeric-series helpers shared by the detectors. All of them tolerate
// empty input and return zero values rather than dividing by zero.

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// coefficientOfVariation returns stddev/mean, or 0 when the mean is zero.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values) / m
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// spanHours is the duration between the earliest and latest timestamp,
// expressed in hours. ok is false with fewer than two timestamps.
func spanHours(timestamps []time.Time) (hours float64, ok bool) {
	if len(timestamps) < 2 {
		return 0, false
	}
	min, max := timestamps[0], timestamps[0]
	for _, t := range timestamps[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return max.Sub(min).Hours(), true
}

// interDeltas returns the gaps between consecutive timestamps in hours.
// The input must already be sorted ascending.
func interDeltas(sorted []time.Time) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		deltas = append(deltas, sorted[i].Sub(sorted[i-1]).Hours())
	}
	return deltas
}

// hourFraction reports the fraction of timestamps whose hour-of-day, in the
// given zone, satisfies pred.
func hourFraction(timestamps []time.Time, loc *time.Location, pred func(hour int) bool) float64 {
	if len(timestamps) == 0 {
		return 0
	}
	matched := 0
	for _, t := range timestamps {
		if pred(t.In(loc).Hour()) {
			matched++
		}
	}
	return float64(matched) / float64(len(timestamps))
}

// regularIntervalHours are the cadences checked by the recurring-schedule
// heuristics: daily, weekly, biweekly, monthly.
var regularIntervalHours = []float64{24, 168, 336, 720}

// hasRegularInterval reports whether more than half of the deltas fall
// within ±tolerance of any single cadence.
func hasRegularInterval(deltas []float64, tolerance float64) bool {
	if len(deltas) == 0 {
		return false
	}
	for _, interval := range regularIntervalHours {
		lo := interval * (1 - tolerance)
		hi := interval * (1 + tolerance)
		matched := 0
		for _, d := range deltas {
			if d >= lo && d <= hi {
				matched++
			}
		}
		if float64(matched) > 0.5*float64(len(deltas)) {
			return true
		}
	}
	return false
}

// hasNonZeroCents reports whether the amount has a non-zero fractional cent
// component, tolerating float representation error.
func hasNonZeroCents(amount float64) bool {
	cents := math.Round(amount * 100)
	return math.Abs(cents-math.Round(cents/100)*100) > 1e-9
}

func sortedTimes(timestamps []time.Time) []time.Time {
	out := make([]time.Time, len(timestamps))
	copy(out, timestamps)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
