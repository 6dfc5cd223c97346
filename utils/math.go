package utils

import "time"

// Clamp limits v to [lo, hi]. NaN passes through.
func Clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// HzToPeriod converts a rate into the interval between ticks.
func HzToPeriod(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}
