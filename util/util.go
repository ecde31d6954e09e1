// Package util contains misc internal utilities.
package util

import (
	"math"
	"strings"
	"time"
)

// AllElementsNumbers returns true if every character of s is a digit or a decimal point
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, "0123456789.") == ""
}

// ParseDuration is time.ParseDuration, except a bare number is taken as seconds.
// e.g. "2" => 2s, "250ms" => 250ms
func ParseDuration(s string) (time.Duration, error) {
	if AllElementsNumbers(s) {
		s += "s"
	}
	return time.ParseDuration(s)
}

// Clamp limits input to the range [low, high]
func Clamp(input, low, high float64) float64 {
	return math.Max(low, math.Min(input, high))
}

// SecsToDuration converts a number of seconds to a duration, rounded to the nearest ns
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}
