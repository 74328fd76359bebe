// Package filter decides whether a freeleech item falls inside the
// configured seeder, leecher and size ranges.
package filter

import (
	"math"

	"github.com/autobrr/freeleech/pkg/tracker"
)

// Unbounded disables a min or max bound.
const Unbounded int64 = -1

const bytesPerMiB int64 = 1024 * 1024

type Config struct {
	MinSeeders  int64
	MaxSeeders  int64
	MinLeechers int64
	MaxLeechers int64
	// sizes are in bytes
	MinSize int64
	MaxSize int64
}

// NewConfig returns a config with every bound disabled.
func NewConfig() Config {
	return Config{
		MinSeeders:  Unbounded,
		MaxSeeders:  Unbounded,
		MinLeechers: Unbounded,
		MaxLeechers: Unbounded,
		MinSize:     Unbounded,
		MaxSize:     Unbounded,
	}
}

// MiBToBytes converts a size bound given in MiB to whole bytes, keeping
// Unbounded as is.
func MiBToBytes(mib float64) int64 {
	if mib == float64(Unbounded) {
		return Unbounded
	}
	return int64(math.Round(mib * float64(bytesPerMiB)))
}

// Matches reports whether every attribute of item lies within its range.
// A bound below Unbounded never matches, as does a range with min > max.
// An attribute the tracker did not report as a number (tracker.Unknown)
// only matches a fully unbounded range.
func Matches(item tracker.Item, cfg Config) bool {
	return inRange(item.Seeders, cfg.MinSeeders, cfg.MaxSeeders) &&
		inRange(item.Leechers, cfg.MinLeechers, cfg.MaxLeechers) &&
		inRange(item.Size, cfg.MinSize, cfg.MaxSize)
}

func inRange(v, min, max int64) bool {
	if min < Unbounded || max < Unbounded {
		return false
	}
	if v < 0 {
		return min == Unbounded && max == Unbounded
	}
	return (min == Unbounded || v >= min) && (max == Unbounded || v <= max)
}
