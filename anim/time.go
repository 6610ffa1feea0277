// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package anim provides the animation time units used throughout the
// data pipeline, and the [Interval] type used to track over which span
// of animation time a computed result remains valid.
package anim

import "math"

// Time is a point in animation time, measured in discrete ticks of
// 1/4800 of a second. Times are integers to avoid rounding errors when
// intervals are intersected and compared.
type Time int64

// TicksPerSecond is the number of animation time ticks per second.
const TicksPerSecond = 4800

// TicksPerFrame is the number of ticks per frame at the default
// playback rate of 10 frames per second.
const TicksPerFrame = TicksPerSecond / 10

const (
	// TimeNegInfinity is the smallest possible time value.
	TimeNegInfinity Time = math.MinInt64

	// TimePosInfinity is the largest possible time value.
	TimePosInfinity Time = math.MaxInt64
)

// FromSeconds converts a time in seconds to animation ticks.
func FromSeconds(s float64) Time {
	return Time(math.Ceil(s*TicksPerSecond + 0.5))
}

// FrameTime returns the animation time at which the given source frame
// is shown, at the default playback rate.
func FrameTime(frame int) Time {
	return Time(frame) * TicksPerFrame
}

// Frame returns the source frame shown at the given animation time,
// at the default playback rate.
func (t Time) Frame() int {
	if t >= 0 {
		return int(t / TicksPerFrame)
	}
	return int((t - TicksPerFrame + 1) / TicksPerFrame)
}

// Seconds converts an animation time to seconds.
func (t Time) Seconds() float64 {
	return float64(t) / TicksPerSecond
}

// Interval is a closed interval in animation time. The zero value is
// not meaningful; use [Empty], [Infinite], [Instant] or [NewInterval].
type Interval struct {
	Start Time
	End   Time
}

// Empty returns the empty time interval.
func Empty() Interval {
	return Interval{TimeNegInfinity, TimeNegInfinity}
}

// Infinite returns the interval covering all of time.
func Infinite() Interval {
	return Interval{TimeNegInfinity, TimePosInfinity}
}

// Instant returns the interval containing only the given instant.
func Instant(t Time) Interval {
	return Interval{t, t}
}

// NewInterval returns the interval from start to end, inclusive.
func NewInterval(start, end Time) Interval {
	return Interval{start, end}
}

// IsEmpty reports whether the interval contains no time at all.
// An interval is empty if its start lies behind its end, or if its
// end is negative infinity.
func (iv Interval) IsEmpty() bool {
	return iv.End == TimeNegInfinity || iv.Start > iv.End
}

// IsInfinite reports whether the interval covers all of time.
func (iv Interval) IsInfinite() bool {
	return iv.Start == TimeNegInfinity && iv.End == TimePosInfinity
}

// IsInstant reports whether the interval contains exactly one instant.
func (iv Interval) IsInstant() bool {
	return iv.Start == iv.End && !iv.IsEmpty()
}

// Duration returns the difference between end and start time.
func (iv Interval) Duration() Time {
	return iv.End - iv.Start
}

// Contains reports whether the given time lies within the interval.
func (iv Interval) Contains(t Time) bool {
	return iv.Start <= t && t <= iv.End
}

// Intersect returns the intersection of this interval with another.
// The result is never wider than either input; disjoint intervals
// intersect to the empty interval.
func (iv Interval) Intersect(other Interval) Interval {
	if iv.IsEmpty() || other.IsEmpty() || iv.End < other.Start || other.End < iv.Start {
		return Empty()
	}
	r := iv
	if other.Start > r.Start {
		r.Start = other.Start
	}
	if other.End < r.End {
		r.End = other.End
	}
	return r
}

// Overlaps reports whether this interval and other share at least one
// common instant.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Intersect(other).IsEmpty()
}
