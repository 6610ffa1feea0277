// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package anim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atomvis/atomvis/anim"
)

func TestIntervalEmpty(t *testing.T) {
	assert.True(t, anim.Empty().IsEmpty())
	assert.False(t, anim.Infinite().IsEmpty())
	assert.False(t, anim.Instant(10).IsEmpty())
	assert.True(t, anim.NewInterval(5, 4).IsEmpty())
	assert.False(t, anim.NewInterval(4, 5).IsEmpty())
}

func TestIntervalContains(t *testing.T) {
	iv := anim.NewInterval(10, 20)
	assert.True(t, iv.Contains(10))
	assert.True(t, iv.Contains(15))
	assert.True(t, iv.Contains(20))
	assert.False(t, iv.Contains(9))
	assert.False(t, iv.Contains(21))
	assert.True(t, anim.Infinite().Contains(anim.TimePosInfinity))
}

func TestIntervalIntersect(t *testing.T) {
	a := anim.NewInterval(0, 100)
	b := anim.NewInterval(50, 150)
	assert.Equal(t, anim.NewInterval(50, 100), a.Intersect(b))
	assert.Equal(t, anim.NewInterval(50, 100), b.Intersect(a))

	// Intersection never widens.
	assert.Equal(t, a, a.Intersect(anim.Infinite()))
	assert.Equal(t, anim.Instant(30), a.Intersect(anim.Instant(30)))

	// Disjoint intervals intersect to the empty interval.
	assert.True(t, a.Intersect(anim.NewInterval(200, 300)).IsEmpty())
	assert.True(t, a.Intersect(anim.Empty()).IsEmpty())
	assert.True(t, anim.Empty().Intersect(a).IsEmpty())
}

func TestIntervalOverlaps(t *testing.T) {
	a := anim.NewInterval(0, 10)
	assert.True(t, a.Overlaps(anim.NewInterval(10, 20)))
	assert.False(t, a.Overlaps(anim.NewInterval(11, 20)))
	assert.False(t, a.Overlaps(anim.Empty()))
}

func TestFrameMapping(t *testing.T) {
	assert.Equal(t, anim.Time(0), anim.FrameTime(0))
	assert.Equal(t, 3, anim.FrameTime(3).Frame())
	assert.Equal(t, 0, anim.Time(anim.TicksPerFrame-1).Frame())
	assert.Equal(t, -1, anim.Time(-1).Frame())
}
