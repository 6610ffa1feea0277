// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cell_test

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"github.com/atomvis/atomvis/cell"
)

func TestWrapVector(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, true)
	v := c.WrapVector(math32.Vec3(9, 0, 0))
	assert.InDelta(t, -1, v.X, 1e-5)
	v = c.WrapVector(math32.Vec3(4, -6, 12))
	assert.InDelta(t, 4, v.X, 1e-5)
	assert.InDelta(t, 4, v.Y, 1e-5)
	assert.InDelta(t, 2, v.Z, 1e-5)
}

func TestWrapVectorNonPeriodic(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, false)
	v := c.WrapVector(math32.Vec3(9, 0, 0))
	assert.InDelta(t, 9, v.X, 1e-5)
}

func TestWrapPoint(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, true)
	c.Origin = math32.Vec3(-5, -5, -5)
	p := c.WrapPoint(math32.Vec3(6, 0, -7))
	assert.InDelta(t, -4, p.X, 1e-5)
	assert.InDelta(t, 0, p.Y, 1e-5)
	assert.InDelta(t, 3, p.Z, 1e-5)
}

func TestIsWrappedVector(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, true)
	assert.False(t, c.IsWrappedVector(math32.Vec3(4, 0, 0)))
	assert.True(t, c.IsWrappedVector(math32.Vec3(6, 0, 0)))
	assert.True(t, c.IsWrappedVector(math32.Vec3(0, -5.5, 0)))
}

func TestVolume(t *testing.T) {
	c := cell.Orthogonal(2, 3, 4, true)
	assert.InDelta(t, 24, c.Volume(), 1e-5)
}
