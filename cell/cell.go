// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cell provides the simulation cell geometry: three edge
// vectors spanning a parallelepiped, an origin, and periodic boundary
// condition flags, with the minimum-image wrapping operations the
// analysis algorithms depend on.
package cell

import (
	"math"

	"cogentcore.org/core/math32"
)

// Cell is a three-dimensional simulation cell. The three edge vectors
// need not be orthogonal.
type Cell struct {
	// Axes are the three cell edge vectors.
	Axes [3]math32.Vector3

	// Origin is the position of the cell corner.
	Origin math32.Vector3

	// Periodic indicates for each cell axis whether periodic boundary
	// conditions apply along it.
	Periodic [3]bool
}

// Orthogonal returns an axis-aligned cell with the given edge lengths
// and the same periodicity along all three axes.
func Orthogonal(lx, ly, lz float32, periodic bool) Cell {
	return Cell{
		Axes: [3]math32.Vector3{
			math32.Vec3(lx, 0, 0),
			math32.Vec3(0, ly, 0),
			math32.Vec3(0, 0, lz),
		},
		Periodic: [3]bool{periodic, periodic, periodic},
	}
}

// Volume returns the volume of the cell parallelepiped.
func (c *Cell) Volume() float32 {
	return math32.Abs(c.Axes[0].Dot(c.Axes[1].Cross(c.Axes[2])))
}

// IsPeriodic reports whether the cell is periodic along at least one axis.
func (c *Cell) IsPeriodic() bool {
	return c.Periodic[0] || c.Periodic[1] || c.Periodic[2]
}

// matrix returns the cell matrix with the edge vectors as columns.
func (c *Cell) matrix() [3][3]float64 {
	var m [3][3]float64
	for j, a := range c.Axes {
		m[0][j] = float64(a.X)
		m[1][j] = float64(a.Y)
		m[2][j] = float64(a.Z)
	}
	return m
}

// inverse returns the inverse of the cell matrix. Wrapping math is done
// in float64 so that reduced coordinates near the cell faces classify
// consistently.
func (c *Cell) inverse() [3][3]float64 {
	m := c.matrix()
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if det == 0 {
		return [3][3]float64{}
	}
	inv := 1 / det
	var r [3][3]float64
	r[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv
	r[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv
	r[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv
	r[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv
	r[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv
	return r
}

// ReducedVector transforms a Cartesian vector into reduced (fractional)
// cell coordinates.
func (c *Cell) ReducedVector(v math32.Vector3) (float64, float64, float64) {
	inv := c.inverse()
	x, y, z := float64(v.X), float64(v.Y), float64(v.Z)
	return inv[0][0]*x + inv[0][1]*y + inv[0][2]*z,
		inv[1][0]*x + inv[1][1]*y + inv[1][2]*z,
		inv[2][0]*x + inv[2][1]*y + inv[2][2]*z
}

// AbsoluteVector transforms reduced cell coordinates back into a
// Cartesian vector.
func (c *Cell) AbsoluteVector(rx, ry, rz float64) math32.Vector3 {
	var v math32.Vector3
	v = v.Add(c.Axes[0].MulScalar(float32(rx)))
	v = v.Add(c.Axes[1].MulScalar(float32(ry)))
	v = v.Add(c.Axes[2].MulScalar(float32(rz)))
	return v
}

// WrapVector applies the minimum image convention to a vector,
// wrapping each periodic component into the range [-1/2, 1/2) of
// reduced coordinates.
func (c *Cell) WrapVector(v math32.Vector3) math32.Vector3 {
	if !c.IsPeriodic() {
		return v
	}
	r := [3]float64{}
	r[0], r[1], r[2] = c.ReducedVector(v)
	for i := range r {
		if c.Periodic[i] {
			r[i] -= math.Floor(r[i] + 0.5)
		}
	}
	return c.AbsoluteVector(r[0], r[1], r[2])
}

// WrapPoint wraps a point back into the primary cell image along all
// periodic axes.
func (c *Cell) WrapPoint(p math32.Vector3) math32.Vector3 {
	if !c.IsPeriodic() {
		return p
	}
	r := [3]float64{}
	r[0], r[1], r[2] = c.ReducedVector(p.Sub(c.Origin))
	for i := range r {
		if c.Periodic[i] {
			r[i] -= math.Floor(r[i])
		}
	}
	return c.AbsoluteVector(r[0], r[1], r[2]).Add(c.Origin)
}

// IsWrappedVector reports whether the given vector spans more than half
// the cell along any periodic axis, i.e. whether applying the minimum
// image convention would change it.
func (c *Cell) IsWrappedVector(v math32.Vector3) bool {
	if !c.IsPeriodic() {
		return false
	}
	r := [3]float64{}
	r[0], r[1], r[2] = c.ReducedVector(v)
	for i := range r {
		if c.Periodic[i] && (r[i] < -0.5 || r[i] >= 0.5) {
			return true
		}
	}
	return false
}
