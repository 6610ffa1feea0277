// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

import (
	"cogentcore.org/core/math32"
)

// ClassifyEpsilon is the distance below which a point counts as lying
// on a plane.
const ClassifyEpsilon = 1e-6

// Plane is an oriented plane in Hessian normal form: a point p lies on
// the plane when Dot(Normal, p) + Dist == 0.
type Plane struct {
	Normal math32.Vector3
	Dist   float32
}

// NewPlane returns the plane with the given normal vector and distance
// parameter.
func NewPlane(normal math32.Vector3, dist float32) Plane {
	return Plane{Normal: normal, Dist: dist}
}

// PlaneFromPointNormal returns the plane through point p with the
// given normal.
func PlaneFromPointNormal(p, normal math32.Vector3) Plane {
	return Plane{Normal: normal, Dist: -normal.Dot(p)}
}

// PointDistance returns the signed distance of p from the plane,
// scaled by the length of the normal vector.
func (pl Plane) PointDistance(p math32.Vector3) float32 {
	return pl.Normal.Dot(p) + pl.Dist
}

// ClassifyPoint returns +1, -1 or 0 depending on whether p lies on the
// positive side, the negative side, or within [ClassifyEpsilon] of the
// plane.
func (pl Plane) ClassifyPoint(p math32.Vector3) int {
	d := pl.PointDistance(p)
	if d > ClassifyEpsilon {
		return 1
	}
	if d < -ClassifyEpsilon {
		return -1
	}
	return 0
}
