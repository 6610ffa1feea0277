// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package delaunay computes Delaunay tessellations of particle
// positions in periodic simulation cells and constructs closed
// manifold surfaces separating spatial regions of the tessellation.
package delaunay

import (
	"context"
	"errors"
	"math"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
)

// VertexRec is one tessellation vertex. Periodic ghost images keep the
// input particle index of their primary image.
type VertexRec struct {
	Pos   math32.Vector3
	Index int // input particle index, -1 for helper vertices
	Ghost bool
}

// Tet is one tetrahedral cell of the tessellation.
type Tet struct {

	// V are the four vertex indices, in positive orientation.
	V [4]int32

	// N[f] is the cell adjacent across facet f (the facet opposite
	// vertex f), or -1 at the tessellation boundary.
	N [4]int32

	// MirrorF[f] is the local facet index of this cell within N[f].
	MirrorF [4]int8

	// Ghost marks cells whose centroid lies outside the primary
	// periodic image.
	Ghost bool

	// Infinite marks cells touching the enclosing helper tetrahedron.
	Infinite bool

	// Region is the spatial region id assigned by classification.
	Region int32

	// Index numbers interior non-ghost cells consecutively; -1 for
	// all other cells.
	Index int32

	cx, cy, cz float64
	r2         float64
}

// Tessellation is a Delaunay tessellation of particle positions,
// extended by periodic ghost images so every interior cell has valid
// neighbors across the cell boundaries.
type Tessellation struct {
	Cell  cell.Cell
	Verts []VertexRec
	Tets  []Tet

	// PrimaryVertexCount is the number of input particles; vertices
	// beyond it are ghost images or helper vertices.
	PrimaryVertexCount int
}

// cellFacetVertices[f][v] gives the vertex indices of facet f of a
// tetrahedron such that the facet normal points away from the cell.
var cellFacetVertices = [4][3]int{
	{1, 2, 3},
	{0, 3, 2},
	{0, 1, 3},
	{0, 2, 1},
}

// CellFacetVertexIndex returns the local vertex index of corner v of
// facet f.
func CellFacetVertexIndex(f, v int) int {
	return cellFacetVertices[f][v]
}

// ErrInsertFailed is reported when the incremental construction cannot
// place a point, which happens for degenerate inputs.
var ErrInsertFailed = errors.New("delaunay: point insertion failed")

// Tessellate builds the Delaunay tessellation of the given positions.
// For periodic cell directions, ghost images of the particles within
// ghostLayer of the cell boundary are added so that the tessellation
// is locally complete everywhere inside the primary cell.
func Tessellate(ctx context.Context, simCell cell.Cell, positions []math32.Vector3, ghostLayer float32) (*Tessellation, error) {
	t := &Tessellation{Cell: simCell, PrimaryVertexCount: len(positions)}

	for i, p := range positions {
		t.Verts = append(t.Verts, VertexRec{Pos: simCell.WrapPoint(p), Index: i})
	}
	t.addGhostImages(ghostLayer)

	if err := t.triangulate(ctx); err != nil {
		return nil, err
	}
	t.linkNeighbors()
	t.classifyCells()
	return t, nil
}

// addGhostImages appends periodic images of all primary vertices that
// fall within the ghost layer around the primary cell.
func (t *Tessellation) addGhostImages(ghostLayer float32) {
	var margin [3]float64
	anyPeriodic := false
	for dim := 0; dim < 3; dim++ {
		if t.Cell.Periodic[dim] {
			margin[dim] = float64(ghostLayer) / float64(t.Cell.Axes[dim].Length())
			anyPeriodic = true
		}
	}
	if !anyPeriodic {
		return
	}
	shift := func(dim int) []int {
		if t.Cell.Periodic[dim] {
			return []int{-1, 0, 1}
		}
		return []int{0}
	}
	n := t.PrimaryVertexCount
	for i := 0; i < n; i++ {
		rx, ry, rz := t.Cell.ReducedVector(t.Verts[i].Pos.Sub(t.Cell.Origin))
		for _, sx := range shift(0) {
			for _, sy := range shift(1) {
				for _, sz := range shift(2) {
					if sx == 0 && sy == 0 && sz == 0 {
						continue
					}
					gx := rx + float64(sx)
					gy := ry + float64(sy)
					gz := rz + float64(sz)
					if gx < -margin[0] || gx >= 1+margin[0] ||
						gy < -margin[1] || gy >= 1+margin[1] ||
						gz < -margin[2] || gz >= 1+margin[2] {
						continue
					}
					pos := t.Cell.AbsoluteVector(gx, gy, gz).Add(t.Cell.Origin)
					t.Verts = append(t.Verts, VertexRec{Pos: pos, Index: i, Ghost: true})
				}
			}
		}
	}
}

// triangulate runs incremental Bowyer-Watson insertion starting from
// an enclosing helper tetrahedron.
func (t *Tessellation) triangulate(ctx context.Context) error {
	numPoints := len(t.Verts)
	if numPoints < 4 {
		return errors.New("delaunay: too few input points")
	}

	var bb math32.Box3
	bb.SetEmpty()
	for _, v := range t.Verts {
		bb.ExpandByPoint(v.Pos)
	}
	center := bb.Min.Add(bb.Max).MulScalar(0.5)
	size := bb.Max.Sub(bb.Min).Length() + 1
	big := size * 100

	superBase := int32(len(t.Verts))
	t.Verts = append(t.Verts,
		VertexRec{Pos: center.Add(math32.Vec3(-big, -big, -big)), Index: -1},
		VertexRec{Pos: center.Add(math32.Vec3(big, -big, -big)), Index: -1},
		VertexRec{Pos: center.Add(math32.Vec3(0, big, -big)), Index: -1},
		VertexRec{Pos: center.Add(math32.Vec3(0, 0, big)), Index: -1},
	)

	type workTet struct {
		v    [4]int32
		cx   float64
		cy   float64
		cz   float64
		r2   float64
		dead bool
	}
	var tets []workTet

	makeTet := func(a, b, c, d int32) (workTet, bool) {
		if t.orient3d(a, b, c, d) < 0 {
			c, d = d, c
		}
		w := workTet{v: [4]int32{a, b, c, d}}
		ok := t.circumsphere(w.v, &w.cx, &w.cy, &w.cz, &w.r2)
		return w, ok
	}

	root, ok := makeTet(superBase, superBase+1, superBase+2, superBase+3)
	if !ok {
		return ErrInsertFailed
	}
	tets = append(tets, root)

	type facet struct{ a, b, c int32 }
	sortedFacet := func(a, b, c int32) facet {
		if a > b {
			a, b = b, a
		}
		if b > c {
			b, c = c, b
		}
		if a > b {
			a, b = b, a
		}
		return facet{a, b, c}
	}

	boundary := make(map[facet][3]int32)
	for pi := 0; pi < numPoints; pi++ {
		if pi%64 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		px := float64(t.Verts[pi].Pos.X)
		py := float64(t.Verts[pi].Pos.Y)
		pz := float64(t.Verts[pi].Pos.Z)

		// Facets of the cavity appear once among the conflicting
		// cells; shared inner facets cancel out pairwise.
		clear(boundary)
		found := false
		for ti := range tets {
			w := &tets[ti]
			if w.dead {
				continue
			}
			dx := px - w.cx
			dy := py - w.cy
			dz := pz - w.cz
			if dx*dx+dy*dy+dz*dz >= w.r2 {
				continue
			}
			found = true
			w.dead = true
			for f := 0; f < 4; f++ {
				a := w.v[cellFacetVertices[f][0]]
				b := w.v[cellFacetVertices[f][1]]
				c := w.v[cellFacetVertices[f][2]]
				key := sortedFacet(a, b, c)
				if _, dup := boundary[key]; dup {
					delete(boundary, key)
				} else {
					boundary[key] = [3]int32{a, b, c}
				}
			}
		}
		if !found {
			return ErrInsertFailed
		}
		for _, fv := range boundary {
			w, ok := makeTet(fv[0], fv[1], fv[2], int32(pi))
			if !ok {
				return ErrInsertFailed
			}
			tets = append(tets, w)
		}
	}

	for _, w := range tets {
		if w.dead {
			continue
		}
		tet := Tet{
			V:     w.v,
			N:     [4]int32{-1, -1, -1, -1},
			Index: -1,
			cx:    w.cx, cy: w.cy, cz: w.cz, r2: w.r2,
		}
		for _, vi := range w.v {
			if vi >= superBase {
				tet.Infinite = true
			}
		}
		t.Tets = append(t.Tets, tet)
	}
	return nil
}

// orient3d returns a positive value if vertex d lies on the positive
// side of the plane through a, b, c.
func (t *Tessellation) orient3d(a, b, c, d int32) float64 {
	pa, pb, pc, pd := t.Verts[a].Pos, t.Verts[b].Pos, t.Verts[c].Pos, t.Verts[d].Pos
	ax := float64(pb.X - pa.X)
	ay := float64(pb.Y - pa.Y)
	az := float64(pb.Z - pa.Z)
	bx := float64(pc.X - pa.X)
	by := float64(pc.Y - pa.Y)
	bz := float64(pc.Z - pa.Z)
	cx := float64(pd.X - pa.X)
	cy := float64(pd.Y - pa.Y)
	cz := float64(pd.Z - pa.Z)
	return ax*(by*cz-bz*cy) - ay*(bx*cz-bz*cx) + az*(bx*cy-by*cx)
}

// circumsphere computes the circumcenter and squared circumradius of
// the tetrahedron, reporting failure for degenerate (flat) cells.
func (t *Tessellation) circumsphere(v [4]int32, cx, cy, cz, r2 *float64) bool {
	p0 := t.Verts[v[0]].Pos
	var a [3][3]float64
	var rhs [3]float64
	for i := 0; i < 3; i++ {
		pi := t.Verts[v[i+1]].Pos
		a[i][0] = float64(pi.X - p0.X)
		a[i][1] = float64(pi.Y - p0.Y)
		a[i][2] = float64(pi.Z - p0.Z)
		rhs[i] = (a[i][0]*a[i][0] + a[i][1]*a[i][1] + a[i][2]*a[i][2]) / 2
	}
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if math.Abs(det) < 1e-300 {
		return false
	}
	inv := 1 / det
	ux := (rhs[0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(rhs[1]*a[2][2]-a[1][2]*rhs[2]) +
		a[0][2]*(rhs[1]*a[2][1]-a[1][1]*rhs[2])) * inv
	uy := (a[0][0]*(rhs[1]*a[2][2]-a[1][2]*rhs[2]) -
		rhs[0]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*rhs[2]-rhs[1]*a[2][0])) * inv
	uz := (a[0][0]*(a[1][1]*rhs[2]-rhs[1]*a[2][1]) -
		a[0][1]*(a[1][0]*rhs[2]-rhs[1]*a[2][0]) +
		rhs[0]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])) * inv
	*cx = float64(p0.X) + ux
	*cy = float64(p0.Y) + uy
	*cz = float64(p0.Z) + uz
	*r2 = ux*ux + uy*uy + uz*uz
	return true
}

// linkNeighbors connects adjacent cells across shared facets and
// records the mirror facet indices.
func (t *Tessellation) linkNeighbors() {
	type facet struct{ a, b, c int32 }
	type ref struct {
		cell  int32
		facet int8
	}
	sortedFacet := func(a, b, c int32) facet {
		if a > b {
			a, b = b, a
		}
		if b > c {
			b, c = c, b
		}
		if a > b {
			a, b = b, a
		}
		return facet{a, b, c}
	}
	seen := make(map[facet]ref, len(t.Tets)*2)
	for ci := range t.Tets {
		tet := &t.Tets[ci]
		for f := 0; f < 4; f++ {
			key := sortedFacet(
				tet.V[cellFacetVertices[f][0]],
				tet.V[cellFacetVertices[f][1]],
				tet.V[cellFacetVertices[f][2]])
			if other, ok := seen[key]; ok {
				tet.N[f] = other.cell
				tet.MirrorF[f] = other.facet
				o := &t.Tets[other.cell]
				o.N[other.facet] = int32(ci)
				o.MirrorF[other.facet] = int8(f)
				delete(seen, key)
			} else {
				seen[key] = ref{int32(ci), int8(f)}
			}
		}
	}
}

// classifyCells marks ghost cells, whose centroid lies outside the
// primary periodic image of the simulation cell.
func (t *Tessellation) classifyCells() {
	for ci := range t.Tets {
		tet := &t.Tets[ci]
		if tet.Infinite {
			tet.Ghost = true
			continue
		}
		var cx, cy, cz float32
		anyGhostVert := false
		for _, vi := range tet.V {
			p := t.Verts[vi].Pos
			cx += p.X
			cy += p.Y
			cz += p.Z
			if t.Verts[vi].Ghost {
				anyGhostVert = true
			}
		}
		if !anyGhostVert {
			continue
		}
		centroid := math32.Vec3(cx/4, cy/4, cz/4)
		rx, ry, rz := t.Cell.ReducedVector(centroid.Sub(t.Cell.Origin))
		if (t.Cell.Periodic[0] && (rx < 0 || rx >= 1)) ||
			(t.Cell.Periodic[1] && (ry < 0 || ry >= 1)) ||
			(t.Cell.Periodic[2] && (rz < 0 || rz >= 1)) {
			tet.Ghost = true
		}
	}
}

// MirrorFacet returns the adjacent cell across facet f of the given
// cell along with the facet's index within that cell.
func (t *Tessellation) MirrorFacet(cellIdx int32, f int) (int32, int) {
	tet := &t.Tets[cellIdx]
	return tet.N[f], int(tet.MirrorF[f])
}

// AlphaTest reports whether the cell's circumradius is below the probe
// sphere radius alpha, i.e. whether the cell counts as solid.
func (t *Tessellation) AlphaTest(cellIdx int32, alpha float64) bool {
	return t.Tets[cellIdx].r2 < alpha*alpha
}

// SolidVolume sums the volume of all non-ghost cells assigned to a
// region other than [ExteriorRegion] by a prior manifold construction.
func (t *Tessellation) SolidVolume() float64 {
	var vol float64
	for ci := range t.Tets {
		tet := &t.Tets[ci]
		if tet.Ghost || tet.Region == ExteriorRegion {
			continue
		}
		a := t.Verts[tet.V[1]].Pos.Sub(t.Verts[tet.V[0]].Pos)
		b := t.Verts[tet.V[2]].Pos.Sub(t.Verts[tet.V[0]].Pos)
		c := t.Verts[tet.V[3]].Pos.Sub(t.Verts[tet.V[0]].Pos)
		vol += math.Abs(float64(a.Cross(b).Dot(c))) / 6
	}
	return vol
}

// CellVertex returns the tessellation vertex index of corner i of the
// cell.
func (t *Tessellation) CellVertex(cellIdx int32, i int) int32 {
	return t.Tets[cellIdx].V[i]
}

// VertexPos returns the position of a tessellation vertex.
func (t *Tessellation) VertexPos(v int32) math32.Vector3 {
	return t.Verts[v].Pos
}

// VertexParticle returns the input particle index of a tessellation
// vertex, with ghost images resolving to their primary particle.
func (t *Tessellation) VertexParticle(v int32) int {
	return t.Verts[v].Index
}
