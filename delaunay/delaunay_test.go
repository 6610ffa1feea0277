// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import (
	"context"
	"math/rand"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomvis/atomvis/cell"
	"github.com/atomvis/atomvis/surface"
)

func TestFacetVertexTable(t *testing.T) {
	for f := 0; f < 4; f++ {
		seen := map[int]bool{f: true}
		for v := 0; v < 3; v++ {
			lv := CellFacetVertexIndex(f, v)
			assert.NotEqual(t, f, lv, "facet f is opposite vertex f")
			assert.False(t, seen[lv])
			seen[lv] = true
		}
		assert.Len(t, seen, 4)
	}
}

func randomPositions(n int, l float32, seed int64) []math32.Vector3 {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]math32.Vector3, n)
	for i := range pts {
		pts[i] = math32.Vec3(rng.Float32()*l, rng.Float32()*l, rng.Float32()*l)
	}
	return pts
}

func TestTessellateNeighborConsistency(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, false)
	tess, err := Tessellate(context.Background(), c, randomPositions(60, 10, 1), 0)
	require.NoError(t, err)

	for ci := range tess.Tets {
		for f := 0; f < 4; f++ {
			n, mf := tess.MirrorFacet(int32(ci), f)
			if n < 0 {
				continue
			}
			back, backF := tess.MirrorFacet(n, mf)
			assert.Equal(t, int32(ci), back)
			assert.Equal(t, f, backF)
		}
	}
}

func TestTessellateDelaunayProperty(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, false)
	pts := randomPositions(40, 10, 2)
	tess, err := Tessellate(context.Background(), c, pts, 0)
	require.NoError(t, err)

	// No input point may lie strictly inside the circumsphere of any
	// finite cell.
	for ci := range tess.Tets {
		tet := &tess.Tets[ci]
		if tet.Infinite {
			continue
		}
		for pi := range pts {
			vi := int32(pi)
			if vi == tet.V[0] || vi == tet.V[1] || vi == tet.V[2] || vi == tet.V[3] {
				continue
			}
			p := tess.VertexPos(vi)
			dx := float64(p.X) - tet.cx
			dy := float64(p.Y) - tet.cy
			dz := float64(p.Z) - tet.cz
			assert.GreaterOrEqual(t, dx*dx+dy*dy+dz*dz, tet.r2*(1-1e-9))
		}
	}
}

func TestConstructManifoldClosedSurface(t *testing.T) {
	c := cell.Orthogonal(10, 10, 10, true)
	pts := randomPositions(300, 10, 3)
	tess, err := Tessellate(context.Background(), c, pts, 4)
	require.NoError(t, err)

	mesh := surface.NewMesh(c)
	err = ConstructManifold(context.Background(), tess, mesh, ManifoldOptions{Alpha: 2})
	require.NoError(t, err)

	if len(mesh.Faces) == 0 {
		// Dense random points at this alpha may fill space entirely.
		assert.Equal(t, int32(1), mesh.SpaceFillingRegion)
		return
	}
	assert.True(t, mesh.IsClosed())
	assert.Greater(t, mesh.SurfaceArea(), 0.0)
	for i := range mesh.Edges {
		op := mesh.Edges[i].Opposite
		require.NotEqual(t, surface.InvalidIndex, op)
		assert.Equal(t, surface.Index(i), mesh.Edges[op].Opposite)
	}
	for i := range mesh.Faces {
		assert.Equal(t, int32(1), mesh.Faces[i].Region)
	}
}

func TestConstructManifoldSlabSurfaceArea(t *testing.T) {
	// A slab of 1000 particles on a jittered lattice: 10x10 in-plane
	// with spacing 1, 10 layers stacked along z with spacing 0.5. In a
	// periodic 10x10x10 cell the slab is bounded by two periodic
	// 10x10 planes, so the total area is close to 200; jitter and the
	// probe-sphere dimpling make the measured area somewhat larger.
	c := cell.Orthogonal(10, 10, 10, true)
	rng := rand.New(rand.NewSource(7))
	jitter := func() float32 { return rng.Float32()*0.2 - 0.1 }
	pts := make([]math32.Vector3, 0, 1000)
	for k := 0; k < 10; k++ {
		for j := 0; j < 10; j++ {
			for i := 0; i < 10; i++ {
				pts = append(pts, math32.Vec3(
					float32(i)+jitter(),
					float32(j)+jitter(),
					float32(k)*0.5+jitter()))
			}
		}
	}

	const radius = 1.5
	tess, err := Tessellate(context.Background(), c, pts, radius*3)
	require.NoError(t, err)

	mesh := surface.NewMesh(c)
	require.NoError(t, ConstructManifold(context.Background(), tess, mesh, ManifoldOptions{Alpha: radius}))
	require.NotEmpty(t, mesh.Faces)
	assert.True(t, mesh.IsClosed())
	assert.Equal(t, ExteriorRegion, mesh.SpaceFillingRegion)

	area := mesh.SurfaceArea()
	assert.InDelta(t, 200.0, area, 60.0,
		"slab surface area should stay near the two bounding planes")
}

func TestConstructManifoldSparseGas(t *testing.T) {
	// With a tiny probe sphere nothing is solid: no surface, no
	// space-filling region.
	c := cell.Orthogonal(10, 10, 10, true)
	tess, err := Tessellate(context.Background(), c, randomPositions(100, 10, 4), 4)
	require.NoError(t, err)

	mesh := surface.NewMesh(c)
	require.NoError(t, ConstructManifold(context.Background(), tess, mesh, ManifoldOptions{Alpha: 0.01}))
	assert.Empty(t, mesh.Faces)
	assert.Equal(t, ExteriorRegion, mesh.SpaceFillingRegion)
}

func TestConstructManifoldTwoSided(t *testing.T) {
	c := cell.Orthogonal(20, 20, 20, false)
	// A compact blob of points in the middle of an open cell.
	rng := rand.New(rand.NewSource(5))
	pts := make([]math32.Vector3, 80)
	for i := range pts {
		pts[i] = math32.Vec3(8+rng.Float32()*4, 8+rng.Float32()*4, 8+rng.Float32()*4)
	}
	tess, err := Tessellate(context.Background(), c, pts, 0)
	require.NoError(t, err)

	mesh := surface.NewMesh(c)
	linked := 0
	err = ConstructManifold(context.Background(), tess, mesh, ManifoldOptions{
		Alpha:    3,
		TwoSided: true,
		LinkManifolds: func(inner, mirror surface.Index) {
			linked++
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, mesh.Faces)
	assert.True(t, mesh.IsClosed())

	inner, outer := 0, 0
	for i := range mesh.Faces {
		require.NotEqual(t, surface.InvalidIndex, mesh.Faces[i].OppositeFace)
		if mesh.Faces[i].Region == ExteriorRegion {
			outer++
		} else {
			inner++
		}
	}
	assert.Equal(t, inner, outer)
	assert.Greater(t, linked, 0)
}

func TestConstructManifoldVertexAndFaceCallbacks(t *testing.T) {
	c := cell.Orthogonal(20, 20, 20, false)
	rng := rand.New(rand.NewSource(6))
	pts := make([]math32.Vector3, 60)
	for i := range pts {
		pts[i] = math32.Vec3(8+rng.Float32()*4, 8+rng.Float32()*4, 8+rng.Float32()*4)
	}
	tess, err := Tessellate(context.Background(), c, pts, 0)
	require.NoError(t, err)

	mesh := surface.NewMesh(c)
	vertices := map[int]surface.Index{}
	faces := 0
	err = ConstructManifold(context.Background(), tess, mesh, ManifoldOptions{
		Alpha: 3,
		PrepareVertex: func(particle int, v surface.Index) {
			vertices[particle] = v
		},
		PrepareFace: func(cellIdx int32, face surface.Index) {
			faces++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, len(mesh.Vertices), len(vertices), "one callback per created vertex")
	assert.Equal(t, len(mesh.Faces), faces)

	// Mesh vertices sit at the positions of their source particles.
	for particle, v := range vertices {
		assert.Equal(t, pts[particle], mesh.Vertices[v].Pos)
	}
}
