// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomvis/atomvis/cell"
)

// tetrahedron builds a closed tetrahedral surface with outward-facing
// walls.
func tetrahedron(c cell.Cell) *Mesh {
	m := NewMesh(c)
	a := m.CreateVertex(math32.Vec3(0, 0, 0))
	b := m.CreateVertex(math32.Vec3(1, 0, 0))
	d := m.CreateVertex(math32.Vec3(0, 1, 0))
	e := m.CreateVertex(math32.Vec3(0, 0, 1))
	m.CreateFace(a, d, b)
	m.CreateFace(a, b, e)
	m.CreateFace(b, d, e)
	m.CreateFace(a, e, d)
	return m
}

func TestCreateFaceLinksBoundaryLoop(t *testing.T) {
	m := NewMesh(cell.Orthogonal(10, 10, 10, false))
	a := m.CreateVertex(math32.Vec3(0, 0, 0))
	b := m.CreateVertex(math32.Vec3(1, 0, 0))
	c := m.CreateVertex(math32.Vec3(0, 1, 0))
	f := m.CreateFace(a, b, c)

	require.Equal(t, 3, m.FaceEdgeCount(f))
	e := m.Faces[f].FirstEdge
	assert.Equal(t, a, m.Edges[e].Vertex1)
	assert.Equal(t, b, m.Edges[e].Vertex2)
	assert.Equal(t, e, m.Edges[m.Edges[e].NextFaceEdge].PrevFaceEdge)
	assert.Equal(t, e, m.Edges[m.Edges[m.Edges[e].NextFaceEdge].NextFaceEdge].NextFaceEdge)

	assert.Equal(t, e, m.FindEdge(a, b))
	assert.Equal(t, InvalidIndex, m.FindEdge(b, a))
	assert.Equal(t, 1, m.CountVertexEdges(a))
}

func TestConnectOppositeHalfedges(t *testing.T) {
	m := tetrahedron(cell.Orthogonal(10, 10, 10, false))
	assert.False(t, m.IsClosed())
	require.True(t, m.ConnectOppositeHalfedges())
	assert.True(t, m.IsClosed())

	// Opposite links are mutual and reverse the edge direction.
	for i := range m.Edges {
		op := m.Edges[i].Opposite
		require.NotEqual(t, InvalidIndex, op)
		assert.Equal(t, Index(i), m.Edges[op].Opposite)
		assert.Equal(t, m.Edges[i].Vertex1, m.Edges[op].Vertex2)
		assert.Equal(t, m.Edges[i].Vertex2, m.Edges[op].Vertex1)
	}
}

func TestSurfaceAreaPeriodicWrap(t *testing.T) {
	// A triangle spanning the periodic boundary: its vertices are far
	// apart in absolute coordinates but close under the minimum image
	// convention.
	c := cell.Orthogonal(10, 10, 10, true)
	m := NewMesh(c)
	a := m.CreateVertex(math32.Vec3(9.5, 0, 0))
	b := m.CreateVertex(math32.Vec3(0.5, 0, 0)) // one unit to the right of a
	d := m.CreateVertex(math32.Vec3(9.5, 1, 0))
	m.CreateFace(a, b, d)
	assert.InDelta(t, 0.5, m.SurfaceArea(), 1e-5)
}

func TestConvertToTriMesh(t *testing.T) {
	m := tetrahedron(cell.Orthogonal(10, 10, 10, false))
	tm := m.ConvertToTriMesh()
	assert.Equal(t, 4, tm.VertexCount())
	assert.Equal(t, 4, tm.FaceCount())

	// Mirror faces of a two-sided mesh are emitted only once.
	m.Faces[0].OppositeFace = 1
	m.Faces[1].OppositeFace = 0
	tm = m.ConvertToTriMesh()
	assert.Equal(t, 3, tm.FaceCount())
}

func TestCloneIsIndependent(t *testing.T) {
	m := tetrahedron(cell.Orthogonal(10, 10, 10, false))
	m.ConnectOppositeHalfedges()
	c := m.Clone()
	c.Vertices[0].Pos = math32.Vec3(5, 5, 5)
	c.Faces[0].Region = 7
	assert.Equal(t, math32.Vec3(0, 0, 0), m.Vertices[0].Pos)
	assert.Equal(t, int32(0), m.Faces[0].Region)
}
