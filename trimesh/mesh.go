// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trimesh implements a simple triangle mesh with per-face
// materials, smoothing groups and edge visibility flags, plus the
// geometry operations and file exporters working on it.
package trimesh

import (
	"cogentcore.org/core/math32"
)

// Edge visibility bits of a [Face].
const (
	edge1Visible uint8 = 1 << iota
	edge2Visible
	edge3Visible
)

// Face is one triangle of a [Mesh]. Edge i runs from vertex V[i] to
// vertex V[(i+1)%3].
type Face struct {

	// V are the indices of the three face vertices.
	V [3]int32

	// MaterialIndex selects the material the face is rendered with.
	MaterialIndex int32

	// SmoothingGroups is a bit mask of the smoothing groups the face
	// belongs to.
	SmoothingGroups uint32

	flags uint8
}

// SetEdgeVisibility sets the visibility of all three face edges.
func (f *Face) SetEdgeVisibility(e1, e2, e3 bool) {
	f.flags = 0
	if e1 {
		f.flags |= edge1Visible
	}
	if e2 {
		f.flags |= edge2Visible
	}
	if e3 {
		f.flags |= edge3Visible
	}
}

// SetAllEdgesVisible marks every edge of the face visible.
func (f *Face) SetAllEdgesVisible() {
	f.flags = edge1Visible | edge2Visible | edge3Visible
}

// IsEdgeVisible reports whether edge i (0..2) of the face is visible.
func (f *Face) IsEdgeVisible(i int) bool {
	return f.flags&(edge1Visible<<uint(i)) != 0
}

// Mesh is a triangle mesh with optional per-vertex colors, per-face
// colors and per-face-corner normals.
type Mesh struct {

	// Vertices are the mesh vertex positions.
	Vertices []math32.Vector3

	// VertexColors holds one RGBA color per vertex when non-empty.
	VertexColors []math32.Vector4

	// FaceColors holds one RGBA color per face when non-empty.
	FaceColors []math32.Vector4

	// Normals holds three normals per face, one per corner, when
	// non-empty.
	Normals []math32.Vector3

	// Faces are the mesh triangles.
	Faces []Face
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{}
}

// HasVertexColors reports whether per-vertex colors are present.
func (m *Mesh) HasVertexColors() bool { return len(m.VertexColors) > 0 }

// HasFaceColors reports whether per-face colors are present.
func (m *Mesh) HasFaceColors() bool { return len(m.FaceColors) > 0 }

// HasNormals reports whether per-corner normals are present.
func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) }

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int { return len(m.Faces) }

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(p math32.Vector3) int {
	m.Vertices = append(m.Vertices, p)
	return len(m.Vertices) - 1
}

// AddFace appends a triangle with all edges visible and returns a
// pointer to it for further setup.
func (m *Mesh) AddFace(a, b, c int32) *Face {
	m.Faces = append(m.Faces, Face{V: [3]int32{a, b, c}})
	f := &m.Faces[len(m.Faces)-1]
	f.SetAllEdgesVisible()
	return f
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices:     append([]math32.Vector3(nil), m.Vertices...),
		VertexColors: append([]math32.Vector4(nil), m.VertexColors...),
		FaceColors:   append([]math32.Vector4(nil), m.FaceColors...),
		Normals:      append([]math32.Vector3(nil), m.Normals...),
		Faces:        append([]Face(nil), m.Faces...),
	}
	return c
}

// BoundingBox returns the axis-aligned bounding box of all vertices.
func (m *Mesh) BoundingBox() math32.Box3 {
	var b math32.Box3
	b.SetEmpty()
	for _, v := range m.Vertices {
		b.ExpandByPoint(v)
	}
	return b
}

// FlipFaces reverses the winding order of every face, inverting the
// mesh orientation. Normals and edge visibility flags are adjusted
// accordingly.
func (m *Mesh) FlipFaces() {
	for i := range m.Faces {
		f := &m.Faces[i]
		f.V[1], f.V[2] = f.V[2], f.V[1]
		e1 := f.flags&edge1Visible != 0
		e2 := f.flags&edge2Visible != 0
		e3 := f.flags&edge3Visible != 0
		// Vertex order (a,b,c) -> (a,c,b) turns edge a-b into the
		// last edge and edge c-a into the first.
		f.SetEdgeVisibility(e3, e2, e1)
	}
	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Negate()
	}
}

// FaceNormal computes the unnormalized geometric normal of face i.
func (m *Mesh) FaceNormal(i int) math32.Vector3 {
	f := &m.Faces[i]
	a := m.Vertices[f.V[0]]
	b := m.Vertices[f.V[1]]
	c := m.Vertices[f.V[2]]
	return b.Sub(a).Cross(c.Sub(a))
}

// DetermineEdgeVisibility flags edges as visible when the dihedral
// angle between the two adjacent faces exceeds the threshold angle
// (radians). Boundary edges are always visible.
func (m *Mesh) DetermineEdgeVisibility(thresholdAngle float32) {
	cosThreshold := math32.Cos(thresholdAngle)

	type edgeKey struct{ a, b int32 }
	type edgeRef struct {
		face int
		edge int
	}
	edges := make(map[edgeKey][]edgeRef, len(m.Faces)*3/2)
	for fi := range m.Faces {
		f := &m.Faces[fi]
		for e := 0; e < 3; e++ {
			a, b := f.V[e], f.V[(e+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[edgeKey{a, b}] = append(edges[edgeKey{a, b}], edgeRef{fi, e})
		}
	}

	normals := make([]math32.Vector3, len(m.Faces))
	for i := range m.Faces {
		normals[i] = m.FaceNormal(i).Normal()
	}

	for i := range m.Faces {
		m.Faces[i].flags = 0
	}
	for _, refs := range edges {
		visible := len(refs) != 2 ||
			normals[refs[0].face].Dot(normals[refs[1].face]) < cosThreshold
		if !visible {
			continue
		}
		for _, r := range refs {
			m.Faces[r.face].flags |= edge1Visible << uint(r.edge)
		}
	}
}

// IntersectRay finds the nearest intersection of the ray starting at
// origin along dir with the mesh. It returns the ray parameter and the
// face index, or ok=false if the ray misses the mesh.
func (m *Mesh) IntersectRay(origin, dir math32.Vector3) (t float32, face int, ok bool) {
	const eps = 1e-9
	best := math32.Infinity
	bestFace := -1
	for i := range m.Faces {
		f := &m.Faces[i]
		v0 := m.Vertices[f.V[0]]
		e1 := m.Vertices[f.V[1]].Sub(v0)
		e2 := m.Vertices[f.V[2]].Sub(v0)
		p := dir.Cross(e2)
		det := e1.Dot(p)
		if det > -eps && det < eps {
			continue
		}
		inv := 1 / det
		s := origin.Sub(v0)
		u := s.Dot(p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := s.Cross(e1)
		v := dir.Dot(q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		hit := e2.Dot(q) * inv
		if hit > eps && hit < best {
			best = hit
			bestFace = i
		}
	}
	if bestFace < 0 {
		return 0, 0, false
	}
	return best, bestFace, true
}

// RemoveDuplicateVertices merges vertices that lie within epsilon of
// each other and remaps all faces. It returns the number of vertices
// removed.
func (m *Mesh) RemoveDuplicateVertices(epsilon float32) int {
	eps2 := epsilon * epsilon
	remap := make([]int32, len(m.Vertices))
	newCount := 0
	for i, v := range m.Vertices {
		// Compare against the kept vertices only. The prefix of the
		// slice is compacted in place, so indices below newCount are
		// valid canonical indices.
		canonical := int32(-1)
		for j := 0; j < newCount; j++ {
			if m.Vertices[j].Sub(v).LengthSquared() <= eps2 {
				canonical = int32(j)
				break
			}
		}
		if canonical < 0 {
			canonical = int32(newCount)
			m.Vertices[newCount] = v
			if m.HasVertexColors() {
				m.VertexColors[newCount] = m.VertexColors[i]
			}
			newCount++
		}
		remap[i] = canonical
	}
	removed := len(m.Vertices) - newCount
	m.Vertices = m.Vertices[:newCount]
	if m.HasVertexColors() {
		m.VertexColors = m.VertexColors[:newCount]
	}
	for i := range m.Faces {
		f := &m.Faces[i]
		for k := 0; k < 3; k++ {
			f.V[k] = remap[f.V[k]]
		}
	}
	return removed
}
