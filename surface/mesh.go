// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package surface implements a half-edge mesh for closed two-manifold
// surfaces embedded in a periodic simulation cell, with spatial
// regions attached to faces.
package surface

import (
	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
	"github.com/atomvis/atomvis/trimesh"
)

// Index addresses vertices, edges and faces within a [Mesh].
type Index = int32

// InvalidIndex marks an unset index field.
const InvalidIndex Index = -1

// Vertex is a mesh vertex. Its outgoing half-edges form a singly
// linked list headed by FirstEdge.
type Vertex struct {
	Pos       math32.Vector3
	FirstEdge Index
}

// Edge is a directed half-edge from Vertex1 to Vertex2 bounding Face.
type Edge struct {
	Face     Index
	Vertex1  Index
	Vertex2  Index
	Opposite Index

	// NextFaceEdge and PrevFaceEdge link the circular boundary loop of
	// the owning face.
	NextFaceEdge Index
	PrevFaceEdge Index

	// NextVertexEdge links the outgoing edge list of Vertex1.
	NextVertexEdge Index
}

// Face is a polygonal mesh face. Region identifies the spatial region
// the face borders on its positive side.
type Face struct {
	FirstEdge Index
	Region    int32

	// OppositeFace links the mirror face of the other manifold in
	// two-sided meshes.
	OppositeFace Index
}

// Mesh is a half-edge surface mesh. Edge vectors are computed with the
// minimum image convention of the attached simulation cell, so the
// surface may wrap around periodic boundaries.
type Mesh struct {
	Cell     cell.Cell
	Vertices []Vertex
	Edges    []Edge
	Faces    []Face

	// SpaceFillingRegion is the region filling space entirely when the
	// mesh has no faces; zero denotes the empty region.
	SpaceFillingRegion int32
}

// NewMesh returns an empty mesh embedded in the given cell.
func NewMesh(c cell.Cell) *Mesh {
	return &Mesh{Cell: c}
}

// CreateVertex appends a vertex at the given position.
func (m *Mesh) CreateVertex(pos math32.Vector3) Index {
	m.Vertices = append(m.Vertices, Vertex{Pos: pos, FirstEdge: InvalidIndex})
	return Index(len(m.Vertices) - 1)
}

// CreateFace builds a face from the given vertex loop, creating one
// half-edge per consecutive vertex pair. Opposite links are left unset.
func (m *Mesh) CreateFace(vertices ...Index) Index {
	fi := Index(len(m.Faces))
	m.Faces = append(m.Faces, Face{FirstEdge: InvalidIndex, OppositeFace: InvalidIndex})
	n := len(vertices)
	base := Index(len(m.Edges))
	for i := 0; i < n; i++ {
		v1 := vertices[i]
		v2 := vertices[(i+1)%n]
		ei := base + Index(i)
		m.Edges = append(m.Edges, Edge{
			Face:           fi,
			Vertex1:        v1,
			Vertex2:        v2,
			Opposite:       InvalidIndex,
			NextFaceEdge:   base + Index((i+1)%n),
			PrevFaceEdge:   base + Index((i+n-1)%n),
			NextVertexEdge: m.Vertices[v1].FirstEdge,
		})
		m.Vertices[v1].FirstEdge = ei
	}
	m.Faces[fi].FirstEdge = base
	return fi
}

// FindEdge returns the half-edge from v1 to v2, or InvalidIndex.
func (m *Mesh) FindEdge(v1, v2 Index) Index {
	for ei := m.Vertices[v1].FirstEdge; ei != InvalidIndex; ei = m.Edges[ei].NextVertexEdge {
		if m.Edges[ei].Vertex2 == v2 {
			return ei
		}
	}
	return InvalidIndex
}

// CountVertexEdges returns the number of half-edges leaving the vertex.
func (m *Mesh) CountVertexEdges(v Index) int {
	n := 0
	for ei := m.Vertices[v].FirstEdge; ei != InvalidIndex; ei = m.Edges[ei].NextVertexEdge {
		n++
	}
	return n
}

// LinkOppositeEdges makes two half-edges each other's opposite. Both
// must be unlinked.
func (m *Mesh) LinkOppositeEdges(e1, e2 Index) {
	m.Edges[e1].Opposite = e2
	m.Edges[e2].Opposite = e1
}

// ConnectOppositeHalfedges links every half-edge to its reverse twin
// and reports whether all edges could be paired, i.e. whether the mesh
// is a closed manifold.
func (m *Mesh) ConnectOppositeHalfedges() bool {
	closed := true
	for ei := range m.Edges {
		e := &m.Edges[ei]
		if e.Opposite != InvalidIndex {
			continue
		}
		twin := m.FindEdge(e.Vertex2, e.Vertex1)
		if twin == InvalidIndex || m.Edges[twin].Opposite != InvalidIndex {
			closed = false
			continue
		}
		m.LinkOppositeEdges(Index(ei), twin)
	}
	return closed
}

// IsClosed reports whether every half-edge has an opposite.
func (m *Mesh) IsClosed() bool {
	for i := range m.Edges {
		if m.Edges[i].Opposite == InvalidIndex {
			return false
		}
	}
	return true
}

// EdgeVector returns the vector along the half-edge, wrapped by the
// minimum image convention of the cell.
func (m *Mesh) EdgeVector(e Index) math32.Vector3 {
	ed := &m.Edges[e]
	return m.Cell.WrapVector(m.Vertices[ed.Vertex2].Pos.Sub(m.Vertices[ed.Vertex1].Pos))
}

// FaceEdgeCount returns the number of edges bounding the face.
func (m *Mesh) FaceEdgeCount(f Index) int {
	n := 0
	start := m.Faces[f].FirstEdge
	for ei := start; ; ei = m.Edges[ei].NextFaceEdge {
		n++
		if m.Edges[ei].NextFaceEdge == start {
			break
		}
	}
	return n
}

// SurfaceArea computes the total area of all faces. Face polygons are
// traversed via wrapped edge vectors, so faces crossing periodic
// boundaries contribute correctly.
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for fi := range m.Faces {
		start := m.Faces[fi].FirstEdge
		if start == InvalidIndex {
			continue
		}
		// Fan triangulation in the local frame of the first vertex.
		var pos math32.Vector3
		first := true
		for ei := start; ; ei = m.Edges[ei].NextFaceEdge {
			next := pos.Add(m.EdgeVector(ei))
			if !first {
				area += float64(pos.Cross(next).Length()) / 2
			}
			pos = next
			first = false
			if m.Edges[ei].NextFaceEdge == start {
				break
			}
		}
	}
	return area
}

// ConvertToTriMesh emits the surface as a plain triangle mesh. Face
// polygons are fan-triangulated; faces belonging to the secondary
// manifold of a two-sided mesh are skipped so shared walls are not
// emitted twice.
func (m *Mesh) ConvertToTriMesh() *trimesh.Mesh {
	out := trimesh.NewMesh()
	for _, v := range m.Vertices {
		out.AddVertex(v.Pos)
	}
	for fi := range m.Faces {
		f := &m.Faces[fi]
		if f.OppositeFace != InvalidIndex && f.OppositeFace < Index(fi) {
			continue
		}
		start := f.FirstEdge
		if start == InvalidIndex {
			continue
		}
		v0 := m.Edges[start].Vertex1
		ei := m.Edges[start].NextFaceEdge
		for m.Edges[ei].NextFaceEdge != start {
			tf := out.AddFace(v0, m.Edges[ei].Vertex1, m.Edges[ei].Vertex2)
			tf.SetAllEdgesVisible()
			ei = m.Edges[ei].NextFaceEdge
		}
	}
	return out
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Cell:               m.Cell,
		Vertices:           append([]Vertex(nil), m.Vertices...),
		Edges:              append([]Edge(nil), m.Edges...),
		Faces:              append([]Face(nil), m.Faces...),
		SpaceFillingRegion: m.SpaceFillingRegion,
	}
}
