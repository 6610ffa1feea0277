// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disloc

import (
	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
)

// InvalidEdge marks an unset microstructure edge index.
const InvalidEdge int32 = -1

// MicroEdge is one directed edge of a [Microstructure]. Edges come in
// opposite pairs; the even-indexed edge of a pair is the physical
// direction that carries the Burgers vector.
type MicroEdge struct {
	Vertex1  int32
	Vertex2  int32
	Opposite int32

	// NextVertexEdge links the outgoing edge list of Vertex1.
	NextVertexEdge int32

	// Burgers is the Burgers vector transported along this edge
	// direction, in the lattice frame of Cluster.
	Burgers math32.Vector3

	// Cluster is the crystal cluster the Burgers vector is expressed
	// in.
	Cluster *Cluster

	// Dislocation marks edges that are part of a dislocation line, as
	// opposed to other microstructure boundaries.
	Dislocation bool
}

// Microstructure is a graph of nodal points connected by directed edge
// pairs, the raw form a dislocation network is traced from. Edge
// vectors follow the minimum image convention of the cell.
type Microstructure struct {
	Cell      cell.Cell
	Positions []math32.Vector3
	Edges     []MicroEdge

	firstEdge []int32
}

// NewMicrostructure returns an empty microstructure in the given cell.
func NewMicrostructure(c cell.Cell) *Microstructure {
	return &Microstructure{Cell: c}
}

// VertexCount returns the number of nodal points.
func (m *Microstructure) VertexCount() int { return len(m.Positions) }

// CreateVertex adds a nodal point and returns its index.
func (m *Microstructure) CreateVertex(pos math32.Vector3) int32 {
	m.Positions = append(m.Positions, pos)
	m.firstEdge = append(m.firstEdge, InvalidEdge)
	return int32(len(m.Positions) - 1)
}

// CreateDislocationEdge connects two nodal points with a dislocation
// edge pair carrying the given Burgers vector in the physical
// direction v1 to v2. It returns the physical edge.
func (m *Microstructure) CreateDislocationEdge(v1, v2 int32, burgers math32.Vector3, cluster *Cluster) int32 {
	e1 := int32(len(m.Edges))
	e2 := e1 + 1
	m.Edges = append(m.Edges,
		MicroEdge{
			Vertex1: v1, Vertex2: v2, Opposite: e2,
			NextVertexEdge: m.firstEdge[v1],
			Burgers:        burgers,
			Cluster:        cluster,
			Dislocation:    true,
		},
		MicroEdge{
			Vertex1: v2, Vertex2: v1, Opposite: e1,
			NextVertexEdge: m.firstEdge[v2],
			Burgers:        burgers.Negate(),
			Cluster:        cluster,
			Dislocation:    true,
		})
	m.firstEdge[v1] = e1
	m.firstEdge[v2] = e2
	return e1
}

// FirstVertexEdge returns the head of the outgoing edge list of a
// nodal point.
func (m *Microstructure) FirstVertexEdge(v int32) int32 { return m.firstEdge[v] }

// NextVertexEdge returns the next outgoing edge after e at the same
// nodal point.
func (m *Microstructure) NextVertexEdge(e int32) int32 { return m.Edges[e].NextVertexEdge }

// IsPhysicalDislocationEdge reports whether e is the primary direction
// of a dislocation edge pair.
func (m *Microstructure) IsPhysicalDislocationEdge(e int32) bool {
	return m.Edges[e].Dislocation && e < m.Edges[e].Opposite
}

// CountDislocationArms returns the number of dislocation line arms
// attached to a nodal point.
func (m *Microstructure) CountDislocationArms(v int32) int {
	n := 0
	for e := m.firstEdge[v]; e != InvalidEdge; e = m.Edges[e].NextVertexEdge {
		if m.Edges[e].Dislocation {
			n++
		}
	}
	return n
}

// EdgeVector returns the spatial vector along the edge, wrapped by the
// minimum image convention.
func (m *Microstructure) EdgeVector(e int32) math32.Vector3 {
	ed := &m.Edges[e]
	return m.Cell.WrapVector(m.Positions[ed.Vertex2].Sub(m.Positions[ed.Vertex1]))
}
