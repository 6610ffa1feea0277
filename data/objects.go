// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package data

import (
	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
	"github.com/atomvis/atomvis/disloc"
	"github.com/atomvis/atomvis/surface"
	"github.com/atomvis/atomvis/trimesh"
)

// Standard object names used in a [Collection].
const (
	ParticlesName    = "particles"
	CellName         = "cell"
	SurfaceMeshName  = "surface"
	TriMeshName      = "trimesh"
	DislocationsName = "dislocations"
)

// Particles holds the per-particle data of a snapshot.
type Particles struct {
	VisBase

	// Positions are the particle coordinates.
	Positions []math32.Vector3

	// Selection flags one entry per particle when non-nil.
	Selection []bool
}

func (p *Particles) Name() string { return ParticlesName }

func (p *Particles) Clone() Object {
	c := deepCopy(p)
	c.Vis = p.Vis
	return c
}

// Count returns the number of particles.
func (p *Particles) Count() int { return len(p.Positions) }

// SimulationCellObject wraps the simulation cell geometry as a data
// object.
type SimulationCellObject struct {
	VisBase
	Cell cell.Cell
}

func (s *SimulationCellObject) Name() string { return CellName }

func (s *SimulationCellObject) Clone() Object {
	c := *s
	return &c
}

// TriMeshObject wraps a renderable triangle mesh.
type TriMeshObject struct {
	VisBase
	Mesh *trimesh.Mesh
}

func (t *TriMeshObject) Name() string { return TriMeshName }

func (t *TriMeshObject) Clone() Object {
	c := *t
	if t.Mesh != nil {
		c.Mesh = t.Mesh.Clone()
	}
	return &c
}

// SurfaceMeshObject wraps a closed two-manifold surface mesh with its
// domain cell.
type SurfaceMeshObject struct {
	VisBase
	Mesh *surface.Mesh
}

func (s *SurfaceMeshObject) Name() string { return SurfaceMeshName }

func (s *SurfaceMeshObject) Clone() Object {
	c := *s
	if s.Mesh != nil {
		c.Mesh = s.Mesh.Clone()
	}
	return &c
}

// DislocationsObject wraps a dislocation line network.
type DislocationsObject struct {
	VisBase
	Network *disloc.Network
}

func (d *DislocationsObject) Name() string { return DislocationsName }

func (d *DislocationsObject) Clone() Object {
	c := *d
	if d.Network != nil {
		c.Network = d.Network.Clone()
	}
	return &c
}
