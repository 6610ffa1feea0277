// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modify provides the built-in pipeline modifiers: surface
// construction, plane slicing, affine transformation and dislocation
// line smoothing.
package modify

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/delaunay"
	"github.com/atomvis/atomvis/pipeline"
	"github.com/atomvis/atomvis/surface"
)

// SurfaceAreaAttribute is the attribute name under which the modifier
// reports the computed surface area.
const SurfaceAreaAttribute = "ConstructSurfaceMesh.SurfaceArea"

// SolidVolumeAttribute is the attribute name under which the modifier
// reports the summed volume of the solid region.
const SolidVolumeAttribute = "ConstructSurfaceMesh.SolidVolume"

// ConstructSurfaceModifier builds the geometric surface of an atomic
// structure using the alpha-shape criterion with the given probe
// sphere radius. The construction runs asynchronously.
type ConstructSurfaceModifier struct {
	pipeline.ModifierBase

	// Radius is the probe sphere radius; voids larger than it become
	// exterior space.
	Radius float64

	// OnlySelected restricts the construction to selected particles.
	OnlySelected bool
}

// NewConstructSurfaceModifier returns the modifier with default
// parameters.
func NewConstructSurfaceModifier() *ConstructSurfaceModifier {
	m := &ConstructSurfaceModifier{Radius: 4}
	m.TitleText = "Construct surface mesh"
	return m
}

func (m *ConstructSurfaceModifier) IsApplicableTo(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.Particles](input.Data(), data.ParticlesName)
	return ok
}

func (m *ConstructSurfaceModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	particles, ok := data.Lookup[*data.Particles](input.Data(), data.ParticlesName)
	if !ok {
		return pipeline.FailedFuture(errors.New("construct surface: input contains no particles"))
	}
	cellObj, ok := data.Lookup[*data.SimulationCellObject](input.Data(), data.CellName)
	if !ok {
		return pipeline.FailedFuture(errors.New("construct surface: input contains no simulation cell"))
	}
	if m.Radius <= 0 {
		return pipeline.FailedFuture(errors.New("construct surface: probe sphere radius must be positive"))
	}

	positions := particles.Positions
	if m.OnlySelected {
		if len(particles.Selection) != len(particles.Positions) {
			return pipeline.FailedFuture(errors.New("construct surface: input contains no selection"))
		}
		positions = nil
		for i, sel := range particles.Selection {
			if sel {
				positions = append(positions, particles.Positions[i])
			}
		}
	}
	if len(positions) < 4 {
		return pipeline.FailedFuture(errors.New("construct surface: not enough input particles"))
	}

	radius := m.Radius
	simCell := cellObj.Cell
	p := pipeline.NewPromise()
	go func() {
		// The ghost layer must cover the largest solid tetrahedron
		// reaching across a periodic boundary.
		tess, err := delaunay.Tessellate(req.Context, simCell, positions, float32(radius)*3)
		if err != nil {
			p.Fail(err)
			return
		}
		mesh := surface.NewMesh(simCell)
		if err := delaunay.ConstructManifold(req.Context, tess, mesh, delaunay.ManifoldOptions{
			Alpha: radius,
		}); err != nil {
			p.Fail(err)
			return
		}

		area := mesh.SurfaceArea()
		out := input
		d := out.MutableData()
		d.Set(&data.SurfaceMeshObject{Mesh: mesh})
		d.SetAttribute(SurfaceAreaAttribute, area)
		d.SetAttribute(SolidVolumeAttribute, tess.SolidVolume())
		var status pipeline.Status
		if mesh.SpaceFillingRegion != delaunay.ExteriorRegion {
			status = pipeline.Status{Type: pipeline.StatusSuccess, Text: "Surface is empty: solid region fills the entire cell."}
		} else if len(mesh.Faces) == 0 {
			status = pipeline.Status{Type: pipeline.StatusSuccess, Text: "Surface is empty: no solid region found."}
		} else {
			status = pipeline.Status{Type: pipeline.StatusSuccess,
				Text: fmt.Sprintf("Surface area: %g", area)}
		}
		out.SetStatus(out.Status().Merge(status))
		p.Fulfill(out)
	}()
	return p.Future()
}

func (m *ConstructSurfaceModifier) EvaluateSynchronous(t anim.Time, app *pipeline.ModifierApplication, input pipeline.FlowState) pipeline.FlowState {
	// No incremental fast path; the previous surface remains visible
	// until the asynchronous construction completes.
	return input
}

// transformPoint applies a linear transformation plus translation.
func transformPoint(l [3][3]float32, t, p math32.Vector3) math32.Vector3 {
	return math32.Vec3(
		l[0][0]*p.X+l[0][1]*p.Y+l[0][2]*p.Z+t.X,
		l[1][0]*p.X+l[1][1]*p.Y+l[1][2]*p.Z+t.Y,
		l[2][0]*p.X+l[2][1]*p.Y+l[2][2]*p.Z+t.Z,
	)
}
