// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modify

import (
	"context"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/pipeline"
)

// affineGroup is the delegate registry group of
// [AffineTransformationModifier].
const affineGroup = "affine"

func init() {
	pipeline.RegisterDelegate(affineGroup, func() pipeline.Delegate { return &particlesAffineDelegate{} })
	pipeline.RegisterDelegate(affineGroup, func() pipeline.Delegate { return &cellAffineDelegate{} })
	pipeline.RegisterDelegate(affineGroup, func() pipeline.Delegate { return &triMeshAffineDelegate{} })
}

// AffineTransformationModifier applies a linear transformation plus
// translation to every kind of positional data in the pipeline:
// particles, the simulation cell and triangle meshes. Individual
// delegates can be switched off.
type AffineTransformationModifier struct {
	pipeline.MultiDelegatingModifier

	// Linear is the 3x3 transformation matrix in row-major order.
	Linear [3][3]float32

	// Translation is added after the linear transformation.
	Translation math32.Vector3
}

// NewAffineTransformationModifier returns the modifier initialized
// with the identity transformation and all delegates enabled.
func NewAffineTransformationModifier() *AffineTransformationModifier {
	m := &AffineTransformationModifier{
		Linear: [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	m.TitleText = "Affine transformation"
	m.Delegates = pipeline.DelegatesFor(affineGroup)
	return m
}

// affineModifier lets delegates recover the transformation parameters
// from the generic modifier reference.
type affineModifier interface {
	transform() ([3][3]float32, math32.Vector3)
}

func (m *AffineTransformationModifier) transform() ([3][3]float32, math32.Vector3) {
	return m.Linear, m.Translation
}

type particlesAffineDelegate struct {
	pipeline.DelegateBase
}

func (d *particlesAffineDelegate) DataObjectName() string { return data.ParticlesName }

func (d *particlesAffineDelegate) CanOperateOn(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.Particles](input.Data(), data.ParticlesName)
	return ok
}

func (d *particlesAffineDelegate) Apply(ctx context.Context, mod pipeline.Modifier, t anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	l, tr := mod.(affineModifier).transform()
	particles := state.MutableData().MakeMutable(data.ParticlesName).(*data.Particles)
	for i := range particles.Positions {
		particles.Positions[i] = transformPoint(l, tr, particles.Positions[i])
	}
	return pipeline.Status{Type: pipeline.StatusSuccess}, nil
}

type cellAffineDelegate struct {
	pipeline.DelegateBase
}

func (d *cellAffineDelegate) DataObjectName() string { return data.CellName }

func (d *cellAffineDelegate) CanOperateOn(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.SimulationCellObject](input.Data(), data.CellName)
	return ok
}

func (d *cellAffineDelegate) Apply(ctx context.Context, mod pipeline.Modifier, t anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	l, tr := mod.(affineModifier).transform()
	obj := state.MutableData().MakeMutable(data.CellName).(*data.SimulationCellObject)
	for i := range obj.Cell.Axes {
		// Cell vectors are directions: no translation.
		obj.Cell.Axes[i] = transformPoint(l, math32.Vector3{}, obj.Cell.Axes[i])
	}
	obj.Cell.Origin = transformPoint(l, tr, obj.Cell.Origin)
	return pipeline.Status{Type: pipeline.StatusSuccess}, nil
}

type triMeshAffineDelegate struct {
	pipeline.DelegateBase
}

func (d *triMeshAffineDelegate) DataObjectName() string { return data.TriMeshName }

func (d *triMeshAffineDelegate) CanOperateOn(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.TriMeshObject](input.Data(), data.TriMeshName)
	return ok
}

func (d *triMeshAffineDelegate) Apply(ctx context.Context, mod pipeline.Modifier, t anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	l, tr := mod.(affineModifier).transform()
	obj := state.MutableData().MakeMutable(data.TriMeshName).(*data.TriMeshObject)
	for i := range obj.Mesh.Vertices {
		obj.Mesh.Vertices[i] = transformPoint(l, tr, obj.Mesh.Vertices[i])
	}
	return pipeline.Status{Type: pipeline.StatusSuccess}, nil
}
