// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modify

import (
	"context"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/pipeline"
	"github.com/atomvis/atomvis/trimesh"
)

// sliceGroup is the delegate registry group of [SliceModifier].
const sliceGroup = "slice"

func init() {
	pipeline.RegisterDelegate(sliceGroup, func() pipeline.Delegate { return &particlesSliceDelegate{} })
	pipeline.RegisterDelegate(sliceGroup, func() pipeline.Delegate { return &triMeshSliceDelegate{} })
}

// SliceModifier deletes the part of the data on the positive side of a
// cutting plane. The operation itself is carried out by a delegate for
// the selected kind of data.
type SliceModifier struct {
	pipeline.DelegatingModifier

	// Normal is the plane normal; it does not need to be unit length.
	Normal math32.Vector3

	// Distance is the signed distance of the plane from the origin
	// along the normal.
	Distance float32

	// Inverse keeps the positive instead of the negative side.
	Inverse bool
}

// NewSliceModifier returns a slice modifier operating on the named
// kind of data object (data.ParticlesName or data.TriMeshName).
func NewSliceModifier(dataObject string) *SliceModifier {
	m := &SliceModifier{Normal: math32.Vec3(0, 0, 1)}
	m.TitleText = "Slice"
	for _, d := range pipeline.DelegatesFor(sliceGroup) {
		if d.DataObjectName() == dataObject {
			m.Delegate = d
			break
		}
	}
	return m
}

// plane returns the cutting plane with the Inverse flag folded in.
func (m *SliceModifier) plane() trimesh.Plane {
	p := trimesh.Plane{Normal: m.Normal, Dist: -m.Distance * m.Normal.Length()}
	if m.Inverse {
		p.Normal = p.Normal.Negate()
		p.Dist = -p.Dist
	}
	return p
}

// sliceModifier lets delegates recover their owning modifier's plane
// from the generic modifier reference.
type sliceModifier interface {
	plane() trimesh.Plane
}

type particlesSliceDelegate struct {
	pipeline.DelegateBase
}

func (d *particlesSliceDelegate) DataObjectName() string { return data.ParticlesName }

func (d *particlesSliceDelegate) CanOperateOn(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.Particles](input.Data(), data.ParticlesName)
	return ok
}

func (d *particlesSliceDelegate) Apply(ctx context.Context, mod pipeline.Modifier, t anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	plane := mod.(sliceModifier).plane()
	particles := state.MutableData().MakeMutable(data.ParticlesName).(*data.Particles)

	total := len(particles.Positions)
	hasSelection := len(particles.Selection) == total
	kept := particles.Positions[:0]
	var keptSelection []bool
	if hasSelection {
		keptSelection = particles.Selection[:0]
	}
	for i, p := range particles.Positions {
		if plane.PointDistance(p) > 0 {
			continue
		}
		kept = append(kept, p)
		if hasSelection {
			keptSelection = append(keptSelection, particles.Selection[i])
		}
	}
	particles.Positions = kept
	particles.Selection = keptSelection
	return pipeline.Status{
		Type: pipeline.StatusSuccess,
		Text: fmt.Sprintf("Deleted %d of %d particles.", total-len(kept), total),
	}, nil
}

type triMeshSliceDelegate struct {
	pipeline.DelegateBase
}

func (d *triMeshSliceDelegate) DataObjectName() string { return data.TriMeshName }

func (d *triMeshSliceDelegate) CanOperateOn(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.TriMeshObject](input.Data(), data.TriMeshName)
	return ok
}

func (d *triMeshSliceDelegate) Apply(ctx context.Context, mod pipeline.Modifier, t anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	plane := mod.(sliceModifier).plane()
	obj := state.MutableData().MakeMutable(data.TriMeshName).(*data.TriMeshObject)
	before := obj.Mesh.FaceCount()
	obj.Mesh = obj.Mesh.ClipAtPlane(plane)
	return pipeline.Status{
		Type: pipeline.StatusSuccess,
		Text: fmt.Sprintf("Clipped mesh: %d of %d faces remain.", obj.Mesh.FaceCount(), before),
	}, nil
}
