// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package data_test

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomvis/atomvis/cell"
	"github.com/atomvis/atomvis/data"
)

func TestCollectionSetAndLookup(t *testing.T) {
	col := data.NewCollection()
	p := &data.Particles{Positions: []math32.Vector3{math32.Vec3(1, 2, 3)}}
	col.Set(p)
	col.Set(&data.SimulationCellObject{Cell: cell.Orthogonal(5, 5, 5, true)})

	got, ok := data.Lookup[*data.Particles](col, data.ParticlesName)
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = data.Lookup[*data.TriMeshObject](col, data.TriMeshName)
	assert.False(t, ok)

	// Wrong type under an existing name is not a match.
	_, ok = data.Lookup[*data.TriMeshObject](col, data.ParticlesName)
	assert.False(t, ok)
}

func TestCollectionSetReplaces(t *testing.T) {
	col := data.NewCollection()
	col.Set(&data.Particles{Positions: make([]math32.Vector3, 1)})
	col.Set(&data.Particles{Positions: make([]math32.Vector3, 7)})
	p, _ := data.Lookup[*data.Particles](col, data.ParticlesName)
	assert.Equal(t, 7, p.Count())
}

func TestCloneShallowSharesObjects(t *testing.T) {
	col := data.NewCollection()
	p := &data.Particles{Positions: []math32.Vector3{math32.Vec3(1, 0, 0)}}
	col.Set(p)
	col.SetAttribute("a", 1)

	c := col.CloneShallow()
	got, _ := data.Lookup[*data.Particles](c, data.ParticlesName)
	assert.Same(t, p, got, "objects are shared")

	c.SetAttribute("a", 2)
	assert.Equal(t, 1, col.Attributes["a"], "attributes are copied")
}

func TestMakeMutableDeepCopies(t *testing.T) {
	col := data.NewCollection()
	col.Set(&data.Particles{
		Positions: []math32.Vector3{math32.Vec3(1, 0, 0)},
		Selection: []bool{true},
	})

	c := col.CloneShallow()
	mut := c.MakeMutable(data.ParticlesName).(*data.Particles)
	mut.Positions[0] = math32.Vec3(9, 9, 9)
	mut.Selection[0] = false

	orig, _ := data.Lookup[*data.Particles](col, data.ParticlesName)
	assert.Equal(t, math32.Vec3(1, 0, 0), orig.Positions[0])
	assert.True(t, orig.Selection[0])
}
