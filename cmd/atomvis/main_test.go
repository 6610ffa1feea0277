// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/trimesh"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadXYZWithLattice(t *testing.T) {
	path := writeFile(t, "in.xyz", `2
Lattice="10 0 0 0 10 0 0 0 10" Properties=species:S:1:pos:R:3
Cu 1 2 3
Cu 4.5 5 6
`)
	col, err := readXYZ(path)
	require.NoError(t, err)

	particles, ok := data.Lookup[*data.Particles](col, data.ParticlesName)
	require.True(t, ok)
	require.Len(t, particles.Positions, 2)
	assert.Equal(t, math32.Vec3(4.5, 5, 6), particles.Positions[1])

	cellObj, ok := data.Lookup[*data.SimulationCellObject](col, data.CellName)
	require.True(t, ok)
	assert.Equal(t, math32.Vec3(10, 0, 0), cellObj.Cell.Axes[0])
	assert.True(t, cellObj.Cell.Periodic[0])
}

func TestReadXYZBoundingBoxCell(t *testing.T) {
	path := writeFile(t, "in.xyz", `2
plain xyz
1 1 1
3 5 9
`)
	col, err := readXYZ(path)
	require.NoError(t, err)
	cellObj, _ := data.Lookup[*data.SimulationCellObject](col, data.CellName)
	assert.Equal(t, math32.Vec3(1, 1, 1), cellObj.Cell.Origin)
	assert.Equal(t, math32.Vec3(2, 0, 0), cellObj.Cell.Axes[0])
	assert.False(t, cellObj.Cell.Periodic[0])
}

func TestReadXYZTruncated(t *testing.T) {
	path := writeFile(t, "in.xyz", "3\ncomment\n1 2 3\n")
	_, err := readXYZ(path)
	assert.ErrorContains(t, err, "expected 3 atoms")
}

func TestReadOBJ(t *testing.T) {
	path := writeFile(t, "in.obj", `# comment
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1/1/1 2/2/2 3/3/3 4/4/4
`)
	m, err := readOBJ(path)
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, 2, m.FaceCount(), "quad is fan-triangulated")
	assert.Equal(t, [3]int32{0, 2, 3}, m.Faces[1].V)
}

func TestReadOBJRejectsBadIndex(t *testing.T) {
	path := writeFile(t, "in.obj", "v 0 0 0\nf 1 2 3\n")
	_, err := readOBJ(path)
	assert.ErrorContains(t, err, "out of range")
}

func TestParseVec3(t *testing.T) {
	v, err := parseVec3("1, 0,0.5")
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 0, 0.5}, v)

	_, err = parseVec3("1,2")
	assert.Error(t, err)
	_, err = parseVec3("0,0,0")
	assert.Error(t, err)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "cfg.toml", "[surface]\nradius = 2.5\n\n[slice]\nnormal = [1, 0, 0]\ninverse = true\n")
	cfg := DefaultConfig()
	require.NoError(t, LoadConfig(path, &cfg))
	assert.Equal(t, 2.5, cfg.Surface.Radius)
	assert.Equal(t, [3]float32{1, 0, 0}, cfg.Slice.Normal)
	assert.True(t, cfg.Slice.Inverse)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "surface:\n  radius: 1.5\nslice:\n  distance: 3\n")
	cfg := DefaultConfig()
	require.NoError(t, LoadConfig(path, &cfg))
	assert.Equal(t, 1.5, cfg.Surface.Radius)
	assert.Equal(t, float32(3), cfg.Slice.Distance)
	assert.Equal(t, [3]float32{0, 0, 1}, cfg.Slice.Normal, "defaults survive a partial file")
}

func TestLoadConfigUnknownExtension(t *testing.T) {
	path := writeFile(t, "cfg.ini", "radius=1")
	cfg := DefaultConfig()
	assert.ErrorContains(t, LoadConfig(path, &cfg), "unsupported config format")
}

func TestWriteMeshFileByExtension(t *testing.T) {
	m := trimesh.NewMesh()
	m.AddVertex(math32.Vec3(0, 0, 0))
	m.AddVertex(math32.Vec3(1, 0, 0))
	m.AddVertex(math32.Vec3(0, 1, 0))
	m.AddFace(0, 1, 2)

	dir := t.TempDir()
	objPath := filepath.Join(dir, "out.obj")
	require.NoError(t, writeMeshFile(objPath, m))
	b, err := os.ReadFile(objPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "f 1 2 3")

	err = writeMeshFile(filepath.Join(dir, "out.stl"), m)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestRunSurfaceEndToEnd(t *testing.T) {
	var xyz strings.Builder
	xyz.WriteString("64\n")
	xyz.WriteString(`Lattice="8 0 0 0 8 0 0 0 8"` + "\n")
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				fmt.Fprintf(&xyz, "Cu %d %d %d\n", x*2, y*2, z*2)
			}
		}
	}
	input := writeFile(t, "lattice.xyz", xyz.String())
	output := filepath.Join(t.TempDir(), "out.vtk")

	require.NoError(t, runSurface(context.Background(), input, output, 2))

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(b), "DATASET UNSTRUCTURED_GRID")
}

func TestRunSliceEndToEnd(t *testing.T) {
	input := writeFile(t, "in.obj", `v 0 0 0
v 2 0 0
v 0 2 0
f 1 2 3
`)
	output := filepath.Join(t.TempDir(), "out.obj")
	cfg := SliceConfig{Normal: [3]float32{1, 0, 0}, Distance: 1}
	require.NoError(t, runSlice(context.Background(), input, output, cfg))

	m, err := readOBJ(output)
	require.NoError(t, err)
	assert.Equal(t, 2, m.FaceCount())
	for _, v := range m.Vertices {
		assert.LessOrEqual(t, v.X, float32(1.0001))
	}
}
