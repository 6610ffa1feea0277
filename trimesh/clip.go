// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

import (
	"cogentcore.org/core/math32"
)

// ClipAtPlane cuts the mesh at the given plane and returns the part on
// the negative side. Faces crossing the plane are split; the cut edges
// produced by the split are marked invisible. Vertex colors, face
// colors, normals, materials and smoothing groups are carried over,
// with colors and normals interpolated at the cut points.
func (m *Mesh) ClipAtPlane(plane Plane) *Mesh {
	out := NewMesh()

	cls := make([]int, len(m.Vertices))
	for i, v := range m.Vertices {
		cls[i] = plane.ClassifyPoint(v)
	}

	// Kept original vertices are copied on first use.
	vmap := make([]int32, len(m.Vertices))
	for i := range vmap {
		vmap[i] = -1
	}
	mapVertex := func(i int32) int32 {
		if vmap[i] < 0 {
			vmap[i] = int32(out.AddVertex(m.Vertices[i]))
			if m.HasVertexColors() {
				out.VertexColors = append(out.VertexColors, m.VertexColors[i])
			}
		}
		return vmap[i]
	}

	// Cut points are shared between the two faces adjacent to an edge.
	type edgeKey struct{ a, b int32 }
	type cutPoint struct {
		index int32
		t     float32
	}
	cuts := make(map[edgeKey]cutPoint)
	cutVertex := func(a, b int32) cutPoint {
		k := edgeKey{a, b}
		if k.a > k.b {
			k.a, k.b = k.b, k.a
		}
		if cp, ok := cuts[k]; ok {
			return cp
		}
		d1 := plane.PointDistance(m.Vertices[k.a])
		d2 := plane.PointDistance(m.Vertices[k.b])
		t := d1 / (d1 - d2)
		p := m.Vertices[k.a].Add(m.Vertices[k.b].Sub(m.Vertices[k.a]).MulScalar(t))
		cp := cutPoint{index: int32(out.AddVertex(p)), t: t}
		if m.HasVertexColors() {
			c1 := m.VertexColors[k.a]
			c2 := m.VertexColors[k.b]
			out.VertexColors = append(out.VertexColors, c1.Add(c2.Sub(c1).MulScalar(t)))
		}
		cuts[k] = cp
		return cp
	}

	addFace := func(fi int, v [3]int32, normals [3]math32.Vector3, e1, e2, e3 bool) {
		nf := out.AddFace(v[0], v[1], v[2])
		nf.MaterialIndex = m.Faces[fi].MaterialIndex
		nf.SmoothingGroups = m.Faces[fi].SmoothingGroups
		nf.SetEdgeVisibility(e1, e2, e3)
		if m.HasFaceColors() {
			out.FaceColors = append(out.FaceColors, m.FaceColors[fi])
		}
		if m.HasNormals() {
			out.Normals = append(out.Normals, normals[0], normals[1], normals[2])
		}
	}

	for fi := range m.Faces {
		f := &m.Faces[fi]

		// Start the walk at a vertex strictly inside the kept
		// half-space, so cut points always come in leave/enter pairs.
		start := -1
		for k := 0; k < 3; k++ {
			if cls[f.V[k]] < 0 {
				start = k
				break
			}
		}
		if start < 0 {
			// Faces lying exactly in the plane are kept with it.
			if cls[f.V[0]] <= 0 && cls[f.V[1]] <= 0 && cls[f.V[2]] <= 0 {
				v := [3]int32{mapVertex(f.V[0]), mapVertex(f.V[1]), mapVertex(f.V[2])}
				var n [3]math32.Vector3
				if m.HasNormals() {
					n = [3]math32.Vector3{m.Normals[fi*3], m.Normals[fi*3+1], m.Normals[fi*3+2]}
				}
				addFace(fi, v, n, f.IsEdgeVisible(0), f.IsEdgeVisible(1), f.IsEdgeVisible(2))
			}
			continue
		}

		// Polygon of up to 4 vertices. origEdge[i] is the face edge
		// the outgoing polygon edge runs along, or -1 for a cut edge.
		var poly [4]int32
		var polyNormal [4]math32.Vector3
		var origEdge [4]int
		n := 0
		for k := 0; k < 3; k++ {
			ci := (start + k) % 3
			ni := (start + k + 1) % 3
			c, nx := f.V[ci], f.V[ni]
			if cls[c] <= 0 {
				poly[n] = mapVertex(c)
				origEdge[n] = ci
				if m.HasNormals() {
					polyNormal[n] = m.Normals[fi*3+ci]
				}
				n++
			}
			if (cls[c] < 0 && cls[nx] > 0) || (cls[c] > 0 && cls[nx] < 0) {
				cp := cutVertex(c, nx)
				poly[n] = cp.index
				if cls[c] < 0 {
					origEdge[n] = -1 // leaving; the next edge runs along the plane
				} else {
					origEdge[n] = ci
				}
				if m.HasNormals() {
					n1 := m.Normals[fi*3+ci]
					n2 := m.Normals[fi*3+ni]
					t := cp.t
					if c > nx {
						// The cut was parameterized on the sorted
						// edge; flip for this traversal direction.
						t = 1 - t
					}
					polyNormal[n] = n1.Add(n2.Sub(n1).MulScalar(t))
				}
				n++
			}
		}

		vis := func(i int) bool {
			return origEdge[i] >= 0 && f.IsEdgeVisible(origEdge[i])
		}
		switch n {
		case 3:
			addFace(fi, [3]int32{poly[0], poly[1], poly[2]},
				[3]math32.Vector3{polyNormal[0], polyNormal[1], polyNormal[2]},
				vis(0), vis(1), vis(2))
		case 4:
			addFace(fi, [3]int32{poly[0], poly[1], poly[2]},
				[3]math32.Vector3{polyNormal[0], polyNormal[1], polyNormal[2]},
				vis(0), vis(1), false)
			addFace(fi, [3]int32{poly[0], poly[2], poly[3]},
				[3]math32.Vector3{polyNormal[0], polyNormal[2], polyNormal[3]},
				false, vis(2), vis(3))
		}
	}
	return out
}
