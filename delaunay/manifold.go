// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/atomvis/atomvis/surface"
)

// ExteriorRegion is the region id of empty space.
const ExteriorRegion int32 = 0

// ErrCellTooSmall is reported when an interface facet wraps around a
// periodic boundary more than once, i.e. the structure is too large
// for the simulation cell.
var ErrCellTooSmall = errors.New("cannot construct manifold: simulation cell length is too small for the surface geometry")

// ErrOppositeEdgeNotFound indicates an inconsistent tessellation where
// an interface facet edge has no matching neighbor.
var ErrOppositeEdgeNotFound = errors.New("cannot construct manifold: opposite half-edge not found")

// ManifoldOptions configures [ConstructManifold].
type ManifoldOptions struct {

	// Alpha is the probe sphere radius of the alpha-shape criterion:
	// tetrahedra with a smaller circumradius count as solid.
	Alpha float64

	// CellRegion assigns a region id (> 0) to a solid tessellation
	// cell. When nil all solid cells belong to region 1.
	CellRegion func(cellIdx int32) int32

	// FlipOrientation inverts the orientation of the generated faces.
	FlipOrientation bool

	// TwoSided additionally generates a second, mirrored manifold for
	// facets bordering the exterior region.
	TwoSided bool

	// PrepareVertex is called once for each created mesh vertex with
	// the input particle index it was created from.
	PrepareVertex func(particleIndex int, vertex surface.Index)

	// PrepareFace is called for each created face with the
	// tessellation cell it borders.
	PrepareFace func(cellIdx int32, face surface.Index)

	// LinkManifolds is called for each pair of corresponding
	// half-edges of the inner and the mirrored manifold in two-sided
	// mode.
	LinkManifolds func(innerEdge, mirrorEdge surface.Index)
}

// manifoldBuilder carries the intermediate state of the three
// construction phases.
type manifoldBuilder struct {
	tess *Tessellation
	mesh *surface.Mesh
	opts ManifoldOptions

	regions []int32

	// vertexMap maps input particle indices to mesh vertices, so
	// ghost images share the vertex of their primary particle.
	vertexMap map[int]surface.Index

	// tetFaces holds, per interior cell index, the mesh face created
	// for each of the cell's four facets.
	tetFaces [][4]surface.Index

	// faceLookup resolves facets of ghost cells to the face created
	// for the primary image, keyed by the facet's particle index
	// triple in canonical cyclic order.
	faceLookup map[[3]int32]surface.Index

	// mirrorFaces maps each inner face to its two-sided partner.
	mirrorFaces map[surface.Index]surface.Index
}

// ConstructManifold builds a closed manifold surface mesh separating
// the spatial regions of the tessellation, classified by the
// alpha-shape criterion. The mesh must be empty.
func ConstructManifold(ctx context.Context, tess *Tessellation, mesh *surface.Mesh, opts ManifoldOptions) error {
	b := &manifoldBuilder{
		tess:        tess,
		mesh:        mesh,
		opts:        opts,
		regions:     make([]int32, len(tess.Tets)),
		vertexMap:   make(map[int]surface.Index),
		faceLookup:  make(map[[3]int32]surface.Index),
		mirrorFaces: make(map[surface.Index]surface.Index),
	}
	if err := b.classifyTetrahedra(ctx); err != nil {
		return err
	}
	if err := b.createInterfaceFacets(ctx); err != nil {
		return err
	}
	return b.linkHalfedges(ctx)
}

// classifyTetrahedra assigns a region to every tessellation cell and
// numbers the interior cells. If all of space is solid and of one
// region, the mesh is marked space filling.
func (b *manifoldBuilder) classifyTetrahedra(ctx context.Context) error {
	tets := b.tess.Tets
	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(tets) + runtime.GOMAXPROCS(0) - 1) / runtime.GOMAXPROCS(0)
	if chunk < 1 {
		chunk = 1
	}
	for begin := 0; begin < len(tets); begin += chunk {
		begin := begin
		end := min(begin+chunk, len(tets))
		g.Go(func() error {
			for ci := begin; ci < end; ci++ {
				if ci%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				region := ExteriorRegion
				if !tets[ci].Infinite && b.tess.AlphaTest(int32(ci), b.opts.Alpha) {
					if b.opts.CellRegion != nil {
						region = b.opts.CellRegion(int32(ci))
					} else {
						region = 1
					}
				}
				b.regions[ci] = region
				tets[ci].Region = region
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Number interior cells and take the space-filling consensus over
	// non-ghost cells. Ghost cells do not vote.
	spaceFilling := int32(-1)
	numInterior := int32(0)
	for ci := range tets {
		tets[ci].Index = -1
		if tets[ci].Ghost {
			continue
		}
		if b.regions[ci] != ExteriorRegion {
			tets[ci].Index = numInterior
			numInterior++
		}
		switch spaceFilling {
		case -1:
			spaceFilling = b.regions[ci]
		case b.regions[ci]:
		default:
			spaceFilling = -2
		}
	}
	b.tetFaces = make([][4]surface.Index, numInterior)
	for i := range b.tetFaces {
		b.tetFaces[i] = [4]surface.Index{surface.InvalidIndex, surface.InvalidIndex, surface.InvalidIndex, surface.InvalidIndex}
	}
	if spaceFilling > 0 {
		b.mesh.SpaceFillingRegion = spaceFilling
	}
	return nil
}

// facetParticles returns the particle index triple of a cell facet in
// canonical cyclic order (rotated so the smallest index comes first).
func (b *manifoldBuilder) facetParticles(cellIdx int32, f int) [3]int32 {
	var p [3]int32
	for v := 0; v < 3; v++ {
		p[v] = int32(b.tess.VertexParticle(b.tess.CellVertex(cellIdx, CellFacetVertexIndex(f, v))))
	}
	minAt := 0
	if p[1] < p[minAt] {
		minAt = 1
	}
	if p[2] < p[minAt] {
		minAt = 2
	}
	return [3]int32{p[minAt], p[(minAt+1)%3], p[(minAt+2)%3]}
}

// meshVertex returns the mesh vertex of the input particle, creating
// it at the particle's primary position on first use.
func (b *manifoldBuilder) meshVertex(particle int) surface.Index {
	if v, ok := b.vertexMap[particle]; ok {
		return v
	}
	v := b.mesh.CreateVertex(b.tess.Verts[particle].Pos)
	b.vertexMap[particle] = v
	if b.opts.PrepareVertex != nil {
		b.opts.PrepareVertex(particle, v)
	}
	return v
}

// createInterfaceFacets generates one mesh face for every facet of a
// solid non-ghost cell whose neighbor cell belongs to a different
// region.
func (b *manifoldBuilder) createInterfaceFacets(ctx context.Context) error {
	for ci := range b.tess.Tets {
		if ci%1024 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		tet := &b.tess.Tets[ci]
		if tet.Ghost || b.regions[ci] == ExteriorRegion {
			continue
		}
		for f := 0; f < 4; f++ {
			if b.neighborRegion(int32(ci), f) == b.regions[ci] {
				continue
			}

			// A facet spanning more than half the periodic cell means
			// the mesh would wrap onto itself.
			for k := 0; k < 3; k++ {
				a := b.tess.CellVertex(int32(ci), CellFacetVertexIndex(f, k))
				c := b.tess.CellVertex(int32(ci), CellFacetVertexIndex(f, (k+1)%3))
				ev := b.tess.VertexPos(c).Sub(b.tess.VertexPos(a))
				if b.mesh.Cell.IsWrappedVector(ev) {
					return ErrCellTooSmall
				}
			}

			var fv [3]surface.Index
			var particles [3]int
			for v := 0; v < 3; v++ {
				order := v
				if !b.opts.FlipOrientation {
					order = 2 - v
				}
				tv := b.tess.CellVertex(int32(ci), CellFacetVertexIndex(f, order))
				particles[v] = b.tess.VertexParticle(tv)
				fv[v] = b.meshVertex(particles[v])
			}
			face := b.mesh.CreateFace(fv[0], fv[1], fv[2])
			b.mesh.Faces[face].Region = b.regions[ci]
			if b.opts.PrepareFace != nil {
				b.opts.PrepareFace(int32(ci), face)
			}
			if tet.Index >= 0 {
				b.tetFaces[tet.Index][f] = face
			}
			b.faceLookup[b.facetParticles(int32(ci), f)] = face

			if b.opts.TwoSided && b.neighborRegion(int32(ci), f) == ExteriorRegion {
				mirror := b.mesh.CreateFace(fv[2], fv[1], fv[0])
				b.mesh.Faces[mirror].Region = ExteriorRegion
				b.mesh.Faces[face].OppositeFace = mirror
				b.mesh.Faces[mirror].OppositeFace = face
				b.mirrorFaces[face] = mirror
			}
		}
	}
	return nil
}

// neighborRegion returns the region of the cell across facet f,
// treating the tessellation boundary as exterior.
func (b *manifoldBuilder) neighborRegion(cellIdx int32, f int) int32 {
	n, _ := b.tess.MirrorFacet(cellIdx, f)
	if n < 0 {
		return ExteriorRegion
	}
	return b.regions[n]
}

// otherEdgeFacet returns the facet of the cell that contains both
// tessellation vertices a and b and is not the excluded facet. Every
// cell has exactly two facets containing a given edge.
func (b *manifoldBuilder) otherEdgeFacet(cellIdx int32, a, c int32, exclude int) int {
	for f := 0; f < 4; f++ {
		if f == exclude {
			continue
		}
		hasA, hasC := false, false
		for v := 0; v < 3; v++ {
			tv := b.tess.CellVertex(cellIdx, CellFacetVertexIndex(f, v))
			if tv == a {
				hasA = true
			} else if tv == c {
				hasC = true
			}
		}
		if hasA && hasC {
			return f
		}
	}
	return -1
}

// cellFace returns the mesh face created for the given cell facet,
// resolving ghost cells through the particle triple of the facet.
func (b *manifoldBuilder) cellFace(cellIdx int32, f int) surface.Index {
	if idx := b.tess.Tets[cellIdx].Index; idx >= 0 {
		return b.tetFaces[idx][f]
	}
	if face, ok := b.faceLookup[b.facetParticles(cellIdx, f)]; ok {
		return face
	}
	return surface.InvalidIndex
}

// findAdjacentFace rotates around the facet edge (a, c) through the
// solid cells of the facet's region until a boundary facet is reached;
// the face created for that facet carries the matching half-edge.
func (b *manifoldBuilder) findAdjacentFace(cellIdx int32, f int, a, c int32) surface.Index {
	region := b.regions[cellIdx]
	h := b.otherEdgeFacet(cellIdx, a, c, f)
	if h < 0 {
		return surface.InvalidIndex
	}
	// The walk visits each cell around the edge at most once; the cap
	// guards against inconsistent neighbor links.
	for iter := 0; iter < len(b.tess.Tets)+4; iter++ {
		if b.neighborRegion(cellIdx, h) != region {
			return b.cellFace(cellIdx, h)
		}
		next, hIn := b.tess.MirrorFacet(cellIdx, h)
		cellIdx = next
		h = b.otherEdgeFacet(cellIdx, a, c, hIn)
		if h < 0 {
			return surface.InvalidIndex
		}
	}
	return surface.InvalidIndex
}

// faceEdge returns the half-edge of the given face running from v1 to
// v2, or InvalidIndex.
func (b *manifoldBuilder) faceEdge(face surface.Index, v1, v2 surface.Index) surface.Index {
	start := b.mesh.Faces[face].FirstEdge
	for e := start; ; {
		ed := &b.mesh.Edges[e]
		if ed.Vertex1 == v1 && ed.Vertex2 == v2 {
			return e
		}
		e = ed.NextFaceEdge
		if e == start {
			return surface.InvalidIndex
		}
	}
}

// linkHalfedges pairs up the half-edges of adjacent interface faces to
// form closed manifolds, including the mirrored manifold in two-sided
// mode.
func (b *manifoldBuilder) linkHalfedges(ctx context.Context) error {
	for ci := range b.tess.Tets {
		if ci%1024 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		tet := &b.tess.Tets[ci]
		if tet.Index < 0 {
			continue
		}
		for f := 0; f < 4; f++ {
			face := b.tetFaces[tet.Index][f]
			if face == surface.InvalidIndex {
				continue
			}
			for k := 0; k < 3; k++ {
				ka, kc := k, (k+1)%3
				if !b.opts.FlipOrientation {
					ka, kc = 2-k, 2-(k+1)%3
				}
				ta := b.tess.CellVertex(int32(ci), CellFacetVertexIndex(f, ka))
				tc := b.tess.CellVertex(int32(ci), CellFacetVertexIndex(f, kc))
				v1 := b.vertexMap[b.tess.VertexParticle(ta)]
				v2 := b.vertexMap[b.tess.VertexParticle(tc)]
				edge := b.faceEdge(face, v1, v2)
				if edge == surface.InvalidIndex {
					return ErrOppositeEdgeNotFound
				}
				if b.mesh.Edges[edge].Opposite != surface.InvalidIndex {
					continue
				}
				adjacent := b.findAdjacentFace(int32(ci), f, ta, tc)
				if adjacent == surface.InvalidIndex {
					return ErrOppositeEdgeNotFound
				}
				opposite := b.faceEdge(adjacent, v2, v1)
				if opposite == surface.InvalidIndex {
					return ErrOppositeEdgeNotFound
				}
				b.mesh.LinkOppositeEdges(edge, opposite)

				// The mirrored manifold is stitched alongside, with
				// edge directions reversed.
				m1, ok1 := b.mirrorFaces[face]
				m2, ok2 := b.mirrorFaces[adjacent]
				if ok1 && ok2 {
					me1 := b.faceEdge(m1, v2, v1)
					me2 := b.faceEdge(m2, v1, v2)
					if me1 == surface.InvalidIndex || me2 == surface.InvalidIndex {
						return ErrOppositeEdgeNotFound
					}
					b.mesh.LinkOppositeEdges(me1, me2)
					if b.opts.LinkManifolds != nil {
						b.opts.LinkManifolds(edge, me1)
						b.opts.LinkManifolds(opposite, me2)
					}
				}
			}
		}
	}
	if !b.mesh.IsClosed() {
		return ErrOppositeEdgeNotFound
	}
	return nil
}
