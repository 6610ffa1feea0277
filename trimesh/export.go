// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trimesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// fmtCoord formats a mesh coordinate with the shortest exact
// representation.
func fmtCoord(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// WriteVTK writes the mesh as an ASCII VTK unstructured grid of
// triangle cells.
func (m *Mesh) WriteVTK(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# vtk DataFile Version 3.0")
	fmt.Fprintln(bw, "# Triangle mesh")
	fmt.Fprintln(bw, "ASCII")
	fmt.Fprintln(bw, "DATASET UNSTRUCTURED_GRID")
	fmt.Fprintf(bw, "POINTS %d double\n", len(m.Vertices))
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "%s %s %s\n", fmtCoord(v.X), fmtCoord(v.Y), fmtCoord(v.Z))
	}
	fmt.Fprintf(bw, "\nCELLS %d %d\n", len(m.Faces), len(m.Faces)*4)
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "3 %d %d %d\n", f.V[0], f.V[1], f.V[2])
	}
	fmt.Fprintf(bw, "\nCELL_TYPES %d\n", len(m.Faces))
	for range m.Faces {
		fmt.Fprintln(bw, "5")
	}
	return bw.Flush()
}

// WriteOBJ writes the mesh in Wavefront OBJ format. Face vertex
// indices are one-based per the format.
func (m *Mesh) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Wavefront OBJ file written by Atomvis")
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", fmtCoord(v.X), fmtCoord(v.Y), fmtCoord(v.Z))
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f.V[0]+1, f.V[1]+1, f.V[2]+1)
	}
	return bw.Flush()
}
