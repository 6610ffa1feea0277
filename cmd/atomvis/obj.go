// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/trimesh"
)

// readOBJ parses the vertex and face statements of a Wavefront OBJ
// file. Polygonal faces are fan-triangulated; texture and normal
// indices are ignored.
func readOBJ(path string) (*trimesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := trimesh.NewMesh()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: malformed vertex", path, line)
			}
			var p math32.Vector3
			for k, dst := range []*float32{&p.X, &p.Y, &p.Z} {
				v, err := strconv.ParseFloat(fields[k+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: malformed vertex: %w", path, line, err)
				}
				*dst = float32(v)
			}
			m.AddVertex(p)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: face needs at least 3 vertices", path, line)
			}
			idx := make([]int32, 0, len(fields)-1)
			for _, fv := range fields[1:] {
				// "i", "i/j", "i/j/k" and "i//k" all start with the
				// vertex index.
				s, _, _ := strings.Cut(fv, "/")
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: malformed face index %q", path, line, fv)
				}
				if v < 0 {
					v += len(m.Vertices) + 1
				}
				if v < 1 || v > len(m.Vertices) {
					return nil, fmt.Errorf("%s:%d: face index %d out of range", path, line, v)
				}
				idx = append(idx, int32(v-1))
			}
			for i := 1; i+1 < len(idx); i++ {
				m.AddFace(idx[0], idx[i], idx[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
