// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
	"github.com/atomvis/atomvis/data"
)

var latticeRe = regexp.MustCompile(`Lattice="([^"]+)"`)

// readXYZ parses a (possibly extended) XYZ particle file into a data
// collection with particles and a simulation cell. If the comment line
// carries an extended-XYZ Lattice entry, the cell is periodic with the
// given vectors; otherwise it is the axis-aligned bounding box of the
// particles, non-periodic.
func readXYZ(path string) (*data.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("%s: missing atom count line", path)
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%s: invalid atom count %q", path, strings.TrimSpace(sc.Text()))
	}

	if !sc.Scan() {
		return nil, fmt.Errorf("%s: missing comment line", path)
	}
	comment := sc.Text()

	positions := make([]math32.Vector3, 0, count)
	for i := 0; i < count; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%s: expected %d atoms, got %d", path, count, i)
		}
		fields := strings.Fields(sc.Text())
		// Columns are either "x y z" or "symbol x y z ...".
		if len(fields) >= 4 {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%s: malformed atom line %d", path, i+3)
		}
		var p math32.Vector3
		for k, dst := range []*float32{&p.X, &p.Y, &p.Z} {
			v, err := strconv.ParseFloat(fields[k], 32)
			if err != nil {
				return nil, fmt.Errorf("%s: malformed coordinate on line %d: %w", path, i+3, err)
			}
			*dst = float32(v)
		}
		positions = append(positions, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	c, err := cellFromComment(comment, positions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	col := data.NewCollection()
	col.Set(&data.Particles{Positions: positions})
	col.Set(&data.SimulationCellObject{Cell: c})
	return col, nil
}

func cellFromComment(comment string, positions []math32.Vector3) (cell.Cell, error) {
	if m := latticeRe.FindStringSubmatch(comment); m != nil {
		fields := strings.Fields(m[1])
		if len(fields) != 9 {
			return cell.Cell{}, fmt.Errorf("Lattice entry has %d values, want 9", len(fields))
		}
		var c cell.Cell
		for i := range c.Axes {
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[i*3+k], 32)
				if err != nil {
					return cell.Cell{}, fmt.Errorf("malformed Lattice entry: %w", err)
				}
				switch k {
				case 0:
					c.Axes[i].X = float32(v)
				case 1:
					c.Axes[i].Y = float32(v)
				case 2:
					c.Axes[i].Z = float32(v)
				}
			}
		}
		c.Periodic = [3]bool{true, true, true}
		return c, nil
	}

	var box math32.Box3
	box.SetEmpty()
	for _, p := range positions {
		box.ExpandByPoint(p)
	}
	size := box.Max.Sub(box.Min)
	c := cell.Orthogonal(size.X, size.Y, size.Z, false)
	c.Origin = box.Min
	return c, nil
}
