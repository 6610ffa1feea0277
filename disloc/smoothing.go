// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disloc

import (
	"context"

	"cogentcore.org/core/math32"
)

// SmoothLines reduces the point density of all lines to roughly one
// point per linePointInterval core widths and then applies
// smoothingLevel iterations of shrinkage-free smoothing. Line
// endpoints at junctions are kept fixed.
func (n *Network) SmoothLines(ctx context.Context, smoothingLevel int, linePointInterval float64) error {
	for i, s := range n.Segments {
		if i%16 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		line, core := coarsenLine(linePointInterval, s.Line, s.CoreSize,
			s.IsClosedLoop(), s.IsInfiniteLine())
		smoothLine(smoothingLevel, line, s.IsClosedLoop())
		s.Line = line
		s.CoreSize = core
	}
	return nil
}

// coarsenLine clusters consecutive line points into weighted centroids
// so that the output spacing is about linePointInterval times the
// local core size. Open lines keep their exact endpoints and endpoint
// core sizes; closed loops keep at least four points.
func coarsenLine(linePointInterval float64, line []math32.Vector3, core []int, closedLoop, infiniteLine bool) ([]math32.Vector3, []int) {
	if linePointInterval <= 0 {
		return append([]math32.Vector3(nil), line...), append([]int(nil), core...)
	}

	if infiniteLine && len(line) >= 3 {
		// A line wrapping around the periodic cell without junctions
		// may collapse to a straight segment through its center of
		// mass.
		sum := 0
		for _, c := range core[:len(core)-1] {
			sum += c
		}
		count := len(line) - 1
		if float64(sum)*linePointInterval > float64(count*count) {
			var com math32.Vector3
			for _, p := range line[:count] {
				com = com.Add(p.Sub(line[0]))
			}
			com = com.DivScalar(float32(count))
			avg := sum / count
			return []math32.Vector3{line[0].Add(com), line[len(line)-1].Add(com)}, []int{avg, avg}
		}
	}

	n := len(line)
	if n < 4 {
		return append([]math32.Vector3(nil), line...), append([]int(nil), core...)
	}

	var out []math32.Vector3
	var outCore []int

	// Junction and dangling endpoints must not move.
	if !closedLoop {
		out = append(out, line[0])
		outCore = append(outCore, core[0])
	}

	minNumPoints := 2
	if line[0].Sub(line[n-1]).LengthSquared() < 1e-12 {
		// Two points do not make a proper loop.
		minNumPoints = 4
	}

	// Average over half an interval at the head and half an interval at
	// the tail. For a closed loop these form a single cluster spanning
	// the seam, so both copies of the seam point move together.
	i := 0
	count, sum := 0, 0
	var com math32.Vector3
	for {
		sum += core[i]
		com = com.Add(line[i].Sub(line[0]))
		count++
		i++
		if !(2*count*count < int(linePointInterval*float64(sum)) && count+1 < n/minNumPoints/2) {
			break
		}
	}

	j := n - 1
	for count*count < int(linePointInterval*float64(sum)) && count < n/minNumPoints {
		sum += core[j]
		com = com.Add(line[j].Sub(line[n-1]))
		count++
		j--
	}

	if closedLoop {
		out = append(out, line[0].Add(com.DivScalar(float32(count))))
		outCore = append(outCore, sum/count)
	}

	for i < j {
		csum, ccount := 0, 0
		var ccom math32.Vector3
		for {
			csum += core[i]
			ccom = ccom.Add(line[i])
			ccount++
			i++
			if !(ccount*ccount < int(linePointInterval*float64(csum)) && ccount+1 < n/minNumPoints && i != j) {
				break
			}
		}
		out = append(out, ccom.DivScalar(float32(ccount)))
		outCore = append(outCore, csum/ccount)
	}

	if !closedLoop {
		out = append(out, line[n-1])
		outCore = append(outCore, core[n-1])
	} else {
		out = append(out, line[n-1].Add(com.DivScalar(float32(count))))
		outCore = append(outCore, sum/count)
	}
	return out, outCore
}

// smoothLine applies the given number of iterations of Taubin
// shrinkage-free smoothing to the line in place. Short lines and tight
// loops are left untouched; the endpoints of open lines never move.
func smoothLine(smoothingLevel int, line []math32.Vector3, closedLoop bool) {
	if smoothingLevel <= 0 || len(line) <= 2 {
		return
	}
	if closedLoop && len(line) <= 4 {
		return
	}
	const kPB = 0.1
	const lambda = 0.5
	const mu = 1 / (kPB - 1/lambda)
	for iter := 0; iter < smoothingLevel; iter++ {
		smoothIteration(line, lambda, closedLoop)
		smoothIteration(line, mu, closedLoop)
	}
}

func smoothIteration(line []math32.Vector3, prefactor float32, closedLoop bool) {
	n := len(line)
	laplacians := make([]math32.Vector3, n)
	if closedLoop {
		laplacians[0] = line[n-2].Sub(line[n-3]).Add(line[1].Sub(line[0])).MulScalar(0.5)
	}
	for i := 1; i < n-1; i++ {
		laplacians[i] = line[i-1].Sub(line[i]).Add(line[i+1].Sub(line[i])).MulScalar(0.5)
	}
	laplacians[n-1] = laplacians[0]
	for i := range line {
		line[i] = line[i].Add(laplacians[i].MulScalar(prefactor))
	}
}
