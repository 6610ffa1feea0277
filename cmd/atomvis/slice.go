// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/spf13/cobra"

	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/modify"
)

func newSliceCmd(opts *rootOptions) *cobra.Command {
	var (
		output   string
		normal   string
		distance float64
		inverse  bool
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "slice <input.obj>",
		Short: "Cut a triangle mesh file at a plane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			cfg := opts.config.Slice
			if cmd.Flags().Changed("normal") {
				n, err := parseVec3(normal)
				if err != nil {
					return fmt.Errorf("--normal: %w", err)
				}
				cfg.Normal = n
			}
			if cmd.Flags().Changed("distance") {
				cfg.Distance = float32(distance)
			}
			if cmd.Flags().Changed("inverse") {
				cfg.Inverse = inverse
			}
			job := func(ctx context.Context) error {
				return runSlice(ctx, input, output, cfg)
			}
			if watch {
				return watchAndRun(cmd.Context(), input, job)
			}
			return job(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "sliced.obj", "output mesh file (.vtk or .obj)")
	cmd.Flags().StringVarP(&normal, "normal", "n", "0,0,1", "plane normal as x,y,z")
	cmd.Flags().Float64VarP(&distance, "distance", "d", 0, "plane distance from the origin along the normal")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "keep the opposite side of the plane")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run whenever the input file changes")
	return cmd
}

func runSlice(ctx context.Context, input, output string, cfg SliceConfig) error {
	mesh, err := readOBJ(input)
	if err != nil {
		return err
	}
	slog.Info("read mesh file", "path", input, "faces", mesh.FaceCount())

	col := data.NewCollection()
	col.Set(&data.TriMeshObject{Mesh: mesh})

	mod := modify.NewSliceModifier(data.TriMeshName)
	mod.Normal = math32.Vec3(cfg.Normal[0], cfg.Normal[1], cfg.Normal[2])
	mod.Distance = cfg.Distance
	mod.Inverse = cfg.Inverse
	state, err := evaluateBatch(ctx, col, mod)
	if err != nil {
		return err
	}

	obj, ok := data.Lookup[*data.TriMeshObject](state.Data(), data.TriMeshName)
	if !ok || obj.Mesh == nil {
		return errors.New("pipeline produced no mesh")
	}
	return writeMeshFile(output, obj.Mesh)
}

func parseVec3(s string) ([3]float32, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return [3]float32{}, fmt.Errorf("want 3 comma-separated values, got %q", s)
	}
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return [3]float32{}, err
		}
		out[i] = float32(v)
	}
	if out == ([3]float32{}) {
		return out, errors.New("normal must be non-zero")
	}
	return out, nil
}
