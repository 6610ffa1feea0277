// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/modify"
	"github.com/atomvis/atomvis/pipeline"
)

func newSurfaceCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		radius float64
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "surface <input.xyz>",
		Short: "Construct an alpha-shape surface mesh from a particle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if !cmd.Flags().Changed("radius") {
				radius = opts.config.Surface.Radius
			}
			job := func(ctx context.Context) error {
				return runSurface(ctx, input, output, radius)
			}
			if watch {
				return watchAndRun(cmd.Context(), input, job)
			}
			return job(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "surface.vtk", "output mesh file (.vtk or .obj)")
	cmd.Flags().Float64VarP(&radius, "radius", "r", DefaultConfig().Surface.Radius, "probe sphere radius")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run whenever the input file changes")
	return cmd
}

func runSurface(ctx context.Context, input, output string, radius float64) error {
	col, err := readXYZ(input)
	if err != nil {
		return err
	}
	particles, _ := data.Lookup[*data.Particles](col, data.ParticlesName)
	slog.Info("read particle file", "path", input, "particles", particles.Count())

	mod := modify.NewConstructSurfaceModifier()
	mod.Radius = radius
	state, err := evaluateBatch(ctx, col, mod)
	if err != nil {
		return err
	}

	meshObj, ok := data.Lookup[*data.SurfaceMeshObject](state.Data(), data.SurfaceMeshName)
	if !ok {
		return errors.New("pipeline produced no surface mesh")
	}
	mesh := meshObj.Mesh.ConvertToTriMesh()
	slog.Info("constructed surface",
		"faces", mesh.FaceCount(),
		"area", state.Data().Attributes[modify.SurfaceAreaAttribute])

	return writeMeshFile(output, mesh)
}

// evaluateBatch runs a single modifier over a static collection and
// applies batch error semantics: an error status aborts the job.
func evaluateBatch(ctx context.Context, col *data.Collection, mod pipeline.Modifier) (pipeline.FlowState, error) {
	src := pipeline.NewStaticSource(col)
	app := pipeline.NewModifierApplication(mod, src)
	req := pipeline.NewRequest(0)
	req.Context = ctx
	req.BreakOnError = true
	state, err := app.Evaluate(req).Result()
	if err != nil {
		return pipeline.FlowState{}, err
	}
	if st := state.Status(); st.Type == pipeline.StatusError {
		return pipeline.FlowState{}, fmt.Errorf("pipeline failed: %s", st.Text)
	} else if st.Text != "" {
		slog.Info("pipeline finished", "status", st.Text)
	}
	return state, nil
}
