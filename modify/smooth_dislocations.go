// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modify

import (
	"errors"
	"fmt"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/pipeline"
)

// SmoothDislocationsModifier coarsens and smooths the lines of a
// dislocation network, removing the stair-step artifacts of the
// tracing that produced them.
type SmoothDislocationsModifier struct {
	pipeline.ModifierBase

	// SmoothingLevel is the number of smoothing iterations.
	SmoothingLevel int

	// LinePointInterval controls the output point spacing in
	// multiples of the local dislocation core size.
	LinePointInterval float64
}

// NewSmoothDislocationsModifier returns the modifier with default
// parameters.
func NewSmoothDislocationsModifier() *SmoothDislocationsModifier {
	m := &SmoothDislocationsModifier{SmoothingLevel: 1, LinePointInterval: 2.5}
	m.TitleText = "Smooth dislocations"
	return m
}

func (m *SmoothDislocationsModifier) IsApplicableTo(input pipeline.FlowState) bool {
	_, ok := data.Lookup[*data.DislocationsObject](input.Data(), data.DislocationsName)
	return ok
}

func (m *SmoothDislocationsModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	out, err := m.apply(req, input)
	if err != nil {
		return pipeline.FailedFuture(err)
	}
	return pipeline.StateFuture(out)
}

func (m *SmoothDislocationsModifier) apply(req pipeline.Request, input pipeline.FlowState) (pipeline.FlowState, error) {
	if _, ok := data.Lookup[*data.DislocationsObject](input.Data(), data.DislocationsName); !ok {
		return pipeline.FlowState{}, errors.New("smooth dislocations: input contains no dislocation lines")
	}
	state := input
	obj := state.MutableData().MakeMutable(data.DislocationsName).(*data.DislocationsObject)
	if err := obj.Network.SmoothLines(req.Context, m.SmoothingLevel, m.LinePointInterval); err != nil {
		return pipeline.FlowState{}, err
	}
	state.SetStatus(state.Status().Merge(pipeline.Status{
		Type: pipeline.StatusSuccess,
		Text: fmt.Sprintf("Smoothed %d dislocation lines.", len(obj.Network.Segments)),
	}))
	return state, nil
}

func (m *SmoothDislocationsModifier) EvaluateSynchronous(t anim.Time, app *pipeline.ModifierApplication, input pipeline.FlowState) pipeline.FlowState {
	req := pipeline.NewRequest(t)
	out, err := m.apply(req, input)
	if err != nil {
		return input
	}
	return out
}
