// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atomvis/atomvis/anim"
)

// disabledStatusText is the status shown for a modifier that is
// switched off and passes its input through.
const disabledStatusText = "Modifier is currently disabled."

// ModifierApplication is one stage of a pipeline chain: it applies a
// [Modifier] to the output of an upstream [PipelineObject] and caches
// the result. The same modifier may be referenced by applications in
// several pipelines.
type ModifierApplication struct {
	Notifier

	cache Cache

	mu       sync.Mutex
	modifier Modifier
	input    PipelineObject
	status   Status

	// numEvaluationsInProgress counts asynchronous modifier
	// evaluations currently running for this application; the status
	// reads as pending while it is nonzero.
	numEvaluationsInProgress int

	modifierObs func(Event)
}

// NewModifierApplication creates a pipeline stage applying the given
// modifier to the output of the input stage. Both may be nil and set
// later.
func NewModifierApplication(modifier Modifier, input PipelineObject) *ModifierApplication {
	app := &ModifierApplication{}
	app.modifierObs = func(ev Event) {
		switch ev.Type {
		case TargetChanged:
			app.cache.Invalidate(anim.Empty(), false)
			app.NotifyDependents(Event{Type: TargetChanged, Source: app})
		case EnabledChanged:
			app.cache.Invalidate(anim.Empty(), true)
			app.NotifyDependents(Event{Type: TargetChanged, Source: app})
			// Disabling a modifier that remaps animation frames
			// changes the effective frame count seen downstream.
			app.NotifyDependents(Event{Type: AnimationFramesChanged, Source: app})
		}
	}
	app.SetModifier(modifier)
	app.SetInput(input)
	return app
}

// Modifier returns the modifier applied by this stage.
func (app *ModifierApplication) Modifier() Modifier {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.modifier
}

// SetModifier replaces the modifier applied by this stage.
func (app *ModifierApplication) SetModifier(modifier Modifier) {
	app.mu.Lock()
	app.modifier = modifier
	app.mu.Unlock()
	if modifier != nil {
		modifier.AddDependent(app.modifierObs)
	}
	app.cache.Invalidate(anim.Empty(), true)
	app.NotifyDependents(Event{Type: TargetChanged, Source: app})
}

// Input returns the upstream pipeline stage.
func (app *ModifierApplication) Input() PipelineObject {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.input
}

// SetInput connects this stage to an upstream pipeline stage.
func (app *ModifierApplication) SetInput(input PipelineObject) {
	app.mu.Lock()
	app.input = input
	app.mu.Unlock()
	if input != nil {
		input.AddDependent(func(ev Event) {
			switch ev.Type {
			case TargetChanged:
				app.cache.Invalidate(anim.Empty(), false)
				app.NotifyDependents(Event{Type: TargetChanged, Source: app})
			case AnimationFramesChanged, PreliminaryStateAvailable:
				app.NotifyDependents(Event{Type: ev.Type, Source: app})
			}
		})
	}
	app.cache.Invalidate(anim.Empty(), true)
	app.NotifyDependents(Event{Type: TargetChanged, Source: app})
	app.NotifyDependents(Event{Type: PipelineChanged, Source: app})
}

// Status returns the outcome of the most recent evaluation of this
// stage, or a pending status while an evaluation is in progress.
func (app *ModifierApplication) Status() Status {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.numEvaluationsInProgress > 0 {
		return Status{Type: StatusPending}
	}
	return app.status
}

func (app *ModifierApplication) setStatus(status Status) {
	app.mu.Lock()
	changed := status != app.status
	app.status = status
	app.mu.Unlock()
	if changed {
		app.NotifyDependents(Event{Type: StatusChanged, Source: app})
	}
}

func (app *ModifierApplication) beginEvaluation() {
	app.mu.Lock()
	app.numEvaluationsInProgress++
	first := app.numEvaluationsInProgress == 1
	app.mu.Unlock()
	if first {
		app.NotifyDependents(Event{Type: StatusChanged, Source: app})
	}
}

func (app *ModifierApplication) endEvaluation() {
	app.mu.Lock()
	app.numEvaluationsInProgress--
	last := app.numEvaluationsInProgress == 0
	app.mu.Unlock()
	if last {
		app.NotifyDependents(Event{Type: StatusChanged, Source: app})
	}
}

// PipelineSource walks up the chain of modifier applications and
// returns the terminal data source of the pipeline.
func (app *ModifierApplication) PipelineSource() PipelineObject {
	var obj PipelineObject = app
	for {
		ma, ok := obj.(*ModifierApplication)
		if !ok {
			return obj
		}
		in := ma.Input()
		if in == nil {
			return ma
		}
		obj = in
	}
}

// Evaluate computes this stage's output at the requested time, serving
// from and filling the stage cache.
func (app *ModifierApplication) Evaluate(req Request) *Future {
	return app.cache.Evaluate(req, (*modAppStage)(app), false)
}

// EvaluateSynchronous returns an immediate, possibly preliminary,
// result for the given time.
func (app *ModifierApplication) EvaluateSynchronous(t anim.Time) FlowState {
	return app.cache.EvaluateSynchronous(t, (*modAppStage)(app))
}

// GetCachedState performs a pure cache lookup with no side effects.
func (app *ModifierApplication) GetCachedState(t anim.Time) FlowState {
	return app.cache.GetAt(t)
}

// ValidityInterval returns a preliminary validity estimate for the
// stage's output: the input estimate narrowed by the modifier's own
// validity at the requested time.
func (app *ModifierApplication) ValidityInterval(req Request) anim.Interval {
	app.mu.Lock()
	input, modifier := app.input, app.modifier
	app.mu.Unlock()
	iv := anim.Infinite()
	if input != nil {
		iv = input.ValidityInterval(req)
	}
	if modifier != nil && modifier.IsEnabled() {
		iv = iv.Intersect(modifier.ModifierValidity(req.Time))
	}
	return iv
}

// NumberOfSourceFrames reports the frame count of the upstream source.
func (app *ModifierApplication) NumberOfSourceFrames() int {
	if fs, ok := app.Input().(FrameSource); ok {
		return fs.NumberOfSourceFrames()
	}
	return 1
}

// AnimationTimeToSourceFrame maps an animation time to a source frame
// by delegating to the upstream source.
func (app *ModifierApplication) AnimationTimeToSourceFrame(t anim.Time) int {
	if fs, ok := app.Input().(FrameSource); ok {
		return fs.AnimationTimeToSourceFrame(t)
	}
	return t.Frame()
}

// SourceFrameToAnimationTime maps a source frame to its animation time
// by delegating to the upstream source.
func (app *ModifierApplication) SourceFrameToAnimationTime(frame int) anim.Time {
	if fs, ok := app.Input().(FrameSource); ok {
		return fs.SourceFrameToAnimationTime(frame)
	}
	return anim.FrameTime(frame)
}

// modAppStage adapts the application to the [Stage] contract of its
// cache.
type modAppStage ModifierApplication

func (s *modAppStage) ValidityInterval(req Request) anim.Interval {
	return (*ModifierApplication)(s).ValidityInterval(req)
}

func (s *modAppStage) EvaluateStageSynchronous(t anim.Time) FlowState {
	app := (*ModifierApplication)(s)
	app.mu.Lock()
	input, modifier := app.input, app.modifier
	app.mu.Unlock()
	var state FlowState
	if input != nil {
		state = input.EvaluateSynchronous(t)
	}
	if modifier == nil || !modifier.IsEnabled() || state.Data() == nil {
		return state
	}
	return modifier.EvaluateSynchronous(t, app, state)
}

func (s *modAppStage) EvaluateStage(req Request) *Future {
	app := (*ModifierApplication)(s)
	app.mu.Lock()
	input, modifier := app.input, app.modifier
	app.mu.Unlock()

	var inputFuture *Future
	if input != nil {
		inputFuture = input.Evaluate(req)
	} else {
		inputFuture = StateFuture(FlowState{})
	}

	return ThenFuture(inputFuture, func(state FlowState, err error) *Future {
		if err != nil {
			return FailedFuture(err)
		}
		return app.applyModifier(req, modifier, state)
	})
}

// applyModifier runs the modifier on the upstream result and performs
// the stage's status bookkeeping.
func (app *ModifierApplication) applyModifier(req Request, modifier Modifier, input FlowState) *Future {
	app.setStatus(Status{})

	// A failed upstream stage optionally short-circuits the rest of
	// the pipeline.
	if input.Status().Type == StatusError && req.BreakOnError {
		return StateFuture(input)
	}

	// Strip the status inherited from the upstream stage; this stage's
	// output should reflect its own outcome. Upstream errors stay
	// attached so they remain visible downstream.
	if input.Status().Type != StatusError {
		input.SetStatus(Status{})
	}

	if modifier == nil || input.IsEmpty() {
		return StateFuture(input)
	}
	if !modifier.IsEnabled() {
		app.setStatus(Status{Type: StatusSuccess, Text: disabledStatusText})
		return StateFuture(input)
	}

	modFuture := app.guardedEvaluate(req, modifier, input)

	// Only a still-running asynchronous evaluation flips the stage
	// into the pending state; a future that completed synchronously
	// would otherwise emit a spurious busy/idle status pair.
	pending := !modFuture.Finished()
	if pending {
		app.beginEvaluation()
	}

	return ThenFuture(modFuture, func(out FlowState, err error) *Future {
		if pending {
			app.endEvaluation()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return FailedFuture(err)
			}
			// The stage reports the error but still passes the
			// upstream data through, so downstream stages and the
			// viewport keep something to show.
			errState := NewFlowState(input.Data(), input.Validity())
			errState.SetStatus(ErrorStatus(err.Error()))
			app.setStatus(errState.Status())
			return StateFuture(errState)
		}

		out.IntersectValidity(modifier.ModifierValidity(req.Time))
		if input.Status().Type != StatusError || out.Status().Type == StatusSuccess {
			app.setStatus(out.Status())
		} else {
			app.setStatus(Status{})
		}
		return StateFuture(out)
	})
}

// guardedEvaluate invokes the modifier, converting panics during the
// synchronous part of the evaluation into a failed future.
func (app *ModifierApplication) guardedEvaluate(req Request, modifier Modifier, input FlowState) (f *Future) {
	defer func() {
		if r := recover(); r != nil {
			err := panicError(r)
			slog.Error("modifier evaluation failed", "modifier", modifier.Title(), "err", err)
			f = FailedFuture(err)
		}
	}()
	return modifier.Evaluate(req, app, input)
}

func panicError(r any) error {
	switch e := r.(type) {
	case error:
		return e
	case string:
		return errors.New(e)
	default:
		return fmt.Errorf("unexpected failure during modifier evaluation: %v", r)
	}
}
