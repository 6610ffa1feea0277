// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
)

// Request describes one pipeline evaluation: the target animation time,
// the time ranges the caller wants kept cached for stutter-free
// playback, and the cancellation context the computation observes.
type Request struct {
	// Context carries cancellation for the evaluation. Long-running
	// algorithms poll it between phases and between cells/segments.
	Context context.Context

	// Time is the animation time to evaluate the pipeline at.
	Time anim.Time

	// CacheIntervals are time ranges the caller asks the pipeline
	// caches to retain results for. A computed state whose validity
	// intersects none of them (and not Time itself) is discarded
	// instead of cached.
	CacheIntervals []anim.Interval

	// BreakOnError stops propagating data past the first erroneous
	// pipeline stage.
	BreakOnError bool
}

// NewRequest returns a request for the given animation time with a
// background context.
func NewRequest(t anim.Time) Request {
	return Request{Context: context.Background(), Time: t}
}

// PipelineObject is one stage in a pipeline chain: a data source or a
// modifier application. Stages are evaluated asynchronously and notify
// registered dependents of changes.
type PipelineObject interface {

	// Evaluate asynchronously computes the stage's output at the
	// requested time.
	Evaluate(req Request) *Future

	// EvaluateSynchronous immediately returns a, possibly preliminary,
	// result for the given time, for UI feedback. It never blocks on
	// long-running computations.
	EvaluateSynchronous(t anim.Time) FlowState

	// ValidityInterval returns a preliminary estimate of the validity
	// interval of the state that an evaluation of this request would
	// produce, available before any computation runs.
	ValidityInterval(req Request) anim.Interval

	// AddDependent registers an observer for this stage's change
	// notifications.
	AddDependent(obs Observer)
}

// FrameSource is implemented by pipeline objects that can report the
// mapping between source frames and animation times.
type FrameSource interface {

	// NumberOfSourceFrames returns how many animation frames the
	// object can provide.
	NumberOfSourceFrames() int

	// AnimationTimeToSourceFrame computes the source frame shown at
	// the given animation time.
	AnimationTimeToSourceFrame(t anim.Time) int

	// SourceFrameToAnimationTime returns the animation time at which
	// the given source frame is shown.
	SourceFrameToAnimationTime(frame int) anim.Time
}

// TransformingVis is a visual element that modifies the data on its way
// to the renderer. The scene node's pipeline cache chains one
// asynchronous transform step per enabled transforming element.
type TransformingVis interface {
	data.Vis

	// TransformData applies the element's transformation to the given
	// data object within the state.
	TransformData(ctx context.Context, obj data.Object, state FlowState) *Future
}

// Stage is the internal computation contract of a caching pipeline
// object: the [Cache] calls these to start an actual evaluation after
// cache and in-flight lookups miss.
type Stage interface {

	// ValidityInterval returns the preliminary validity estimate for
	// the request, before computation.
	ValidityInterval(req Request) anim.Interval

	// EvaluateStage starts the stage's internal computation.
	EvaluateStage(req Request) *Future

	// EvaluateStageSynchronous is the immediate, blocking counterpart
	// used by the preliminary evaluation path.
	EvaluateStageSynchronous(t anim.Time) FlowState
}

// SceneNode is the head of a pipeline chain. Its cache additionally
// applies the transforms of enabled visual elements to the output,
// which plain modifier application caches do not.
type SceneNode struct {
	Notifier

	// Pipeline is the terminal stage of the pipeline chain.
	Pipeline PipelineObject

	cache Cache
}

// NewSceneNode returns a scene node evaluating the given pipeline.
func NewSceneNode(pipeline PipelineObject) *SceneNode {
	sn := &SceneNode{Pipeline: pipeline}
	pipeline.AddDependent(func(ev Event) {
		if ev.Type == TargetChanged {
			sn.cache.Invalidate(anim.Empty(), false)
		}
		sn.NotifyDependents(ev)
	})
	return sn
}

// EvaluatePipeline computes the pipeline output at the requested time,
// including the effects of transforming visual elements.
func (sn *SceneNode) EvaluatePipeline(req Request) *Future {
	return sn.cache.Evaluate(req, (*sceneNodeStage)(sn), true)
}

// EvaluatePipelineSynchronous returns an immediate, possibly
// preliminary, pipeline result for UI feedback.
func (sn *SceneNode) EvaluatePipelineSynchronous(t anim.Time) FlowState {
	return sn.cache.EvaluateSynchronous(t, (*sceneNodeStage)(sn))
}

// GetCachedState performs a pure cache lookup with no side effects.
func (sn *SceneNode) GetCachedState(t anim.Time) FlowState {
	return sn.cache.GetAt(t)
}

// sceneNodeStage adapts the node's pipeline to the [Stage] contract.
type sceneNodeStage SceneNode

func (s *sceneNodeStage) ValidityInterval(req Request) anim.Interval {
	return s.Pipeline.ValidityInterval(req)
}

func (s *sceneNodeStage) EvaluateStage(req Request) *Future {
	return s.Pipeline.Evaluate(req)
}

func (s *sceneNodeStage) EvaluateStageSynchronous(t anim.Time) FlowState {
	return s.Pipeline.EvaluateSynchronous(t)
}

// StaticSource is a pipeline source serving a fixed data collection,
// used as the input of programmatically built pipelines.
type StaticSource struct {
	Notifier

	// Collection is the data served at every animation time.
	Collection *data.Collection

	// Frames is the number of source frames reported; zero means one.
	Frames int
}

// NewStaticSource returns a source serving the given collection.
func NewStaticSource(collection *data.Collection) *StaticSource {
	return &StaticSource{Collection: collection}
}

func (ss *StaticSource) Evaluate(req Request) *Future {
	return StateFuture(ss.EvaluateSynchronous(req.Time))
}

func (ss *StaticSource) EvaluateSynchronous(t anim.Time) FlowState {
	return NewFlowState(ss.Collection, anim.Infinite())
}

func (ss *StaticSource) ValidityInterval(req Request) anim.Interval {
	return anim.Infinite()
}

func (ss *StaticSource) NumberOfSourceFrames() int {
	if ss.Frames > 1 {
		return ss.Frames
	}
	return 1
}

func (ss *StaticSource) AnimationTimeToSourceFrame(t anim.Time) int {
	return t.Frame()
}

func (ss *StaticSource) SourceFrameToAnimationTime(frame int) anim.Time {
	return anim.FrameTime(frame)
}

// ReloadCollection replaces the served collection and notifies
// dependents that cached downstream results are stale.
func (ss *StaticSource) ReloadCollection(collection *data.Collection) {
	ss.Collection = collection
	ss.NotifyDependents(Event{Type: TargetChanged, Source: ss})
}
