// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
	"github.com/atomvis/atomvis/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	ObjName string
	Value   int
}

func (o *testObject) Name() string { return o.ObjName }

func (o *testObject) Clone() data.Object {
	c := *o
	return &c
}

func testCollection(value int) *data.Collection {
	c := data.NewCollection()
	c.Set(&testObject{ObjName: "test", Value: value})
	return c
}

// stubStage counts evaluations and optionally blocks them until
// released, for exercising the cache's in-flight coordination.
type stubStage struct {
	mu        sync.Mutex
	evals     int
	syncEvals int
	validity  anim.Interval
	state     pipeline.FlowState
	release   chan struct{}
}

func (s *stubStage) ValidityInterval(req pipeline.Request) anim.Interval {
	return s.validity
}

func (s *stubStage) EvaluateStage(req pipeline.Request) *pipeline.Future {
	s.mu.Lock()
	s.evals++
	s.mu.Unlock()
	if s.release == nil {
		return pipeline.StateFuture(s.state)
	}
	p := pipeline.NewPromise()
	go func() {
		<-s.release
		p.Fulfill(s.state)
	}()
	return p.Future()
}

func (s *stubStage) EvaluateStageSynchronous(t anim.Time) pipeline.FlowState {
	s.mu.Lock()
	s.syncEvals++
	s.mu.Unlock()
	return s.state
}

func (s *stubStage) evaluations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evals
}

func (s *stubStage) syncEvaluations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncEvals
}

func TestCacheServesHit(t *testing.T) {
	iv := anim.NewInterval(0, 1000)
	stage := &stubStage{
		validity: iv,
		state:    pipeline.NewFlowState(testCollection(1), iv),
	}
	var cache pipeline.Cache

	f := cache.Evaluate(pipeline.NewRequest(100), stage, false)
	state, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, iv, state.Validity())
	assert.Equal(t, 1, stage.evaluations())

	// A second request within the cached interval must not evaluate.
	f = cache.Evaluate(pipeline.NewRequest(500), stage, false)
	_, err = f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, stage.evaluations())

	// Outside the interval a new evaluation starts.
	cache.Evaluate(pipeline.NewRequest(2000), stage, false)
	assert.Equal(t, 2, stage.evaluations())
}

func TestCacheJoinsInFlightEvaluation(t *testing.T) {
	iv := anim.NewInterval(0, 1000)
	stage := &stubStage{
		validity: iv,
		state:    pipeline.NewFlowState(testCollection(1), iv),
		release:  make(chan struct{}),
	}
	var cache pipeline.Cache

	f1 := cache.Evaluate(pipeline.NewRequest(100), stage, false)
	f2 := cache.Evaluate(pipeline.NewRequest(900), stage, false)
	assert.Same(t, f1, f2, "overlapping request must join the running evaluation")
	assert.Equal(t, 1, stage.evaluations())

	close(stage.release)
	state, err := f1.Result()
	require.NoError(t, err)
	assert.Equal(t, iv, state.Validity())
}

// reentrantStage calls back into its own cache while the cache is
// preparing an evaluation for it.
type reentrantStage struct {
	cache *pipeline.Cache
	inner *pipeline.Future
}

func (s *reentrantStage) ValidityInterval(req pipeline.Request) anim.Interval {
	s.inner = s.cache.Evaluate(req, s, false)
	return anim.Infinite()
}

func (s *reentrantStage) EvaluateStage(req pipeline.Request) *pipeline.Future {
	return pipeline.StateFuture(pipeline.FlowState{})
}

func (s *reentrantStage) EvaluateStageSynchronous(t anim.Time) pipeline.FlowState {
	return pipeline.FlowState{}
}

func TestCacheReentrancyGuard(t *testing.T) {
	var cache pipeline.Cache
	stage := &reentrantStage{cache: &cache}
	f := cache.Evaluate(pipeline.NewRequest(0), &stubStageWrapper{stage}, false)
	_, err := f.Result()
	require.NoError(t, err)
	require.NotNil(t, stage.inner)
	_, err = stage.inner.Result()
	assert.ErrorIs(t, err, pipeline.ErrReentrantEvaluation)
}

// stubStageWrapper routes ValidityInterval through the reentrant stage
// but performs a normal evaluation.
type stubStageWrapper struct {
	r *reentrantStage
}

func (w *stubStageWrapper) ValidityInterval(req pipeline.Request) anim.Interval {
	return w.r.ValidityInterval(req)
}

func (w *stubStageWrapper) EvaluateStage(req pipeline.Request) *pipeline.Future {
	return pipeline.StateFuture(pipeline.NewFlowState(testCollection(1), anim.Infinite()))
}

func (w *stubStageWrapper) EvaluateStageSynchronous(t anim.Time) pipeline.FlowState {
	return pipeline.FlowState{}
}

func TestCacheInvalidateKeepInterval(t *testing.T) {
	iv := anim.NewInterval(0, 1000)
	stage := &stubStage{
		validity: iv,
		state:    pipeline.NewFlowState(testCollection(1), iv),
	}
	var cache pipeline.Cache
	_, err := cache.Evaluate(pipeline.NewRequest(100), stage, false).Result()
	require.NoError(t, err)

	keep := anim.NewInterval(200, 400)
	cache.Invalidate(keep, false)

	at100 := cache.GetAt(100)
	assert.True(t, at100.Validity().IsEmpty())
	got := cache.GetAt(300)
	assert.Equal(t, keep, got.Validity(), "cached state is clipped, not dropped")

	cache.Invalidate(anim.Empty(), false)
	at300 := cache.GetAt(300)
	assert.True(t, at300.Validity().IsEmpty())
}

func TestCacheInvalidateClipsInFlight(t *testing.T) {
	iv := anim.NewInterval(0, 1000)
	stage := &stubStage{
		validity: iv,
		state:    pipeline.NewFlowState(testCollection(1), iv),
		release:  make(chan struct{}),
	}
	var cache pipeline.Cache
	f := cache.Evaluate(pipeline.NewRequest(100), stage, false)

	// Invalidation while the evaluation runs: the result may only be
	// trusted within the kept interval.
	cache.Invalidate(anim.NewInterval(0, 50), false)
	close(stage.release)

	state, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, anim.NewInterval(0, 50), state.Validity())
	at100 := cache.GetAt(100)
	assert.True(t, at100.Validity().IsEmpty())
}

func TestCacheInvalidateClipsPreliminaryState(t *testing.T) {
	stage := &stubStage{
		validity: anim.Infinite(),
		state:    pipeline.NewFlowState(testCollection(1), anim.Infinite()),
	}
	var cache pipeline.Cache
	cache.EvaluateSynchronous(100, stage)
	assert.Equal(t, 1, stage.syncEvaluations())

	// An invalidation keeping the current time must not discard the
	// preliminary synchronous result.
	cache.Invalidate(anim.NewInterval(0, 500), false)
	cache.EvaluateSynchronous(100, stage)
	assert.Equal(t, 1, stage.syncEvaluations(), "preliminary state survives within the kept interval")

	// Outside the kept interval a fresh evaluation runs.
	cache.EvaluateSynchronous(600, stage)
	assert.Equal(t, 2, stage.syncEvaluations())

	// resetSynchronous drops the preliminary state unconditionally.
	cache.Invalidate(anim.Infinite(), true)
	cache.EvaluateSynchronous(100, stage)
	assert.Equal(t, 3, stage.syncEvaluations())
}

func TestCacheRetentionFollowsRequestIntervals(t *testing.T) {
	// The stage produces a state that is not valid at the requested
	// time; it is kept only if a requested cache interval overlaps it.
	produced := anim.NewInterval(100, 200)
	stage := &stubStage{
		validity: anim.Infinite(),
		state:    pipeline.NewFlowState(testCollection(1), produced),
	}
	var cache pipeline.Cache
	_, err := cache.Evaluate(pipeline.NewRequest(0), stage, false).Result()
	require.NoError(t, err)
	at150 := cache.GetAt(150)
	assert.True(t, at150.Validity().IsEmpty(), "result useless to the requester is discarded")

	req := pipeline.NewRequest(0)
	req.CacheIntervals = []anim.Interval{anim.NewInterval(150, 300)}
	_, err = cache.Evaluate(req, stage, false).Result()
	require.NoError(t, err)
	kept := cache.GetAt(150)
	assert.Equal(t, produced, kept.Validity())
}

// addModifier stamps a success status onto the state; configurable to
// fail or panic instead.
type addModifier struct {
	pipeline.ModifierBase
	validity anim.Interval
	failErr  error
	panicMsg string
}

func (m *addModifier) ModifierValidity(t anim.Time) anim.Interval {
	if m.validity == (anim.Interval{}) {
		return anim.Infinite()
	}
	return m.validity
}

func (m *addModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.failErr != nil {
		return pipeline.FailedFuture(m.failErr)
	}
	out := input
	out.SetStatus(pipeline.Status{Type: pipeline.StatusSuccess, Text: "modified"})
	return pipeline.StateFuture(out)
}

func newTestPipeline(mod pipeline.Modifier) (*pipeline.StaticSource, *pipeline.ModifierApplication) {
	src := pipeline.NewStaticSource(testCollection(7))
	return src, pipeline.NewModifierApplication(mod, src)
}

func TestModifierApplicationEvaluate(t *testing.T) {
	mod := &addModifier{}
	mod.TitleText = "Add"
	_, app := newTestPipeline(mod)

	state, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, state.Status().Type)
	assert.Equal(t, "modified", state.Status().Text)
	assert.Equal(t, "modified", app.Status().Text)
}

func TestModifierApplicationValidityNarrowing(t *testing.T) {
	mod := &addModifier{validity: anim.NewInterval(0, 480)}
	_, app := newTestPipeline(mod)

	req := pipeline.NewRequest(0)
	assert.Equal(t, anim.NewInterval(0, 480), app.ValidityInterval(req))

	state, err := app.Evaluate(req).Result()
	require.NoError(t, err)
	assert.Equal(t, anim.NewInterval(0, 480), state.Validity(),
		"output validity must not exceed the modifier's own validity")
}

// statusModifier stamps a fixed status onto the state.
type statusModifier struct {
	pipeline.ModifierBase
	status pipeline.Status
}

func (m *statusModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	out := input
	out.SetStatus(m.status)
	return pipeline.StateFuture(out)
}

// identityModifier passes the state through untouched.
type identityModifier struct {
	pipeline.ModifierBase
}

func (m *identityModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	return pipeline.StateFuture(input)
}

func TestModifierApplicationClearsInheritedStatus(t *testing.T) {
	warn := &statusModifier{status: pipeline.Status{Type: pipeline.StatusWarning, Text: "partial coverage"}}
	src := pipeline.NewStaticSource(testCollection(7))
	app1 := pipeline.NewModifierApplication(warn, src)
	app2 := pipeline.NewModifierApplication(&identityModifier{}, app1)

	state, err := app2.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Status{}, state.Status(),
		"an upstream warning must not ride through a stage that reports nothing itself")
	assert.Equal(t, pipeline.StatusWarning, app1.Status().Type)
	assert.Equal(t, pipeline.Status{}, app2.Status())
}

func TestModifierApplicationKeepsInheritedError(t *testing.T) {
	fail := &addModifier{failErr: errors.New("bad input")}
	src := pipeline.NewStaticSource(testCollection(7))
	app1 := pipeline.NewModifierApplication(fail, src)
	app2 := pipeline.NewModifierApplication(&identityModifier{}, app1)

	state, err := app2.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusError, state.Status().Type,
		"upstream errors stay attached to the state")
}

func TestModifierApplicationNoPendingForSynchronousModifier(t *testing.T) {
	mod := &addModifier{}
	_, app := newTestPipeline(mod)

	var sawPending bool
	app.AddDependent(func(ev pipeline.Event) {
		if ev.Type == pipeline.StatusChanged && app.Status().Type == pipeline.StatusPending {
			sawPending = true
		}
	})
	state, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, state.Status().Type)
	assert.False(t, sawPending,
		"a modifier completing synchronously must not flip the stage to pending")
}

func TestModifierApplicationDisabledPassThrough(t *testing.T) {
	mod := &addModifier{}
	mod.SetEnabled(false)
	_, app := newTestPipeline(mod)

	state, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Status{}, state.Status(), "input passes through unchanged")
	assert.Equal(t, "Modifier is currently disabled.", app.Status().Text)
}

func TestModifierApplicationErrorBecomesState(t *testing.T) {
	mod := &addModifier{failErr: errors.New("out of range")}
	_, app := newTestPipeline(mod)

	state, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err, "modifier errors surface as error states, not failed futures")
	assert.Equal(t, pipeline.StatusError, state.Status().Type)
	assert.Equal(t, "out of range", state.Status().Text)
	require.NotNil(t, state.Data(), "input data is passed along with the error")
	assert.Equal(t, pipeline.StatusError, app.Status().Type)
}

func TestModifierApplicationPanicBecomesState(t *testing.T) {
	mod := &addModifier{panicMsg: "index out of bounds"}
	_, app := newTestPipeline(mod)

	state, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusError, state.Status().Type)
	assert.Contains(t, state.Status().Text, "index out of bounds")
}

func TestModifierApplicationInvalidatesOnChange(t *testing.T) {
	mod := &addModifier{}
	src, app := newTestPipeline(mod)

	_, err := app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	cached := app.GetCachedState(0)
	assert.False(t, cached.Validity().IsEmpty())

	var gotTargetChanged bool
	app.AddDependent(func(ev pipeline.Event) {
		if ev.Type == pipeline.TargetChanged {
			gotTargetChanged = true
		}
	})
	src.ReloadCollection(testCollection(8))
	assert.True(t, gotTargetChanged)
	cached = app.GetCachedState(0)
	assert.True(t, cached.Validity().IsEmpty())

	// Parameter changes on the modifier invalidate as well.
	_, err = app.Evaluate(pipeline.NewRequest(0)).Result()
	require.NoError(t, err)
	mod.NotifyParameterChanged()
	cached = app.GetCachedState(0)
	assert.True(t, cached.Validity().IsEmpty())
}

func TestModifierApplicationPendingStatus(t *testing.T) {
	release := make(chan struct{})
	mod := &blockingModifier{release: release}
	_, app := newTestPipeline(mod)

	f := app.Evaluate(pipeline.NewRequest(0))
	// The evaluation is parked on the release channel now.
	waitFor(t, func() bool { return app.Status().Type == pipeline.StatusPending })
	close(release)
	_, err := f.Result()
	require.NoError(t, err)
	waitFor(t, func() bool { return app.Status().Type == pipeline.StatusSuccess })
}

type blockingModifier struct {
	pipeline.ModifierBase
	release chan struct{}
}

func (m *blockingModifier) Evaluate(req pipeline.Request, app *pipeline.ModifierApplication, input pipeline.FlowState) *pipeline.Future {
	p := pipeline.NewPromise()
	go func() {
		<-m.release
		out := input
		out.SetStatus(pipeline.Status{Type: pipeline.StatusSuccess})
		p.Fulfill(out)
	}()
	return p.Future()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStatusMerge(t *testing.T) {
	ok := pipeline.Status{Type: pipeline.StatusSuccess, Text: "a"}
	warn := pipeline.Status{Type: pipeline.StatusWarning, Text: "w"}
	fail := pipeline.Status{Type: pipeline.StatusError, Text: "e"}

	got := ok.Merge(warn)
	assert.Equal(t, pipeline.StatusWarning, got.Type)
	assert.Equal(t, "a\nw", got.Text)

	// A later warning does not demote an earlier one's precedence,
	// but an error always wins.
	got = warn.Merge(ok)
	assert.Equal(t, pipeline.StatusWarning, got.Type)
	got = warn.Merge(fail)
	assert.Equal(t, pipeline.StatusError, got.Type)
	assert.Equal(t, "w\ne", got.Text)

	// Empty text segments are not concatenated.
	got = pipeline.Status{Type: pipeline.StatusSuccess}.Merge(ok)
	assert.Equal(t, "a", got.Text)
}

// windowDelegate accepts any input and reports a fixed validity window.
type windowDelegate struct {
	pipeline.DelegateBase
	window anim.Interval
}

func (d *windowDelegate) DataObjectName() string { return "test" }

func (d *windowDelegate) CanOperateOn(input pipeline.FlowState) bool { return true }

func (d *windowDelegate) Apply(ctx context.Context, mod pipeline.Modifier, tm anim.Time, state *pipeline.FlowState) (pipeline.Status, error) {
	return pipeline.Status{Type: pipeline.StatusSuccess}, nil
}

func (d *windowDelegate) DelegateValidity(tm anim.Time) anim.Interval { return d.window }

func TestDelegatingModifierValidityFollowsDelegate(t *testing.T) {
	win := anim.NewInterval(0, 960)
	mod := &pipeline.DelegatingModifier{Delegate: &windowDelegate{window: win}}
	assert.Equal(t, win, mod.ModifierValidity(0))

	// A disabled delegate does not constrain the validity.
	mod.Delegate.(*windowDelegate).SetEnabled(false)
	assert.Equal(t, anim.Infinite(), mod.ModifierValidity(0))

	multi := &pipeline.MultiDelegatingModifier{Delegates: []pipeline.Delegate{
		&windowDelegate{window: anim.NewInterval(0, 960)},
		&windowDelegate{window: anim.NewInterval(480, 2000)},
	}}
	assert.Equal(t, anim.NewInterval(480, 960), multi.ModifierValidity(0))
}

func TestPipelineSourceTraversal(t *testing.T) {
	src, app1 := newTestPipeline(&addModifier{})
	app2 := pipeline.NewModifierApplication(&addModifier{}, app1)
	assert.Equal(t, pipeline.PipelineObject(src), app2.PipelineSource())
}
