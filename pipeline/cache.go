// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"slices"
	"sync"
	"weak"

	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
)

// ErrReentrantEvaluation is returned as a failed future when a cache's
// Evaluate is re-entered while it is still preparing a prior
// evaluation, which happens when a pipeline depends on itself.
var ErrReentrantEvaluation = errors.New("pipeline: evaluation request during preparation of another evaluation (circular pipeline dependency?)")

// evaluationInProgress records one running evaluation: the validity
// interval promised when it started, progressively clipped by
// invalidations, and a weak reference to its future so that the record
// alone never keeps an abandoned computation's result alive.
type evaluationInProgress struct {
	validity anim.Interval
	future   weak.Pointer[Future]
}

// Cache holds the outputs of one pipeline stage, keyed by validity
// interval, and coordinates concurrent evaluations so that at most one
// computation is in flight for any animation time.
//
// The zero value is an empty cache ready for use.
type Cache struct {
	mu         sync.Mutex
	states     []FlowState
	inProgress []*evaluationInProgress

	// preparing guards against reentrant Evaluate calls between the
	// cache miss and the registration of the in-flight record, during
	// which the bookkeeping is not in a consistent state.
	preparing bool

	// syncState is the result of the last synchronous evaluation. It
	// is cached with infinite validity but flagged preliminary, so a
	// completed full evaluation always supersedes it.
	syncState       FlowState
	syncPreliminary bool
}

// Evaluate serves the request from the cache when possible, joins a
// running evaluation whose promised validity covers the requested time,
// and otherwise starts a new evaluation of the given stage. With
// includeVis, the transforms of enabled visual elements are chained
// onto the stage output before caching.
func (c *Cache) Evaluate(req Request, stage Stage, includeVis bool) *Future {
	c.mu.Lock()
	if c.preparing {
		c.mu.Unlock()
		return FailedFuture(ErrReentrantEvaluation)
	}
	for _, s := range c.states {
		if s.Validity().Contains(req.Time) {
			c.mu.Unlock()
			return StateFuture(s)
		}
	}
	for _, rec := range c.inProgress {
		if rec.validity.Contains(req.Time) {
			if f := rec.future.Value(); f != nil && !f.Canceled() {
				c.mu.Unlock()
				return f
			}
		}
	}
	c.preparing = true
	c.mu.Unlock()

	// The preparing flag, not the lock, guards this section: asking
	// the stage for its validity estimate may recurse into upstream
	// caches.
	promised := stage.ValidityInterval(req)
	inner := stage.EvaluateStage(req)
	if includeVis {
		inner = c.applyVisElements(req, inner)
	}

	p := NewPromise()
	rec := &evaluationInProgress{validity: promised, future: weak.Make(p.Future())}

	c.mu.Lock()
	c.inProgress = append(c.inProgress, rec)
	c.preparing = false
	c.mu.Unlock()

	inner.OnDone(func(state FlowState, err error) {
		c.mu.Lock()
		// The record's validity may have shrunk since the evaluation
		// started; the result is never trusted beyond it.
		kept := rec.validity
		c.inProgress = slices.DeleteFunc(c.inProgress, func(r *evaluationInProgress) bool {
			return r == rec
		})
		if err == nil {
			state.IntersectValidity(kept)
			c.insertLocked(state, req)
		}
		c.mu.Unlock()
		if err != nil {
			p.Fail(err)
		} else {
			p.Fulfill(state)
		}
	})
	return p.Future()
}

// EvaluateSynchronous returns an immediate result for the given time:
// a cache hit if one exists, otherwise the stage's synchronous
// preliminary evaluation, which is cached until the next invalidation.
func (c *Cache) EvaluateSynchronous(t anim.Time, stage Stage) FlowState {
	c.mu.Lock()
	for _, s := range c.states {
		if s.Validity().Contains(t) {
			c.mu.Unlock()
			return s
		}
	}
	if !c.syncState.Validity().IsEmpty() && c.syncState.Validity().Contains(t) {
		s := c.syncState
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	state := stage.EvaluateStageSynchronous(t)

	c.mu.Lock()
	c.syncState = state
	c.syncState.SetValidity(anim.Infinite())
	c.syncPreliminary = true
	c.mu.Unlock()
	return state
}

// GetAt returns the cached state containing the given time, or an
// empty state. It is a pure lookup and never triggers an evaluation.
func (c *Cache) GetAt(t anim.Time) FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.states {
		if s.Validity().Contains(t) {
			return s
		}
	}
	return FlowState{}
}

// Invalidate clips all cached and in-flight validity intervals to the
// keep interval, dropping states that become empty. In-flight
// evaluations are not canceled; their results are simply not trusted
// outside the kept range. With resetSynchronous, the preliminary state
// from synchronous evaluations is dropped as well.
func (c *Cache) Invalidate(keep anim.Interval, resetSynchronous bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.states {
		s.IntersectValidity(keep)
		if !s.Validity().IsEmpty() {
			c.states[n] = s
			n++
		}
	}
	clear(c.states[n:])
	c.states = c.states[:n]
	for _, rec := range c.inProgress {
		rec.validity = rec.validity.Intersect(keep)
	}
	if resetSynchronous {
		c.syncState = FlowState{}
		c.syncPreliminary = false
	} else if c.syncPreliminary {
		// The preliminary state stays usable within the kept range.
		c.syncState.IntersectValidity(keep)
		if c.syncState.Validity().IsEmpty() {
			c.syncState = FlowState{}
			c.syncPreliminary = false
		}
	}
}

// insertLocked adds a completed state to the cache if it is worth
// keeping: non-empty validity that covers the requested time or
// overlaps one of the requested cache intervals. Older entries
// overlapping the new state are evicted. The caller holds c.mu.
func (c *Cache) insertLocked(state FlowState, req Request) {
	v := state.Validity()
	if v.IsEmpty() {
		return
	}
	keep := v.Contains(req.Time)
	for _, iv := range req.CacheIntervals {
		if keep {
			break
		}
		keep = v.Overlaps(iv)
	}
	if !keep {
		return
	}
	n := 0
	for _, s := range c.states {
		if !s.Validity().Overlaps(v) {
			c.states[n] = s
			n++
		}
	}
	clear(c.states[n:])
	c.states = append(c.states[:n], state)

	// A full evaluation supersedes any preliminary synchronous result.
	if c.syncPreliminary {
		c.syncState = FlowState{}
		c.syncPreliminary = false
	}
}

// applyVisElements chains the asynchronous transforms of all enabled
// transforming visual elements attached to the state's data objects.
func (c *Cache) applyVisElements(req Request, f *Future) *Future {
	return ThenFuture(f, func(state FlowState, err error) *Future {
		if err != nil {
			return FailedFuture(err)
		}
		if state.Data() == nil {
			return StateFuture(state)
		}
		cur := StateFuture(state)
		for _, obj := range state.Data().Objects.Values {
			for _, tv := range transformingVisOf(obj) {
				obj := obj
				tv := tv
				cur = ThenFuture(cur, func(s FlowState, err error) *Future {
					if err != nil {
						return FailedFuture(err)
					}
					return tv.TransformData(req.Context, obj, s)
				})
			}
		}
		return cur
	})
}

// transformingVisOf returns the enabled transforming visual elements
// attached to a data object, in attachment order.
func transformingVisOf(obj data.Object) []TransformingVis {
	holder, ok := obj.(data.VisHolder)
	if !ok {
		return nil
	}
	var tvs []TransformingVis
	for _, vis := range holder.VisElements() {
		if tv, ok := vis.(TransformingVis); ok && tv.IsEnabled() {
			tvs = append(tvs, tv)
		}
	}
	return tvs
}
