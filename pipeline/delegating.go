// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/atomvis/atomvis/anim"
)

// errWrongInputData is reported when a delegating modifier's delegate
// cannot operate on the data present in the pipeline.
var errWrongInputData = errors.New("the modifier's pipeline input does not contain the expected kind of data")

// Delegate performs the data-type specific part of a delegating
// modifier's operation, e.g. slicing particles vs. slicing a mesh.
type Delegate interface {

	// DataObjectName identifies the kind of data collection entry the
	// delegate operates on.
	DataObjectName() string

	// IsEnabled reports whether the delegate participates in
	// evaluations.
	IsEnabled() bool

	// CanOperateOn reports whether the input contains data this
	// delegate can process.
	CanOperateOn(input FlowState) bool

	// Apply performs the operation in place on the given state and
	// returns a status describing the outcome.
	Apply(ctx context.Context, mod Modifier, t anim.Time, state *FlowState) (Status, error)

	// DelegateValidity returns the time interval over which the
	// delegate's result stays valid at the given time. Delegates with
	// time-independent parameters report an infinite interval.
	DelegateValidity(t anim.Time) anim.Interval
}

// DelegateBase provides the enabled flag shared by all delegates.
// The zero value is enabled.
type DelegateBase struct {
	disabled bool
}

func (db *DelegateBase) IsEnabled() bool { return !db.disabled }

// SetEnabled switches the delegate on or off.
func (db *DelegateBase) SetEnabled(enabled bool) { db.disabled = !enabled }

func (db *DelegateBase) DelegateValidity(t anim.Time) anim.Interval {
	return anim.Infinite()
}

var (
	delegateMu       sync.RWMutex
	delegateRegistry = map[string][]func() Delegate{}
)

// RegisterDelegate adds a delegate factory to the named modifier
// group. Delegates register themselves from init functions; modifiers
// instantiate their delegate list from the group at construction time.
func RegisterDelegate(group string, factory func() Delegate) {
	delegateMu.Lock()
	defer delegateMu.Unlock()
	delegateRegistry[group] = append(delegateRegistry[group], factory)
}

// DelegatesFor instantiates all delegates registered for the group,
// ordered by the data object name they operate on.
func DelegatesFor(group string) []Delegate {
	delegateMu.RLock()
	factories := delegateRegistry[group]
	delegateMu.RUnlock()
	ds := make([]Delegate, 0, len(factories))
	for _, f := range factories {
		ds = append(ds, f())
	}
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].DataObjectName() < ds[j].DataObjectName()
	})
	return ds
}

// DelegatingModifier is a modifier whose operation is carried out by a
// single exchangeable [Delegate] selected for the kind of data present
// in the pipeline.
type DelegatingModifier struct {
	ModifierBase

	// Delegate performs the actual operation.
	Delegate Delegate
}

func (m *DelegatingModifier) IsApplicableTo(input FlowState) bool {
	return m.Delegate != nil && m.Delegate.CanOperateOn(input)
}

// ModifierValidity narrows the modifier's validity to that of its
// delegate.
func (m *DelegatingModifier) ModifierValidity(t anim.Time) anim.Interval {
	iv := anim.Infinite()
	if m.Delegate != nil && m.Delegate.IsEnabled() {
		iv = iv.Intersect(m.Delegate.DelegateValidity(t))
	}
	return iv
}

func (m *DelegatingModifier) Evaluate(req Request, app *ModifierApplication, input FlowState) *Future {
	out, err := m.apply(req.Context, req.Time, app, input)
	if err != nil {
		return FailedFuture(err)
	}
	return StateFuture(out)
}

func (m *DelegatingModifier) EvaluateSynchronous(t anim.Time, app *ModifierApplication, input FlowState) FlowState {
	out, err := m.apply(context.Background(), t, app, input)
	if err != nil {
		return input
	}
	return out
}

func (m *DelegatingModifier) apply(ctx context.Context, t anim.Time, app *ModifierApplication, input FlowState) (FlowState, error) {
	mod := m.asModifier(app)
	if m.Delegate == nil || !m.Delegate.IsEnabled() {
		return input, nil
	}
	if !m.Delegate.CanOperateOn(input) {
		return FlowState{}, errWrongInputData
	}
	state := input
	status, err := m.Delegate.Apply(ctx, mod, t, &state)
	if err != nil {
		return FlowState{}, err
	}
	state.SetStatus(state.Status().Merge(status))
	return state, nil
}

// asModifier returns the outermost modifier instance so delegates see
// the concrete modifier's parameters, not the embedded base.
func (m *DelegatingModifier) asModifier(app *ModifierApplication) Modifier {
	if app != nil {
		if mod := app.Modifier(); mod != nil {
			return mod
		}
	}
	return nil
}

// MultiDelegatingModifier applies every enabled, applicable delegate
// from its list to the pipeline state, silently skipping the rest.
type MultiDelegatingModifier struct {
	ModifierBase

	// Delegates are tried in order; each operates on its own kind of
	// data object.
	Delegates []Delegate
}

// EnableDelegate switches the delegate operating on the named data
// object on or off. Unknown names are ignored.
func (m *MultiDelegatingModifier) EnableDelegate(dataObjectName string, enabled bool) {
	for _, d := range m.Delegates {
		if d.DataObjectName() == dataObjectName {
			if s, ok := d.(interface{ SetEnabled(bool) }); ok {
				s.SetEnabled(enabled)
			}
		}
	}
}

// ModifierValidity narrows the modifier's validity to the intersection
// of the validities of all enabled delegates.
func (m *MultiDelegatingModifier) ModifierValidity(t anim.Time) anim.Interval {
	iv := anim.Infinite()
	for _, d := range m.Delegates {
		if d.IsEnabled() {
			iv = iv.Intersect(d.DelegateValidity(t))
		}
	}
	return iv
}

func (m *MultiDelegatingModifier) IsApplicableTo(input FlowState) bool {
	for _, d := range m.Delegates {
		if d.CanOperateOn(input) {
			return true
		}
	}
	return false
}

func (m *MultiDelegatingModifier) Evaluate(req Request, app *ModifierApplication, input FlowState) *Future {
	out, err := m.apply(req.Context, req.Time, app, input)
	if err != nil {
		return FailedFuture(err)
	}
	return StateFuture(out)
}

func (m *MultiDelegatingModifier) EvaluateSynchronous(t anim.Time, app *ModifierApplication, input FlowState) FlowState {
	out, err := m.apply(context.Background(), t, app, input)
	if err != nil {
		return input
	}
	return out
}

func (m *MultiDelegatingModifier) apply(ctx context.Context, t anim.Time, app *ModifierApplication, input FlowState) (FlowState, error) {
	var mod Modifier
	if app != nil {
		mod = app.Modifier()
	}
	state := input
	for _, d := range m.Delegates {
		if !d.IsEnabled() || !d.CanOperateOn(state) {
			continue
		}
		status, err := d.Apply(ctx, mod, t, &state)
		if err != nil {
			return FlowState{}, err
		}
		state.SetStatus(state.Status().Merge(status))
	}
	return state, nil
}
