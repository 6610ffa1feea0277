// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/atomvis/atomvis/anim"
)

// Modifier transforms the data flowing through a pipeline. Modifiers
// are stateless with respect to evaluation: the same modifier instance
// can be evaluated concurrently by several [ModifierApplication]s.
type Modifier interface {

	// Title returns the modifier's display name.
	Title() string

	// IsEnabled reports whether the modifier takes part in pipeline
	// evaluations. A disabled modifier passes its input through.
	IsEnabled() bool

	// Evaluate asynchronously applies the modifier to the input state.
	Evaluate(req Request, app *ModifierApplication, input FlowState) *Future

	// EvaluateSynchronous applies whatever part of the modifier's
	// operation can be performed immediately, for preliminary pipeline
	// results. Modifiers without an incremental fast path return the
	// input unchanged.
	EvaluateSynchronous(t anim.Time, app *ModifierApplication, input FlowState) FlowState

	// ModifierValidity returns the time interval over which the
	// modifier's own parameters do not change at the given time.
	ModifierValidity(t anim.Time) anim.Interval

	// IsApplicableTo reports whether the modifier can operate on the
	// given input at all.
	IsApplicableTo(input FlowState) bool

	// AddDependent registers an observer for parameter and enabled
	// state changes.
	AddDependent(obs Observer)
}

// ModifierBase provides the common state and notification behavior of
// modifiers. Embed it and override the evaluation methods.
type ModifierBase struct {
	Notifier

	// TitleText is the display name of the modifier.
	TitleText string

	disabled bool // zero value of ModifierBase is enabled
}

func (mb *ModifierBase) Title() string { return mb.TitleText }

func (mb *ModifierBase) IsEnabled() bool { return !mb.disabled }

// SetEnabled enables or disables the modifier and notifies dependents.
func (mb *ModifierBase) SetEnabled(enabled bool) {
	if enabled == !mb.disabled {
		return
	}
	mb.disabled = !enabled
	mb.NotifyDependents(Event{Type: EnabledChanged, Source: mb})
	mb.NotifyDependents(Event{Type: TargetChanged, Source: mb})
}

// NotifyParameterChanged signals that a modifier parameter changed and
// cached downstream results are stale.
func (mb *ModifierBase) NotifyParameterChanged() {
	mb.NotifyDependents(Event{Type: TargetChanged, Source: mb})
}

func (mb *ModifierBase) ModifierValidity(t anim.Time) anim.Interval {
	return anim.Infinite()
}

func (mb *ModifierBase) IsApplicableTo(input FlowState) bool { return true }

func (mb *ModifierBase) EvaluateSynchronous(t anim.Time, app *ModifierApplication, input FlowState) FlowState {
	return input
}
