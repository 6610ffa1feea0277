// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import "sync"

// EventType identifies a change notification traveling from a pipeline
// object to its dependents.
type EventType int32

const (
	// TargetChanged signals that the object's data has changed and any
	// cached pipeline results depending on it are stale.
	TargetChanged EventType = iota

	// StatusChanged signals that the object's evaluation status has
	// changed (e.g. an evaluation started or finished).
	StatusChanged

	// AnimationFramesChanged signals that the number of animation
	// frames the pipeline can produce may have changed.
	AnimationFramesChanged

	// PreliminaryStateAvailable signals that a new preliminary state
	// can be obtained through the synchronous evaluation path.
	PreliminaryStateAvailable

	// EnabledChanged signals that a modifier was enabled or disabled.
	EnabledChanged

	// PipelineChanged signals that the structure of the pipeline chain
	// has changed (a stage was inserted or removed).
	PipelineChanged

	// ModifierInputChanged signals to a modifier that its input state
	// has changed.
	ModifierInputChanged
)

// Event is a change notification emitted by a pipeline object.
type Event struct {
	Type EventType

	// Source is the object the event originates from.
	Source any
}

// Observer receives change notifications from a pipeline object.
type Observer func(ev Event)

// Notifier maintains the explicit list of dependents of a pipeline
// object and broadcasts events to them. It replaces an intrusive
// back-reference scheme with an ordinary reverse index.
type Notifier struct {
	mu        sync.Mutex
	observers []Observer
}

// AddDependent registers an observer that is invoked for every event
// this object emits.
func (n *Notifier) AddDependent(obs Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, obs)
}

// NotifyDependents broadcasts an event to all registered dependents.
func (n *Notifier) NotifyDependents(ev Event) {
	n.mu.Lock()
	obs := make([]Observer, len(n.observers))
	copy(obs, n.observers)
	n.mu.Unlock()
	for _, o := range obs {
		o(ev)
	}
}
