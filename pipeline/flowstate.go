// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/atomvis/atomvis/anim"
	"github.com/atomvis/atomvis/data"
)

// FlowState is one snapshot flowing down the pipeline: a data
// collection (shared, copy-on-write), an evaluation status, and the
// interval of animation time over which the snapshot remains valid.
// Copying a FlowState is cheap; the data collection is shared until a
// stage explicitly asks for mutable access.
type FlowState struct {
	collection *data.Collection
	status     Status
	validity   anim.Interval
}

// NewFlowState returns a flow state holding the given collection and
// validity interval with a success status.
func NewFlowState(collection *data.Collection, validity anim.Interval) FlowState {
	return FlowState{collection: collection, validity: validity}
}

// Data returns the shared data collection, which may be nil. The
// returned collection must not be modified; use [FlowState.MutableData]
// for that.
func (s *FlowState) Data() *data.Collection { return s.collection }

// SetData replaces the data collection.
func (s *FlowState) SetData(collection *data.Collection) { s.collection = collection }

// MutableData returns a data collection that the calling stage may
// modify: the shared collection is replaced by a shallow clone, so
// object lists and attributes can change without affecting other
// states. Individual objects still need [data.Collection.MakeMutable].
func (s *FlowState) MutableData() *data.Collection {
	if s.collection == nil {
		s.collection = data.NewCollection()
		return s.collection
	}
	s.collection = s.collection.CloneShallow()
	return s.collection
}

// IsEmpty reports whether the state carries no data at all.
func (s *FlowState) IsEmpty() bool {
	return s.collection == nil || s.collection.Objects.Len() == 0
}

// Status returns the evaluation status.
func (s *FlowState) Status() Status { return s.status }

// SetStatus replaces the evaluation status.
func (s *FlowState) SetStatus(status Status) { s.status = status }

// Validity returns the interval of animation time over which the state
// remains valid.
func (s *FlowState) Validity() anim.Interval { return s.validity }

// SetValidity replaces the validity interval. Most stages should use
// [FlowState.IntersectValidity] instead, which can only narrow.
func (s *FlowState) SetValidity(iv anim.Interval) { s.validity = iv }

// IntersectValidity narrows the validity interval to its intersection
// with iv. The validity of a state never widens after computation.
func (s *FlowState) IntersectValidity(iv anim.Interval) {
	s.validity = s.validity.Intersect(iv)
}
