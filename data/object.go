// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package data defines the data objects that flow through the analysis
// pipeline: particles, the simulation cell, surface meshes, triangle
// meshes and dislocation networks, grouped into a [Collection] that a
// pipeline stage hands downstream.
package data

import "github.com/jinzhu/copier"

// Object is one named piece of data in a [Collection]. Objects are
// logically copy-on-write: a Collection is cheap to copy because it
// shares Object pointers, and a pipeline stage that wants to modify an
// object must first obtain a private copy via [Collection.MakeMutable].
type Object interface {

	// Name returns the key under which the object is stored in a
	// [Collection]. There is at most one object per name.
	Name() string

	// Clone returns a deep copy of the object that the caller may
	// modify freely.
	Clone() Object
}

// Vis is a visual element attached to a data object. The pipeline only
// knows whether an element is enabled; elements that additionally
// transform the data implement the pipeline package's TransformingVis.
type Vis interface {
	IsEnabled() bool
}

// VisHolder is implemented by data objects that carry visual elements.
type VisHolder interface {
	VisElements() []Vis
}

// VisBase provides visual element storage for data objects.
// Visual elements are shared between clones, not deep-copied.
type VisBase struct {
	Vis []Vis `copier:"-"`
}

// VisElements returns the visual elements attached to this object.
func (vb *VisBase) VisElements() []Vis { return vb.Vis }

// deepCopy copies src into a new value of the same type using a
// reflection-based deep copy.
func deepCopy[T any](src *T) *T {
	dst := new(T)
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		// The object types used with deepCopy are plain data structs;
		// a copy failure indicates a programming error.
		panic("data: deep copy failed: " + err.Error())
	}
	return dst
}
