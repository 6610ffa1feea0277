// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package data

import (
	"maps"

	"cogentcore.org/core/base/keylist"
)

// Collection is the set of data objects produced by one evaluation of a
// pipeline stage, keyed by object name, plus a map of scalar
// attributes computed alongside (surface area, counts, etc).
//
// Collections are cheap to copy: [Collection.CloneShallow] copies the
// object list but shares the objects themselves. Use
// [Collection.MakeMutable] before modifying an object in place.
type Collection struct {

	// Objects is the ordered list of data objects, keyed by name.
	Objects keylist.List[string, Object]

	// Attributes holds global scalar attributes of this collection.
	Attributes map[string]any
}

// NewCollection returns a new empty collection.
func NewCollection() *Collection {
	return &Collection{Attributes: make(map[string]any)}
}

// Set adds the given object, replacing any existing object of the same
// name.
func (c *Collection) Set(obj Object) {
	c.Objects.Set(obj.Name(), obj)
}

// Get returns the object with the given name, or nil if not present.
func (c *Collection) Get(name string) Object {
	obj, _ := c.Objects.AtTry(name)
	return obj
}

// Lookup returns the object with the given name if it is present and
// has type T.
func Lookup[T Object](c *Collection, name string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	obj, ok := c.Objects.AtTry(name)
	if !ok {
		return zero, false
	}
	t, ok := obj.(T)
	return t, ok
}

// MakeMutable replaces the named object with a private deep copy and
// returns it, so the caller can modify the object without affecting
// other pipeline states sharing the original. Returns nil if the
// object is not present.
func (c *Collection) MakeMutable(name string) Object {
	obj, ok := c.Objects.AtTry(name)
	if !ok {
		return nil
	}
	clone := obj.Clone()
	c.Objects.Set(name, clone)
	return clone
}

// CloneShallow returns a copy of the collection that shares the data
// objects with the original. The object list and the attribute map are
// copied, so objects can be added, replaced or removed independently.
func (c *Collection) CloneShallow() *Collection {
	nc := NewCollection()
	for i, key := range c.Objects.Keys {
		nc.Objects.Set(key, c.Objects.Values[i])
	}
	maps.Copy(nc.Attributes, c.Attributes)
	return nc
}

// SetAttribute stores a global attribute value.
func (c *Collection) SetAttribute(name string, value any) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]any)
	}
	c.Attributes[name] = value
}
