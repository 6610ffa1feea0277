// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objio reads and writes graphs of objects in a binary,
// trailer-indexed stream format. The end of a stream holds a class
// table and an object table, so a reader can instantiate empty shells
// for every stored object before any object body is parsed. Object
// bodies are deserialized when the stream is closed, followed by a
// final completion pass once all cross-references point at live
// objects.
package objio

import (
	"fmt"
	"sync"
)

// Serializable is implemented by objects that can be stored in an
// object stream. Save writes the object's body; Load reads it back.
// Cross-references to other objects go through
// [SaveStream.WriteObjectRef] and [LoadStream.ReadObjectRef].
type Serializable interface {
	// ClassName returns the name the class is registered under.
	ClassName() string

	// Save writes the object body to the stream.
	Save(s *SaveStream) error

	// Load reads the object body from the stream. Object references
	// obtained during Load are shells whose own bodies may not have
	// been read yet; defer any work that needs their contents to
	// [Completable.LoadComplete].
	Load(s *LoadStream) error
}

// Completable is optionally implemented by objects that need a second
// pass after every object body in the stream has been loaded.
type Completable interface {
	LoadComplete() error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Serializable{}
)

// RegisterClass makes a class available for deserialization under the
// given name. The factory must return a fresh, empty instance.
// Registering the same name twice panics.
func RegisterClass(name string, factory func() Serializable) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic("objio: class registered twice: " + name)
	}
	registry[name] = factory
}

func classFactory(name string) (func() Serializable, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("objio: stream contains unknown class %q", name)
	}
	return f, nil
}
