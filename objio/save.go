// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"cogentcore.org/core/math32"
)

// streamMagic opens every object stream, followed by the format
// version.
const streamMagic = "AtvObjs\x00"

const streamVersion uint32 = 1

// SaveStream serializes a graph of objects to a writer. Objects are
// added with [SaveStream.SaveObject] or discovered through
// [SaveStream.WriteObjectRef]; their bodies, the class table, the
// object table and the trailer are written by [SaveStream.Close].
type SaveStream struct {
	w   io.Writer
	off int64
	err error

	objects []Serializable
	ids     map[Serializable]uint32

	classIDs   map[string]uint32
	classNames []string

	// per-object body offsets, filled during Close
	offsets []int64
}

// NewSaveStream starts a new object stream on w. The caller must call
// [SaveStream.Close] to complete the stream.
func NewSaveStream(w io.Writer) (*SaveStream, error) {
	s := &SaveStream{
		w:        w,
		ids:      map[Serializable]uint32{},
		classIDs: map[string]uint32{},
	}
	s.writeRaw([]byte(streamMagic))
	s.WriteUint32(streamVersion)
	return s, s.err
}

// SaveObject schedules an object for storage and returns its id in
// the stream. Saving the same object twice yields the same id.
func (s *SaveStream) SaveObject(obj Serializable) uint32 {
	if id, ok := s.ids[obj]; ok {
		return id
	}
	id := uint32(len(s.objects))
	s.ids[obj] = id
	s.objects = append(s.objects, obj)
	name := obj.ClassName()
	if _, ok := s.classIDs[name]; !ok {
		s.classIDs[name] = uint32(len(s.classNames))
		s.classNames = append(s.classNames, name)
	}
	return id
}

// WriteObjectRef stores a reference to another object, scheduling it
// for storage if it is new. A nil reference is allowed.
func (s *SaveStream) WriteObjectRef(obj Serializable) {
	if obj == nil {
		s.WriteUint32(0)
		return
	}
	s.WriteUint32(s.SaveObject(obj) + 1)
}

// Close writes all scheduled object bodies, the class and object
// tables and the trailer. The stream must not be used afterwards.
func (s *SaveStream) Close() error {
	// Bodies first. An object body may schedule further objects via
	// WriteObjectRef; the loop picks those up.
	for i := 0; i < len(s.objects); i++ {
		s.offsets = append(s.offsets, s.off)
		if err := s.objects[i].Save(s); err != nil {
			return fmt.Errorf("objio: saving object %d (%s): %w", i, s.objects[i].ClassName(), err)
		}
		if s.err != nil {
			return s.err
		}
	}

	classTableOffset := s.off
	for _, name := range s.classNames {
		s.WriteString(name)
	}

	objectTableOffset := s.off
	for i, obj := range s.objects {
		s.WriteUint32(s.classIDs[obj.ClassName()])
		s.WriteInt64(s.offsets[i])
	}

	s.WriteInt64(classTableOffset)
	s.WriteUint32(uint32(len(s.classNames)))
	s.WriteInt64(objectTableOffset)
	s.WriteUint32(uint32(len(s.objects)))
	return s.err
}

func (s *SaveStream) writeRaw(b []byte) {
	if s.err != nil {
		return
	}
	n, err := s.w.Write(b)
	s.off += int64(n)
	s.err = err
}

// WriteUint32 stores a little-endian uint32.
func (s *SaveStream) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.writeRaw(b[:])
}

// WriteInt32 stores a little-endian int32.
func (s *SaveStream) WriteInt32(v int32) { s.WriteUint32(uint32(v)) }

// WriteInt64 stores a little-endian int64.
func (s *SaveStream) WriteInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	s.writeRaw(b[:])
}

// WriteFloat32 stores a little-endian IEEE 754 float32.
func (s *SaveStream) WriteFloat32(v float32) { s.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 stores a little-endian IEEE 754 float64.
func (s *SaveStream) WriteFloat64(v float64) { s.WriteInt64(int64(math.Float64bits(v))) }

// WriteBool stores a bool as a single byte.
func (s *SaveStream) WriteBool(v bool) {
	b := []byte{0}
	if v {
		b[0] = 1
	}
	s.writeRaw(b)
}

// WriteString stores a length-prefixed UTF-8 string.
func (s *SaveStream) WriteString(v string) {
	s.WriteUint32(uint32(len(v)))
	s.writeRaw([]byte(v))
}

// WriteVector3 stores the three components of a vector.
func (s *SaveStream) WriteVector3(v math32.Vector3) {
	s.WriteFloat32(v.X)
	s.WriteFloat32(v.Y)
	s.WriteFloat32(v.Z)
}
