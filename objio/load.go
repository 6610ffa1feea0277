// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"cogentcore.org/core/math32"
)

// trailer layout: classTableOffset int64, classCount uint32,
// objectTableOffset int64, objectCount uint32
const trailerSize = 8 + 4 + 8 + 4

// ErrBadStream reports a malformed or truncated object stream.
var ErrBadStream = errors.New("objio: malformed object stream")

type objectRecord struct {
	classID uint32
	offset  int64
}

// LoadStream deserializes a graph of objects written by [SaveStream].
// Opening the stream instantiates an empty shell for every stored
// object; [LoadStream.Close] reads the object bodies and runs the
// completion pass.
type LoadStream struct {
	r   io.ReadSeeker
	err error

	classNames []string
	records    []objectRecord
	objects    []Serializable
}

// NewLoadStream opens an object stream and creates shells for every
// object it contains. No object body is read yet.
func NewLoadStream(r io.ReadSeeker) (*LoadStream, error) {
	l := &LoadStream{r: r}

	magic := make([]byte, len(streamMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != streamMagic {
		return nil, ErrBadStream
	}
	if v := l.ReadUint32(); l.err != nil || v != streamVersion {
		return nil, fmt.Errorf("%w: unsupported version", ErrBadStream)
	}

	if _, err := r.Seek(-trailerSize, io.SeekEnd); err != nil {
		return nil, ErrBadStream
	}
	classTableOffset := l.ReadInt64()
	classCount := l.ReadUint32()
	objectTableOffset := l.ReadInt64()
	objectCount := l.ReadUint32()
	if l.err != nil {
		return nil, ErrBadStream
	}

	if _, err := r.Seek(classTableOffset, io.SeekStart); err != nil {
		return nil, ErrBadStream
	}
	for i := uint32(0); i < classCount; i++ {
		l.classNames = append(l.classNames, l.ReadString())
	}

	if _, err := r.Seek(objectTableOffset, io.SeekStart); err != nil {
		return nil, ErrBadStream
	}
	for i := uint32(0); i < objectCount; i++ {
		rec := objectRecord{classID: l.ReadUint32(), offset: l.ReadInt64()}
		if l.err != nil {
			return nil, ErrBadStream
		}
		if int(rec.classID) >= len(l.classNames) {
			return nil, fmt.Errorf("%w: object %d has invalid class id", ErrBadStream, i)
		}
		l.records = append(l.records, rec)
	}

	for _, rec := range l.records {
		factory, err := classFactory(l.classNames[rec.classID])
		if err != nil {
			return nil, err
		}
		l.objects = append(l.objects, factory())
	}
	return l, nil
}

// ObjectCount returns the number of objects stored in the stream.
func (l *LoadStream) ObjectCount() int { return len(l.objects) }

// Object returns the object with the given id. Before
// [LoadStream.Close] the returned value is an empty shell.
func (l *LoadStream) Object(id int) Serializable { return l.objects[id] }

// ReadObjectRef resolves an object reference stored with
// [SaveStream.WriteObjectRef]. The result may still be a shell.
func (l *LoadStream) ReadObjectRef() Serializable {
	ref := l.ReadUint32()
	if ref == 0 || l.err != nil {
		return nil
	}
	if int(ref) > len(l.objects) {
		l.err = fmt.Errorf("%w: dangling object reference %d", ErrBadStream, ref)
		return nil
	}
	return l.objects[ref-1]
}

// Close reads every object body and then runs the LoadComplete pass
// over all objects that implement [Completable].
func (l *LoadStream) Close() error {
	for i, rec := range l.records {
		if _, err := l.r.Seek(rec.offset, io.SeekStart); err != nil {
			return ErrBadStream
		}
		if err := l.objects[i].Load(l); err != nil {
			return fmt.Errorf("objio: loading object %d (%s): %w", i, l.classNames[rec.classID], err)
		}
		if l.err != nil {
			return l.err
		}
	}
	for i, obj := range l.objects {
		if c, ok := obj.(Completable); ok {
			if err := c.LoadComplete(); err != nil {
				return fmt.Errorf("objio: completing object %d: %w", i, err)
			}
		}
	}
	return nil
}

func (l *LoadStream) readRaw(b []byte) {
	if l.err != nil {
		return
	}
	_, l.err = io.ReadFull(l.r, b)
}

// ReadUint32 reads a little-endian uint32.
func (l *LoadStream) ReadUint32() uint32 {
	var b [4]byte
	l.readRaw(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// ReadInt32 reads a little-endian int32.
func (l *LoadStream) ReadInt32() int32 { return int32(l.ReadUint32()) }

// ReadInt64 reads a little-endian int64.
func (l *LoadStream) ReadInt64() int64 {
	var b [8]byte
	l.readRaw(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// ReadFloat32 reads a little-endian IEEE 754 float32.
func (l *LoadStream) ReadFloat32() float32 { return math.Float32frombits(l.ReadUint32()) }

// ReadFloat64 reads a little-endian IEEE 754 float64.
func (l *LoadStream) ReadFloat64() float64 { return math.Float64frombits(uint64(l.ReadInt64())) }

// ReadBool reads a bool stored as a single byte.
func (l *LoadStream) ReadBool() bool {
	var b [1]byte
	l.readRaw(b[:])
	return b[0] != 0
}

// ReadString reads a length-prefixed UTF-8 string.
func (l *LoadStream) ReadString() string {
	n := l.ReadUint32()
	if l.err != nil {
		return ""
	}
	b := make([]byte, n)
	l.readRaw(b)
	if l.err != nil {
		return ""
	}
	return string(b)
}

// ReadVector3 reads the three components of a vector.
func (l *LoadStream) ReadVector3() math32.Vector3 {
	return math32.Vec3(l.ReadFloat32(), l.ReadFloat32(), l.ReadFloat32())
}

// Err returns the first low-level read error encountered, if any.
func (l *LoadStream) Err() error { return l.err }
