// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/atomvis/atomvis/trimesh"
)

// writeMeshFile writes the mesh to the given path in a format chosen
// by extension. A partially written file is removed on error.
func writeMeshFile(path string, mesh *trimesh.Mesh) error {
	var write func(*trimesh.Mesh, *os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		write = func(m *trimesh.Mesh, f *os.File) error { return m.WriteOBJ(f) }
	case ".vtk":
		write = func(m *trimesh.Mesh, f *os.File) error { return m.WriteVTK(f) }
	default:
		return fmt.Errorf("unsupported output format %q (want .vtk or .obj)", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(mesh, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	slog.Info("wrote mesh file", "path", path, "faces", mesh.FaceCount())
	return nil
}

// watchAndRun runs the job once and then again every time the watched
// file changes, until the context is canceled. In watch mode a job
// failure is logged instead of terminating the process, so a transient
// bad input does not end the session.
func watchAndRun(ctx context.Context, path string, job func(context.Context) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors typically replace the file, which
	// would drop a watch set on the file itself.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	runOnce := func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			slog.Error("job failed", "input", path, "err", err)
		}
	}
	runOnce()
	slog.Info("watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			evPath, err := filepath.Abs(ev.Name)
			if err != nil || evPath != target {
				continue
			}
			slog.Debug("input changed", "event", ev.Op.String())
			runOnce()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch error", "err", err)
		}
	}
}
