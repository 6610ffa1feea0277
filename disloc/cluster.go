// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disloc represents dislocation line networks extracted from
// atomistic crystals: clusters of common lattice orientation, the
// microstructure edge arena they are traced from, and the resulting
// network of continuous line segments with junction topology.
package disloc

// Cluster is a connected region of the crystal sharing one lattice
// structure and orientation. Burgers vectors are expressed in the
// lattice frame of their cluster.
type Cluster struct {

	// ID is the positive, unique cluster identifier; id 0 denotes no
	// cluster.
	ID int

	// Structure is the lattice structure type of the cluster.
	Structure int32

	// AtomCount is the number of atoms belonging to the cluster.
	AtomCount int

	// Orientation transforms vectors from the cluster's lattice frame
	// to the simulation frame. The zero value means no orientation has
	// been determined.
	Orientation [3][3]float32
}

// ClusterGraph owns the clusters of one analysis run.
type ClusterGraph struct {
	Clusters []*Cluster
}

// NewClusterGraph returns an empty cluster graph.
func NewClusterGraph() *ClusterGraph {
	return &ClusterGraph{}
}

// CreateCluster adds a new cluster of the given structure type and
// assigns it the next free id.
func (g *ClusterGraph) CreateCluster(structure int32) *Cluster {
	c := &Cluster{ID: len(g.Clusters) + 1, Structure: structure}
	g.Clusters = append(g.Clusters, c)
	return c
}

// FindCluster returns the cluster with the given id, or nil.
func (g *ClusterGraph) FindCluster(id int) *Cluster {
	if id < 1 || id > len(g.Clusters) {
		return nil
	}
	return g.Clusters[id-1]
}
