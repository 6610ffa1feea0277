// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disloc

import (
	"errors"

	"cogentcore.org/core/math32"

	"github.com/atomvis/atomvis/cell"
)

// DefaultCoreSize is the core size assigned to line points traced
// directly from the microstructure.
const DefaultCoreSize = 3

// ErrInvalidTopology is reported when the microstructure's dislocation
// edges do not form consistent lines.
var ErrInvalidTopology = errors.New("disloc: invalid dislocation network topology")

// Node is one of the two ends of a [Segment]. Nodes meeting at the
// same junction form a circular ring via NextRing; a ring of one is a
// dangling end.
type Node struct {

	// Segment is the line this node terminates.
	Segment *Segment

	// Forward is true for the node at the end of the segment's line,
	// false for the node at its start.
	Forward bool

	// NextRing links the junction ring this node belongs to.
	NextRing *Node
}

// Position returns the spatial location of the node, i.e. the line
// endpoint it terminates.
func (n *Node) Position() math32.Vector3 {
	line := n.Segment.Line
	if n.Forward {
		return line[len(line)-1]
	}
	return line[0]
}

// IsDangling reports whether the node is not connected to any other
// node.
func (n *Node) IsDangling() bool { return n.NextRing == n }

// CountJunctionArms returns the number of line arms meeting at this
// node's junction, including the node itself.
func (n *Node) CountJunctionArms() int {
	count := 1
	for m := n.NextRing; m != n; m = m.NextRing {
		count++
	}
	return count
}

// ConnectNodes merges the junction rings of two nodes. Connecting the
// two ends of the same segment closes it into a loop.
func ConnectNodes(a, b *Node) {
	a.NextRing, b.NextRing = b.NextRing, a.NextRing
}

// Segment is one continuous dislocation line. The line's point
// sequence is unwrapped: consecutive points never jump across periodic
// boundaries, even if the absolute coordinates leave the primary cell.
type Segment struct {

	// ID identifies the segment within its network.
	ID int

	// Line is the unwrapped point sequence of the dislocation line.
	Line []math32.Vector3

	// CoreSize holds, per line point, the number of atoms in the
	// dislocation core at that point, used as a smoothing weight.
	CoreSize []int

	// BurgersVector is the true Burgers vector of the line in the
	// lattice frame of Cluster.
	BurgersVector math32.Vector3

	// Cluster is the crystal cluster the Burgers vector is expressed
	// in.
	Cluster *Cluster

	// Nodes are the two ends: Nodes[0] is the forward node at the end
	// of the line, Nodes[1] the backward node at its start.
	Nodes [2]*Node
}

// ForwardNode returns the node at the end of the line.
func (s *Segment) ForwardNode() *Node { return s.Nodes[0] }

// BackwardNode returns the node at the start of the line.
func (s *Segment) BackwardNode() *Node { return s.Nodes[1] }

// IsClosedLoop reports whether the two ends of the segment are
// connected to each other and nothing else.
func (s *Segment) IsClosedLoop() bool {
	return s.Nodes[0].NextRing == s.Nodes[1] && s.Nodes[1].NextRing == s.Nodes[0]
}

// IsInfiniteLine reports whether the segment is a closed loop whose
// ends are displaced by a cell vector, i.e. a line wrapping around a
// periodic boundary.
func (s *Segment) IsInfiniteLine() bool {
	if !s.IsClosedLoop() {
		return false
	}
	d := s.Line[len(s.Line)-1].Sub(s.Line[0])
	return d.LengthSquared() > 1e-8
}

// Length returns the arc length of the line.
func (s *Segment) Length() float64 {
	var l float64
	for i := 1; i < len(s.Line); i++ {
		l += float64(s.Line[i].Sub(s.Line[i-1]).Length())
	}
	return l
}

// PointOnLine returns the position at the given fraction (0..1) of the
// segment's arc length.
func (s *Segment) PointOnLine(t float64) math32.Vector3 {
	if len(s.Line) == 0 {
		return math32.Vector3{}
	}
	target := t * s.Length()
	for i := 1; i < len(s.Line); i++ {
		d := float64(s.Line[i].Sub(s.Line[i-1]).Length())
		if target <= d && d > 0 {
			return s.Line[i-1].Add(s.Line[i].Sub(s.Line[i-1]).MulScalar(float32(target / d)))
		}
		target -= d
	}
	return s.Line[len(s.Line)-1]
}

// Network is a dislocation network: a set of continuous line segments
// connected at junction nodes.
type Network struct {
	Cell         cell.Cell
	ClusterGraph *ClusterGraph
	Segments     []*Segment
}

// NewNetwork returns an empty network in the given cell.
func NewNetwork(c cell.Cell, graph *ClusterGraph) *Network {
	if graph == nil {
		graph = NewClusterGraph()
	}
	return &Network{Cell: c, ClusterGraph: graph}
}

// CreateSegment adds a new segment with two dangling end nodes.
func (n *Network) CreateSegment(burgers math32.Vector3, cluster *Cluster) *Segment {
	s := &Segment{
		ID:            len(n.Segments),
		BurgersVector: burgers,
		Cluster:       cluster,
	}
	s.Nodes[0] = &Node{Segment: s, Forward: true}
	s.Nodes[1] = &Node{Segment: s}
	s.Nodes[0].NextRing = s.Nodes[0]
	s.Nodes[1].NextRing = s.Nodes[1]
	n.Segments = append(n.Segments, s)
	return s
}

// DiscardSegment removes a segment from the network. Its nodes must be
// dangling or connected only to each other.
func (n *Network) DiscardSegment(s *Segment) {
	for i, seg := range n.Segments {
		if seg == s {
			n.Segments = append(n.Segments[:i], n.Segments[i+1:]...)
			break
		}
	}
	for i, seg := range n.Segments {
		seg.ID = i
	}
}

// TotalLineLength returns the summed arc length of all segments.
func (n *Network) TotalLineLength() float64 {
	var l float64
	for _, s := range n.Segments {
		l += s.Length()
	}
	return l
}

// Clone returns a deep copy of the network. Junction rings are
// re-linked in the copy; the cluster graph is shared, as clusters are
// immutable after the analysis that produced them.
func (n *Network) Clone() *Network {
	c := NewNetwork(n.Cell, n.ClusterGraph)
	nodeMap := make(map[*Node]*Node, len(n.Segments)*2)
	for _, s := range n.Segments {
		cs := c.CreateSegment(s.BurgersVector, s.Cluster)
		cs.Line = append([]math32.Vector3(nil), s.Line...)
		cs.CoreSize = append([]int(nil), s.CoreSize...)
		nodeMap[s.Nodes[0]] = cs.Nodes[0]
		nodeMap[s.Nodes[1]] = cs.Nodes[1]
	}
	for old, fresh := range nodeMap {
		fresh.NextRing = nodeMap[old.NextRing]
	}
	return c
}

// TraceNetwork extracts continuous dislocation lines from the
// microstructure: edges are walked through all two-arm nodal points,
// loops are closed, and the remaining line ends meeting at higher
// order nodal points are connected into junctions.
func TraceNetwork(micro *Microstructure, graph *ClusterGraph) (*Network, error) {
	network := NewNetwork(micro.Cell, graph)

	// edgeInfo holds, per visited edge, the segment id plus one,
	// signed by the direction the line runs through the edge.
	edgeInfo := make(map[int32]int, len(micro.Edges))

	for e := range micro.Edges {
		e := int32(e)
		if !micro.IsPhysicalDislocationEdge(e) || edgeInfo[e] != 0 {
			continue
		}
		seg := network.CreateSegment(micro.Edges[e].Burgers, micro.Edges[e].Cluster)
		mark := seg.ID + 1
		edgeInfo[e] = mark
		edgeInfo[micro.Edges[e].Opposite] = -mark

		start := micro.Edges[e].Vertex1
		seg.Line = append(seg.Line, micro.Positions[start])
		seg.Line = append(seg.Line, seg.Line[0].Add(micro.EdgeVector(e)))
		seg.CoreSize = append(seg.CoreSize, DefaultCoreSize, DefaultCoreSize)

		// Extend forward through two-arm nodal points.
		last := e
		closed := false
		for {
			v := micro.Edges[last].Vertex2
			if micro.CountDislocationArms(v) != 2 {
				break
			}
			next := otherDislocationEdge(micro, v, micro.Edges[last].Opposite)
			if next == InvalidEdge {
				break
			}
			if info := edgeInfo[next]; info != 0 {
				if info != mark {
					return nil, ErrInvalidTopology
				}
				closed = true
				break
			}
			edgeInfo[next] = mark
			edgeInfo[micro.Edges[next].Opposite] = -mark
			seg.Line = append(seg.Line, seg.Line[len(seg.Line)-1].Add(micro.EdgeVector(next)))
			seg.CoreSize = append(seg.CoreSize, DefaultCoreSize)
			last = next
		}

		if closed {
			ConnectNodes(seg.Nodes[0], seg.Nodes[1])
			continue
		}

		// Extend backward, prepending points.
		first := e
		for {
			v := micro.Edges[first].Vertex1
			if micro.CountDislocationArms(v) != 2 {
				break
			}
			prev := otherDislocationEdge(micro, v, first)
			if prev == InvalidEdge {
				break
			}
			if edgeInfo[prev] != 0 {
				return nil, ErrInvalidTopology
			}
			// prev leaves v; the line passes through its opposite.
			edgeInfo[prev] = -mark
			edgeInfo[micro.Edges[prev].Opposite] = mark
			seg.Line = append([]math32.Vector3{seg.Line[0].Add(micro.EdgeVector(prev))}, seg.Line...)
			seg.CoreSize = append(seg.CoreSize, DefaultCoreSize)
			first = micro.Edges[prev].Opposite
		}
	}

	// Junction pass: connect the line ends meeting at nodal points
	// with three or more arms.
	for v := int32(0); v < int32(micro.VertexCount()); v++ {
		if micro.CountDislocationArms(v) < 3 {
			continue
		}
		var firstNode *Node
		for e := micro.FirstVertexEdge(v); e != InvalidEdge; e = micro.NextVertexEdge(e) {
			if !micro.Edges[e].Dislocation {
				continue
			}
			info := edgeInfo[e]
			if info == 0 {
				return nil, ErrInvalidTopology
			}
			var node *Node
			if info > 0 {
				node = network.Segments[info-1].BackwardNode()
			} else {
				node = network.Segments[-info-1].ForwardNode()
			}
			if firstNode == nil {
				firstNode = node
			} else {
				ConnectNodes(firstNode, node)
			}
		}
	}
	return network, nil
}

// otherDislocationEdge returns the outgoing dislocation edge at v that
// is not the excluded edge.
func otherDislocationEdge(micro *Microstructure, v int32, exclude int32) int32 {
	for e := micro.FirstVertexEdge(v); e != InvalidEdge; e = micro.NextVertexEdge(e) {
		if e != exclude && micro.Edges[e].Dislocation {
			return e
		}
	}
	return InvalidEdge
}
