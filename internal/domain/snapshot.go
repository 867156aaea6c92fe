package domain

import (
	"fmt"
	"time"
)

// Represents the point-in-time network state an optimization run computes
// over. A snapshot is read-only for the duration of the run; no component
// mutates it, and nothing in it survives past the run.
type NetworkSnapshot struct {
	TakenAt  time.Time
	Nodes    []Node
	Segments []Segment
	Gates    []Gate
	Zones    []Zone
}

// NodeByID returns the node index keyed by id. Built once per run.
func (s *NetworkSnapshot) NodeByID() map[string]Node {
	m := make(map[string]Node, len(s.Nodes))
	for _, n := range s.Nodes {
		m[n.NodeID] = n
	}
	return m
}

// SegmentByID returns the segment index keyed by id.
func (s *NetworkSnapshot) SegmentByID() map[string]Segment {
	m := make(map[string]Segment, len(s.Segments))
	for _, seg := range s.Segments {
		m[seg.SegmentID] = seg
	}
	return m
}

// GateBySegment returns gates keyed by the downstream segment they feed.
func (s *NetworkSnapshot) GateBySegment() map[string]Gate {
	m := make(map[string]Gate, len(s.Gates))
	for _, g := range s.Gates {
		m[g.DownstreamSegment] = g
	}
	return m
}

// Validate rejects malformed topology before any solving begins.
// A validation failure is fatal for the run and carries a precise reason;
// it is the only error class the engine surfaces to its caller.
func (s *NetworkSnapshot) Validate() error {
	if len(s.Nodes) == 0 {
		return fmt.Errorf("validate snapshot: no nodes")
	}

	nodes := make(map[string]Node, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.NodeID == "" {
			return fmt.Errorf("validate snapshot: node with empty id")
		}
		if _, dup := nodes[n.NodeID]; dup {
			return fmt.Errorf("validate snapshot: duplicate node id %q", n.NodeID)
		}
		nodes[n.NodeID] = n
	}

	segs := make(map[string]Segment, len(s.Segments))
	for _, seg := range s.Segments {
		if seg.SegmentID == "" {
			return fmt.Errorf("validate snapshot: segment with empty id")
		}
		if _, dup := segs[seg.SegmentID]; dup {
			return fmt.Errorf("validate snapshot: duplicate segment id %q", seg.SegmentID)
		}
		up, ok := nodes[seg.UpstreamNode]
		if !ok {
			return fmt.Errorf("validate snapshot: segment %q references unknown upstream node %q", seg.SegmentID, seg.UpstreamNode)
		}
		down, ok := nodes[seg.DownstreamNode]
		if !ok {
			return fmt.Errorf("validate snapshot: segment %q references unknown downstream node %q", seg.SegmentID, seg.DownstreamNode)
		}
		if seg.LengthM <= 0 {
			return fmt.Errorf("validate snapshot: segment %q length must be positive, got %g", seg.SegmentID, seg.LengthM)
		}
		if seg.BedSlope <= 0 {
			return fmt.Errorf("validate snapshot: segment %q bed slope must be positive, got %g", seg.SegmentID, seg.BedSlope)
		}
		if seg.BedWidthM <= 0 {
			return fmt.Errorf("validate snapshot: segment %q bed width must be positive, got %g", seg.SegmentID, seg.BedWidthM)
		}
		if seg.ManningN <= 0 {
			return fmt.Errorf("validate snapshot: segment %q roughness must be positive, got %g", seg.SegmentID, seg.ManningN)
		}
		if seg.CapacityM3s <= 0 {
			return fmt.Errorf("validate snapshot: segment %q capacity must be positive, got %g", seg.SegmentID, seg.CapacityM3s)
		}
		// Gravity-fed: water cannot run uphill.
		if up.Elevation < down.Elevation {
			return fmt.Errorf("validate snapshot: segment %q runs uphill (%g < %g)", seg.SegmentID, up.Elevation, down.Elevation)
		}
		segs[seg.SegmentID] = seg
	}

	for _, g := range s.Gates {
		if g.GateID == "" {
			return fmt.Errorf("validate snapshot: gate with empty id")
		}
		if g.MaxOpeningM <= 0 {
			return fmt.Errorf("validate snapshot: gate %q max opening must be positive, got %g", g.GateID, g.MaxOpeningM)
		}
		if g.CurrentOpeningM < 0 || g.CurrentOpeningM > g.MaxOpeningM {
			return fmt.Errorf("validate snapshot: gate %q opening %g outside [0, %g]", g.GateID, g.CurrentOpeningM, g.MaxOpeningM)
		}
		if g.WidthM <= 0 {
			return fmt.Errorf("validate snapshot: gate %q width must be positive, got %g", g.GateID, g.WidthM)
		}
		if g.UpstreamSegment != "" {
			if _, ok := segs[g.UpstreamSegment]; !ok {
				return fmt.Errorf("validate snapshot: gate %q references unknown upstream segment %q", g.GateID, g.UpstreamSegment)
			}
		}
		if g.DownstreamSegment != "" {
			if _, ok := segs[g.DownstreamSegment]; !ok {
				return fmt.Errorf("validate snapshot: gate %q references unknown downstream segment %q", g.GateID, g.DownstreamSegment)
			}
		}
	}

	for _, z := range s.Zones {
		for _, id := range z.NodeIDs {
			if _, ok := nodes[id]; !ok {
				return fmt.Errorf("validate snapshot: zone %q references unknown node %q", z.ZoneID, id)
			}
		}
	}

	return nil
}

// ValidateRequest rejects malformed delivery requests at the run boundary.
func ValidateRequest(r Request, s *NetworkSnapshot) error {
	if r.RequestID == "" {
		return fmt.Errorf("validate request: empty request id")
	}
	if r.VolumeM3 <= 0 {
		return fmt.Errorf("validate request %q: volume must be positive, got %g", r.RequestID, r.VolumeM3)
	}
	if r.Priority < 1 || r.Priority > 10 {
		return fmt.Errorf("validate request %q: priority %d outside [1,10]", r.RequestID, r.Priority)
	}
	if r.SectionNode == "" {
		return fmt.Errorf("validate request %q: empty section node", r.RequestID)
	}
	if _, ok := s.NodeByID()[r.SectionNode]; !ok {
		return fmt.Errorf("validate request %q: unknown section node %q", r.RequestID, r.SectionNode)
	}
	return nil
}
