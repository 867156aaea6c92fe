package domain

import (
	"strings"
	"testing"
)

func validSnapshot() *NetworkSnapshot {
	return &NetworkSnapshot{
		Nodes: []Node{
			{NodeID: "n-1", Elevation: 100},
			{NodeID: "n-2", Elevation: 98},
		},
		Segments: []Segment{
			{SegmentID: "s-1", UpstreamNode: "n-1", DownstreamNode: "n-2",
				LengthM: 1000, BedWidthM: 2, ManningN: 0.025, BedSlope: 0.0004, CapacityM3s: 2},
		},
		Gates: []Gate{
			{GateID: "g-1", WidthM: 2, MaxOpeningM: 1, CurrentOpeningM: 0.3, DownstreamSegment: "s-1"},
		},
		Zones: []Zone{
			{ZoneID: "z-1", NodeIDs: []string{"n-2"}},
		},
	}
}

func TestValidateAcceptsWellFormedSnapshot(t *testing.T) {
	if err := validSnapshot().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s *NetworkSnapshot)
		wantSub string
	}{
		{"no nodes", func(s *NetworkSnapshot) { s.Nodes = nil }, "no nodes"},
		{"duplicate node", func(s *NetworkSnapshot) { s.Nodes = append(s.Nodes, Node{NodeID: "n-1"}) }, "duplicate node"},
		{"unknown upstream", func(s *NetworkSnapshot) { s.Segments[0].UpstreamNode = "ghost" }, "unknown upstream node"},
		{"negative length", func(s *NetworkSnapshot) { s.Segments[0].LengthM = -1 }, "length must be positive"},
		{"zero bed slope", func(s *NetworkSnapshot) { s.Segments[0].BedSlope = 0 }, "bed slope must be positive"},
		{"zero roughness", func(s *NetworkSnapshot) { s.Segments[0].ManningN = 0 }, "roughness must be positive"},
		{"uphill segment", func(s *NetworkSnapshot) { s.Nodes[1].Elevation = 105 }, "runs uphill"},
		{"opening beyond max", func(s *NetworkSnapshot) { s.Gates[0].CurrentOpeningM = 1.5 }, "outside [0, 1]"},
		{"gate unknown segment", func(s *NetworkSnapshot) { s.Gates[0].DownstreamSegment = "ghost" }, "unknown downstream segment"},
		{"zone unknown node", func(s *NetworkSnapshot) { s.Zones[0].NodeIDs = []string{"ghost"} }, "unknown node"},
	}

	for _, tc := range cases {
		s := validSnapshot()
		tc.mutate(s)
		err := s.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: error %q missing %q", tc.name, err, tc.wantSub)
		}
	}
}

func TestValidateRequest(t *testing.T) {
	snap := validSnapshot()

	ok := Request{RequestID: "r-1", SectionNode: "n-2", VolumeM3: 1000, Priority: 5}
	if err := ValidateRequest(ok, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name string
		req  Request
	}{
		{"empty id", Request{SectionNode: "n-2", VolumeM3: 1000, Priority: 5}},
		{"negative volume", Request{RequestID: "r", SectionNode: "n-2", VolumeM3: -1, Priority: 5}},
		{"priority out of range", Request{RequestID: "r", SectionNode: "n-2", VolumeM3: 1, Priority: 11}},
		{"unknown section", Request{RequestID: "r", SectionNode: "ghost", VolumeM3: 1, Priority: 5}},
	}
	for _, tc := range cases {
		if err := ValidateRequest(tc.req, snap); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
