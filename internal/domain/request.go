package domain

import "time"

// Represents a single water-delivery request submitted by a zone.
// A Request is immutable once submitted; it is consumed by exactly
// one optimization run, which produces zero or more results for it.
type Request struct {
	RequestID   string
	ZoneID      string
	SectionNode string // destination delivery node
	VolumeM3    float64
	Crop        string
	GrowthStage string
	Priority    int // 1..10, higher is more important for scheduling
	Deadline    time.Time
}

// An active blockage or partial failure on a segment, reported by telemetry.
// Severity 1.0 means fully blocked; a partial failure scales the remaining
// capacity by (1 - Severity).
type BlockageEvent struct {
	SegmentID  string
	Severity   float64
	ReportedAt time.Time
}
