package ports

import (
	"context"

	"canal-optimization-service/internal/domain"
)

// Port: boundary to the topology/telemetry collaborators. The engine pulls
// one snapshot per run, up front, and never polls mid-run.
type SnapshotSource interface {
	// Fetch the current network state: nodes, segments, gates, zones.
	FetchSnapshot(ctx context.Context) (*domain.NetworkSnapshot, error)
}
