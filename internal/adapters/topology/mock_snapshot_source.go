package topology

import (
	"context"
	"errors"

	"canal-optimization-service/internal/domain"
)

// In-memory SnapshotSource for tests and local runs without a database.
type MockSnapshotSource struct {
	Snapshot *domain.NetworkSnapshot
}

func NewMockSnapshotSource(snap *domain.NetworkSnapshot) *MockSnapshotSource {
	return &MockSnapshotSource{Snapshot: snap}
}

func (m *MockSnapshotSource) FetchSnapshot(ctx context.Context) (*domain.NetworkSnapshot, error) {
	if m.Snapshot == nil {
		return nil, errors.New("mock snapshot source: no snapshot configured")
	}
	return m.Snapshot, nil
}
