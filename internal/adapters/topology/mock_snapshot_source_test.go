package topology

import (
	"context"
	"testing"
	"time"

	"canal-optimization-service/internal/domain"
)

func TestMockSnapshotSource(t *testing.T) {
	snap := &domain.NetworkSnapshot{
		TakenAt: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		Nodes:   []domain.Node{{NodeID: "n-intake", Elevation: 221.0}},
	}

	src := NewMockSnapshotSource(snap)
	got, err := src.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != snap {
		t.Fatal("expected the configured snapshot back")
	}

	if _, err := NewMockSnapshotSource(nil).FetchSnapshot(context.Background()); err == nil {
		t.Fatal("expected error when no snapshot configured")
	}
}
