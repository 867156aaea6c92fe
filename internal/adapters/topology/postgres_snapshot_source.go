package topology

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canal-optimization-service/internal/domain"
)

// Postgres-backed implementation of the SnapshotSource port. The spatial
// store owns the canal topology; this adapter reads one consistent
// point-in-time view of it per run.
type PostgresSnapshotSource struct{ DB *sql.DB }

func NewPostgresSnapshotSource(db *sql.DB) *PostgresSnapshotSource {
	return &PostgresSnapshotSource{DB: db}
}

func (p *PostgresSnapshotSource) FetchSnapshot(ctx context.Context) (*domain.NetworkSnapshot, error) {
	if p.DB == nil {
		return nil, errors.New("postgres snapshot source: DB is nil")
	}

	snap := &domain.NetworkSnapshot{TakenAt: time.Now().UTC()}

	tx, err := p.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if snap.Nodes, err = fetchNodes(ctx, tx); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if snap.Segments, err = fetchSegments(ctx, tx); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if snap.Gates, err = fetchGates(ctx, tx); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if snap.Zones, err = fetchZones(ctx, tx); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	return snap, nil
}

func fetchNodes(ctx context.Context, tx *sql.Tx) ([]domain.Node, error) {
	q := `
	SELECT node_id, name, elevation_m, lon, lat, water_demand_m3s, priority
	FROM canal_nodes
	ORDER BY node_id;
	`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query canal_nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]domain.Node, 0, 64)
	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.NodeID, &n.Name, &n.Elevation, &n.Location.Lon, &n.Location.Lat, &n.WaterDemand, &n.Priority); err != nil {
			return nil, fmt.Errorf("scan canal_nodes row: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canal_nodes row iteration: %w", err)
	}
	return nodes, nil
}

func fetchSegments(ctx context.Context, tx *sql.Tx) ([]domain.Segment, error) {
	q := `
	SELECT segment_id, channel_type, upstream_node, downstream_node,
		length_m, bed_width_m, side_slope, manning_n, bed_slope,
		capacity_m3s, current_flow_m3s, is_dry
	FROM canal_segments
	ORDER BY segment_id;
	`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query canal_segments: %w", err)
	}
	defer rows.Close()

	segments := make([]domain.Segment, 0, 64)
	for rows.Next() {
		var s domain.Segment
		var chType string
		if err := rows.Scan(&s.SegmentID, &chType, &s.UpstreamNode, &s.DownstreamNode,
			&s.LengthM, &s.BedWidthM, &s.SideSlope, &s.ManningN, &s.BedSlope,
			&s.CapacityM3s, &s.CurrentFlowM3s, &s.Dry); err != nil {
			return nil, fmt.Errorf("scan canal_segments row: %w", err)
		}
		s.Type = domain.ChannelType(chType)
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canal_segments row iteration: %w", err)
	}
	return segments, nil
}

func fetchGates(ctx context.Context, tx *sql.Tx) ([]domain.Gate, error) {
	q := `
	SELECT gate_id, lon, lat, sill_elevation_m, gate_type, width_m,
		max_opening_m, current_opening_m, upstream_segment, downstream_segment,
		upstream_head_m, downstream_head_m
	FROM canal_gates
	ORDER BY gate_id;
	`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query canal_gates: %w", err)
	}
	defer rows.Close()

	gates := make([]domain.Gate, 0, 32)
	for rows.Next() {
		var g domain.Gate
		var gType string
		var upSeg, downSeg sql.NullString
		if err := rows.Scan(&g.GateID, &g.Location.Lon, &g.Location.Lat, &g.SillElevation, &gType, &g.WidthM,
			&g.MaxOpeningM, &g.CurrentOpeningM, &upSeg, &downSeg,
			&g.UpstreamHeadM, &g.DownstreamHeadM); err != nil {
			return nil, fmt.Errorf("scan canal_gates row: %w", err)
		}
		g.Type = domain.GateType(gType)
		g.UpstreamSegment = upSeg.String
		g.DownstreamSegment = downSeg.String
		gates = append(gates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canal_gates row iteration: %w", err)
	}
	return gates, nil
}

func fetchZones(ctx context.Context, tx *sql.Tx) ([]domain.Zone, error) {
	q := `
	SELECT z.zone_id, z.name, z.min_elevation_m, z.max_elevation_m, z.area_ha, zn.node_id
	FROM irrigation_zones z
	LEFT JOIN zone_nodes zn ON zn.zone_id = z.zone_id
	ORDER BY z.zone_id, zn.node_id;
	`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query irrigation_zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	index := map[string]int{}
	for rows.Next() {
		var z domain.Zone
		var nodeID sql.NullString
		if err := rows.Scan(&z.ZoneID, &z.Name, &z.MinElevation, &z.MaxElevation, &z.AreaHa, &nodeID); err != nil {
			return nil, fmt.Errorf("scan irrigation_zones row: %w", err)
		}

		i, ok := index[z.ZoneID]
		if !ok {
			i = len(zones)
			index[z.ZoneID] = i
			zones = append(zones, z)
		}
		if nodeID.Valid {
			zones[i].NodeIDs = append(zones[i].NodeIDs, nodeID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("irrigation_zones row iteration: %w", err)
	}
	return zones, nil
}
