package services

import (
	"container/heap"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
	"canal-optimization-service/internal/hydraulics"
)

// Reference slope for normalizing elevation drop into a 0..1 score term.
const referenceBedSlope = 0.001

// One edge of the capacitated routing graph built per contingency event.
type capEdge struct {
	segmentID string
	from, to  string
	lengthM   float64
	capacity  float64 // remaining, after blockage derating and current flow
	score     float64 // composite feasibility score, higher is better
}

// PlanContingency answers a blockage event with ranked gravity reroutes
// around the failing segment.
//
// The capacitated graph is rebuilt fresh from the snapshot on every event:
// edge capacity is the segment capacity clamped by its controlling gate's
// wide-open flow, derated by the blockage severity on the failing edge and
// by current committed flow elsewhere. A modified Dijkstra minimizes
// Σ length/feasibility_score; after each accepted route its bottleneck edge
// is removed and the search repeats, up to the configured alternate count.
// An empty Alternates list means no gravity route exists — a valid outcome
// for field operations, not an error.
func PlanContingency(
	ctx context.Context,
	snap *domain.NetworkSnapshot,
	event domain.BlockageEvent,
	cfg config.ContingencyConfig,
) domain.ContingencyPlan {
	plan := domain.ContingencyPlan{
		PlanID:    uuid.NewString(),
		SegmentID: event.SegmentID,
		Severity:  event.Severity,
		CreatedAt: time.Now().UTC(),
	}

	segs := snap.SegmentByID()
	failing, ok := segs[event.SegmentID]
	if !ok {
		return plan
	}

	edges := buildCapacitatedEdges(snap, event)

	removed := map[string]struct{}{}
	seenRoutes := map[string]struct{}{}

	for len(plan.Alternates) < cfg.MaxAlternates {
		if ctx.Err() != nil {
			break
		}

		route, found := cheapestRoute(edges, removed, failing.UpstreamNode, failing.DownstreamNode)
		if !found {
			break
		}

		key := strings.Join(routeSegmentIDs(route), "|")
		if _, dup := seenRoutes[key]; dup {
			break
		}
		seenRoutes[key] = struct{}{}

		bottleneck := route[0]
		totalLength := 0.0
		totalCost := 0.0
		for _, e := range route {
			if e.capacity < bottleneck.capacity {
				bottleneck = e
			}
			totalLength += e.lengthM
			totalCost += e.lengthM / e.score
		}

		plan.Alternates = append(plan.Alternates, domain.AlternatePath{
			SegmentIDs:       routeSegmentIDs(route),
			BottleneckM3s:    bottleneck.capacity,
			FeasibilityScore: totalLength / totalCost,
		})

		// Knock out the bottleneck so the next pass finds a distinct route.
		removed[bottleneck.segmentID] = struct{}{}
	}

	slices.SortFunc(plan.Alternates, func(a, b domain.AlternatePath) int {
		if a.FeasibilityScore > b.FeasibilityScore {
			return -1
		}
		if a.FeasibilityScore < b.FeasibilityScore {
			return 1
		}
		if a.BottleneckM3s > b.BottleneckM3s {
			return -1
		}
		if a.BottleneckM3s < b.BottleneckM3s {
			return 1
		}
		return len(a.SegmentIDs) - len(b.SegmentIDs)
	})

	return plan
}

func routeSegmentIDs(route []capEdge) []string {
	ids := make([]string, 0, len(route))
	for _, e := range route {
		ids = append(ids, e.segmentID)
	}
	return ids
}

func buildCapacitatedEdges(snap *domain.NetworkSnapshot, event domain.BlockageEvent) []capEdge {
	nodes := snap.NodeByID()
	gateBySeg := snap.GateBySegment()

	edges := make([]capEdge, 0, len(snap.Segments))
	for _, seg := range snap.Segments {
		capacity := seg.CapacityM3s

		// A gate on the entry to this segment caps throughput at its
		// wide-open discharge, when telemetry gives us a head to price it.
		if g, ok := gateBySeg[seg.SegmentID]; ok && g.UpstreamHeadM > 0 {
			wideOpen := hydraulics.GateFlow(hydraulics.GateState{
				WidthM:          g.WidthM,
				OpeningM:        g.MaxOpeningM,
				UpstreamHeadM:   g.UpstreamHeadM,
				DownstreamHeadM: g.DownstreamHeadM,
			})
			if wideOpen < capacity {
				capacity = wideOpen
			}
		}

		if seg.SegmentID == event.SegmentID {
			capacity *= 1 - event.Severity
			if capacity < 0 {
				capacity = 0
			}
		} else {
			capacity -= seg.CurrentFlowM3s
			if capacity < 0 {
				capacity = 0
			}
		}

		up := nodes[seg.UpstreamNode]
		down := nodes[seg.DownstreamNode]

		edges = append(edges, capEdge{
			segmentID: seg.SegmentID,
			from:      seg.UpstreamNode,
			to:        seg.DownstreamNode,
			lengthM:   seg.LengthM,
			capacity:  capacity,
			score:     edgeFeasibilityScore(seg, up, down, capacity),
		})
	}
	return edges
}

// edgeFeasibilityScore composes remaining capacity, elevation drop, and
// hydraulic efficiency into a single 0..1 ranking term.
func edgeFeasibilityScore(seg domain.Segment, up, down domain.Node, remaining float64) float64 {
	capTerm := 0.0
	if seg.CapacityM3s > 0 {
		capTerm = remaining / seg.CapacityM3s
	}

	dropTerm := 0.0
	if seg.LengthM > 0 {
		dropTerm = (up.Elevation - down.Elevation) / (seg.LengthM * referenceBedSlope)
		if dropTerm > 1 {
			dropTerm = 1
		}
		if dropTerm < 0 {
			dropTerm = 0
		}
	}

	// Smoother channels carry water with less loss; n=0.02 is the
	// reference concrete-lined finish.
	effTerm := 0.02 / seg.ManningN
	if effTerm > 1 {
		effTerm = 1
	}

	return 0.5*capTerm + 0.3*dropTerm + 0.2*effTerm
}

type routeItem struct {
	node string
	cost float64
}

type routeQueue []routeItem

func (q routeQueue) Len() int            { return len(q) }
func (q routeQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q routeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *routeQueue) Push(x interface{}) { *q = append(*q, x.(routeItem)) }
func (q *routeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// cheapestRoute runs Dijkstra with edge cost length/score, skipping
// removed edges and anything without usable capacity or score.
func cheapestRoute(edges []capEdge, removed map[string]struct{}, from, to string) ([]capEdge, bool) {
	outgoing := map[string][]capEdge{}
	for _, e := range edges {
		if _, gone := removed[e.segmentID]; gone {
			continue
		}
		if e.capacity <= 1e-9 || e.score <= 0 {
			continue
		}
		outgoing[e.from] = append(outgoing[e.from], e)
	}

	dist := map[string]float64{from: 0}
	prev := map[string]capEdge{}
	done := map[string]struct{}{}

	q := &routeQueue{{node: from, cost: 0}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(routeItem)
		if _, ok := done[cur.node]; ok {
			continue
		}
		done[cur.node] = struct{}{}
		if cur.node == to {
			break
		}

		for _, e := range outgoing[cur.node] {
			nd := cur.cost + e.lengthM/e.score
			if old, ok := dist[e.to]; !ok || nd < old {
				dist[e.to] = nd
				prev[e.to] = e
				heap.Push(q, routeItem{node: e.to, cost: nd})
			}
		}
	}

	if _, ok := done[to]; !ok {
		return nil, false
	}

	var reversed []capEdge
	for at := to; at != from; {
		e := prev[at]
		reversed = append(reversed, e)
		at = e.from
	}
	route := make([]capEdge, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		route = append(route, reversed[i])
	}
	return route, true
}
