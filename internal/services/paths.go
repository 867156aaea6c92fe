package services

import (
	"container/heap"

	"canal-optimization-service/internal/domain"
)

// A candidate delivery route: ordered segments from source to destination
// plus the gates controlling entry into each segment.
type Path struct {
	SourceNode domain.Node
	DestNode   domain.Node
	Segments   []domain.Segment
	Gates      []domain.Gate
}

// SegmentIDs returns the ordered segment ids along the path.
func (p *Path) SegmentIDs() []string {
	ids := make([]string, 0, len(p.Segments))
	for _, s := range p.Segments {
		ids = append(ids, s.SegmentID)
	}
	return ids
}

// GateIDs returns the ids of gates along the path.
func (p *Path) GateIDs() []string {
	ids := make([]string, 0, len(p.Gates))
	for _, g := range p.Gates {
		ids = append(ids, g.GateID)
	}
	return ids
}

// SharesInfrastructure reports whether two paths touch any common segment
// or gate. Requests on disjoint paths may be served concurrently.
func (p *Path) SharesInfrastructure(other *Path) bool {
	seen := make(map[string]struct{}, len(p.Segments)+len(p.Gates))
	for _, s := range p.Segments {
		seen["s:"+s.SegmentID] = struct{}{}
	}
	for _, g := range p.Gates {
		seen["g:"+g.GateID] = struct{}{}
	}
	for _, s := range other.Segments {
		if _, ok := seen["s:"+s.SegmentID]; ok {
			return true
		}
	}
	for _, g := range other.Gates {
		if _, ok := seen["g:"+g.GateID]; ok {
			return true
		}
	}
	return false
}

type pathQueueItem struct {
	node string
	dist float64
}

type pathQueue []pathQueueItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(pathQueueItem)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ResolvePath finds the shortest-length downstream route from source to
// destination over the snapshot. Water only moves downhill, so edges run
// strictly upstream node to downstream node. Returns false when the
// destination is unreachable by gravity.
func ResolvePath(snap *domain.NetworkSnapshot, sourceID, destID string) (*Path, bool) {
	nodes := snap.NodeByID()
	src, okSrc := nodes[sourceID]
	dst, okDst := nodes[destID]
	if !okSrc || !okDst {
		return nil, false
	}
	if sourceID == destID {
		return nil, false
	}

	outgoing := make(map[string][]domain.Segment)
	for _, seg := range snap.Segments {
		outgoing[seg.UpstreamNode] = append(outgoing[seg.UpstreamNode], seg)
	}

	dist := map[string]float64{sourceID: 0}
	prevSeg := map[string]domain.Segment{}
	done := map[string]struct{}{}

	q := &pathQueue{{node: sourceID, dist: 0}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(pathQueueItem)
		if _, ok := done[cur.node]; ok {
			continue
		}
		done[cur.node] = struct{}{}
		if cur.node == destID {
			break
		}

		for _, seg := range outgoing[cur.node] {
			next := seg.DownstreamNode
			nd := cur.dist + seg.LengthM
			if old, ok := dist[next]; !ok || nd < old {
				dist[next] = nd
				prevSeg[next] = seg
				heap.Push(q, pathQueueItem{node: next, dist: nd})
			}
		}
	}

	if _, ok := done[destID]; !ok {
		return nil, false
	}

	// Walk the predecessor chain back to the source.
	var reversed []domain.Segment
	for at := destID; at != sourceID; {
		seg := prevSeg[at]
		reversed = append(reversed, seg)
		at = seg.UpstreamNode
	}

	segments := make([]domain.Segment, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		segments = append(segments, reversed[i])
	}

	gateBySeg := snap.GateBySegment()
	gates := make([]domain.Gate, 0, len(segments))
	for _, seg := range segments {
		if g, ok := gateBySeg[seg.SegmentID]; ok {
			gates = append(gates, g)
		}
	}

	return &Path{SourceNode: src, DestNode: dst, Segments: segments, Gates: gates}, true
}
