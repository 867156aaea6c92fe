package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
	"canal-optimization-service/internal/platform/obs"
	"canal-optimization-service/internal/ports"
)

// Everything one optimization run consumes, fetched up front by the caller.
// The snapshot is treated as immutable for the run's duration.
type RunInput struct {
	Snapshot     *domain.NetworkSnapshot
	Requests     []domain.Request
	Events       []domain.BlockageEvent
	SourceNodeID string // empty means highest-elevation node
	StartedAt    time.Time
}

// Orchestrator sequences one optimization run per request batch: validate,
// plan contingencies, screen feasibility, sequence, optimize gates, predict
// arrivals, analyze energy recovery, then hand the assembled result to the
// output ports.
//
// Runs over disjoint network partitions execute in parallel; runs touching
// the same partition serialize on a per-partition lock, and a newer run
// cancels the in-flight one for its partition.
type Orchestrator struct {
	cfg        config.Config
	store      ports.ResultStore
	dispatcher ports.GateDispatcher
	notifier   ports.AlertNotifier

	mu         sync.Mutex
	partitions map[string]*partitionSlot
}

type partitionSlot struct {
	runMu  sync.Mutex
	cancel context.CancelFunc // guarded by Orchestrator.mu
}

func NewOrchestrator(cfg config.Config, store ports.ResultStore, dispatcher ports.GateDispatcher, notifier ports.AlertNotifier) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifier,
		partitions: make(map[string]*partitionSlot),
	}
}

// Run executes one optimization pass over the input batch.
//
// Invalid input (malformed topology or requests) is the only hard failure
// and is rejected before any solving. Every solver outcome — infeasible
// paths, capped-out optimizations, empty contingency plans — comes back as
// flags and diagnostics on the result, never as an error.
func (o *Orchestrator) Run(ctx context.Context, input RunInput) (result *domain.OptimizationResult, plans []*domain.ContingencyPlan, err error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, obs.RunIDKey, runID)
	defer obs.Time(ctx, "orchestrator.Run")(&err)

	if input.Snapshot == nil {
		return nil, nil, fmt.Errorf("run %s: nil snapshot", runID)
	}
	if err := input.Snapshot.Validate(); err != nil {
		return nil, nil, fmt.Errorf("run %s: rejected: %w", runID, err)
	}
	for _, req := range input.Requests {
		if err := domain.ValidateRequest(req, input.Snapshot); err != nil {
			return nil, nil, fmt.Errorf("run %s: rejected: %w", runID, err)
		}
	}

	startedAt := input.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	// Blockage events are independent of the delivery pass: each gets a
	// routed contingency plan under its own budget.
	for _, event := range input.Events {
		plan := o.planContingency(ctx, input.Snapshot, event)
		plans = append(plans, plan)
	}

	sourceID := input.SourceNodeID
	if sourceID == "" {
		sourceID = highestNode(input.Snapshot)
	}

	result = &domain.OptimizationResult{
		RunID:       runID,
		StartedAt:   startedAt,
		Diagnostics: domain.SolveDiagnostics{Converged: true},
	}

	paths, reports := o.screenRequests(ctx, input.Snapshot, input.Requests, sourceID, result)

	// Group requests into partitions of shared infrastructure; disjoint
	// partitions carry no risk of conflicting gate settings and run in
	// parallel.
	parts := partitionRequests(input.Requests, paths)

	var resMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, part := range parts {
		part := part
		g.Go(func() error {
			pr := o.runPartition(gctx, part, paths, reports, startedAt)
			resMu.Lock()
			mergePartition(result, pr)
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, plans, fmt.Errorf("run %s: %w", runID, err)
	}

	finalizeResult(result, input.Requests)

	// Every partition contributes its own run-start setting; dispatch their
	// union so no partition's immediate commands are lost. Later waves ship
	// with the stored schedule.
	if o.dispatcher != nil {
		var immediate []domain.GateCommand
		for _, s := range result.Settings {
			if s.At.Equal(startedAt) {
				immediate = append(immediate, s.Commands...)
			}
		}
		slices.SortFunc(immediate, func(a, b domain.GateCommand) int {
			return strings.Compare(a.GateID, b.GateID)
		})
		if len(immediate) > 0 {
			if err := o.dispatcher.Dispatch(ctx, runID, immediate); err != nil {
				log.Printf("run_id=%s op=dispatch err=%v", runID, err)
			}
		}
	}
	if o.store != nil {
		if err := o.store.SaveResult(ctx, result); err != nil {
			log.Printf("run_id=%s op=save_result err=%v", runID, err)
		}
	}

	return result, plans, nil
}

func (o *Orchestrator) planContingency(ctx context.Context, snap *domain.NetworkSnapshot, event domain.BlockageEvent) *domain.ContingencyPlan {
	cctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.Budgets.ContingencyMs)*time.Millisecond)
	defer cancel()

	plan := PlanContingency(cctx, snap, event, o.cfg.Contingency)

	if o.notifier != nil {
		if err := o.notifier.NotifyContingency(ctx, &plan); err != nil {
			log.Printf("op=notify_contingency segment=%s err=%v", event.SegmentID, err)
		}
	}
	if o.store != nil {
		if err := o.store.SaveContingencyPlan(ctx, &plan); err != nil {
			log.Printf("op=save_contingency segment=%s err=%v", event.SegmentID, err)
		}
	}
	return &plan
}

// screenRequests resolves and screens a path per request under the
// feasibility budget. Requests that cannot be screened before the budget
// expires are reported infeasible and the result flagged time-limited.
func (o *Orchestrator) screenRequests(
	ctx context.Context,
	snap *domain.NetworkSnapshot,
	requests []domain.Request,
	sourceID string,
	result *domain.OptimizationResult,
) (map[string]*Path, map[string]FeasibilityReport) {
	fctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.Budgets.FeasibilityMs)*time.Millisecond)
	defer cancel()

	paths := make(map[string]*Path, len(requests))
	reports := make(map[string]FeasibilityReport, len(requests))

	for _, req := range requests {
		if fctx.Err() != nil {
			result.TimeLimited = true
			break
		}

		p, ok := ResolvePath(snap, sourceID, req.SectionNode)
		if !ok {
			continue
		}

		paths[req.RequestID] = p
		reports[req.RequestID] = AnalyzePath(p, targetFlow(req, p, result.StartedAt), o.cfg.Feasibility)
	}
	return paths, reports
}

// targetFlow sizes a request's delivery rate: the volume spread over the
// time left to its deadline, clamped to the path's bottleneck capacity.
func targetFlow(req domain.Request, p *Path, now time.Time) float64 {
	capacity := 0.0
	for i, seg := range p.Segments {
		if i == 0 || seg.CapacityM3s < capacity {
			capacity = seg.CapacityM3s
		}
	}

	window := req.Deadline.Sub(now).Seconds()
	if window <= 0 {
		return capacity
	}

	flow := req.VolumeM3 / window
	if flow > capacity {
		flow = capacity
	}
	return flow
}

type partitionResult struct {
	outcomes    []domain.DeliveryOutcome
	settings    []domain.ScheduledSetting
	energySites []domain.EnergySite
	objective   float64
	suboptimal  bool
	timeLimited bool
	iterations  int
	converged   bool
}

// runPartition serializes on the partition lock, cancels any in-flight run
// for the same partition, and optimizes the partition's requests wave by
// wave under the optimization budget.
func (o *Orchestrator) runPartition(
	ctx context.Context,
	part partition,
	paths map[string]*Path,
	reports map[string]FeasibilityReport,
	startedAt time.Time,
) partitionResult {
	o.mu.Lock()
	slot, ok := o.partitions[part.key]
	if !ok {
		slot = &partitionSlot{}
		o.partitions[part.key] = slot
	}
	if slot.cancel != nil {
		// A newer batch supersedes the in-flight run for this partition.
		slot.cancel()
	}
	pctx, cancel := context.WithCancel(ctx)
	slot.cancel = cancel
	o.mu.Unlock()

	slot.runMu.Lock()
	defer slot.runMu.Unlock()
	defer cancel()

	pctx, budgetCancel := context.WithTimeout(pctx, time.Duration(o.cfg.Budgets.OptimizeMs)*time.Millisecond)
	defer budgetCancel()

	scheduled := SequenceDeliveries(part.requests, paths, startedAt, o.cfg.Sequencer)

	pr := partitionResult{converged: true}
	energyDone := map[string]struct{}{}

	waveCount := 0
	for _, s := range scheduled {
		if s.Wave+1 > waveCount {
			waveCount = s.Wave + 1
		}
	}

	waveStart := startedAt
	for wave := 0; wave < waveCount; wave++ {
		var members []ScheduledRequest
		var active []ActivePath
		for _, s := range scheduled {
			if s.Wave != wave {
				continue
			}
			if !reports[s.Request.RequestID].Feasible {
				continue
			}
			members = append(members, s)
			active = append(active, ActivePath{
				Path:          s.Path,
				TargetFlowM3s: targetFlow(s.Request, s.Path, startedAt),
			})
		}
		if len(members) == 0 {
			continue
		}

		settings := OptimizeGateSettings(pctx, active, o.cfg.Optimizer, o.cfg.Feasibility)
		pr.objective += settings.Objective
		pr.suboptimal = pr.suboptimal || settings.Suboptimal
		pr.converged = pr.converged && settings.Diagnostics.Converged
		pr.iterations += settings.Diagnostics.Iterations
		if pctx.Err() != nil {
			pr.timeLimited = true
		}

		gates := make([]domain.Gate, 0, len(active))
		seen := map[string]struct{}{}
		for _, ap := range active {
			for _, g := range ap.Path.Gates {
				if _, dup := seen[g.GateID]; dup {
					continue
				}
				seen[g.GateID] = struct{}{}
				gates = append(gates, g)
			}
		}

		commands := make([]domain.GateCommand, 0, len(gates))
		for _, g := range gates {
			commands = append(commands, domain.GateCommand{
				GateID:   g.GateID,
				OpeningM: settings.Openings[g.GateID],
				FlowM3s:  settings.SegmentFlows[g.DownstreamSegment],
			})
		}
		pr.settings = append(pr.settings, domain.ScheduledSetting{At: waveStart, Commands: commands})

		waveEnd := waveStart
		for i, m := range members {
			flow := settings.PathFlows[i]
			outcome := outcomeFor(m, reports[m.Request.RequestID], flow, wave)

			if flow > 0 {
				pred, err := PredictArrival(m.Path, flow, waveStart)
				if err == nil {
					outcome.ArrivalAt = pred.ArrivalAt
					if pred.ArrivalAt.After(waveEnd) {
						waveEnd = pred.ArrivalAt
					}
				}
			}
			pr.outcomes = append(pr.outcomes, outcome)
		}

		// A gate active in several waves is priced once, at the flows of
		// its first active wave.
		var fresh []domain.Gate
		for _, g := range gates {
			if _, done := energyDone[g.GateID]; done {
				continue
			}
			energyDone[g.GateID] = struct{}{}
			fresh = append(fresh, g)
		}
		pr.energySites = append(pr.energySites, AnalyzeEnergyRecovery(fresh, settings.SegmentFlows, o.cfg.Energy)...)

		// The next wave takes over once this wave's slowest delivery lands.
		if waveEnd.After(waveStart) {
			waveStart = waveEnd
		}

		if pctx.Err() != nil {
			pr.timeLimited = true
			break
		}
	}

	// Infeasible requests still get a reported outcome.
	for _, s := range scheduled {
		if reports[s.Request.RequestID].Feasible {
			continue
		}
		pr.outcomes = append(pr.outcomes, outcomeFor(s, reports[s.Request.RequestID], 0, s.Wave))
	}

	return pr
}

func outcomeFor(s ScheduledRequest, report FeasibilityReport, flow float64, wave int) domain.DeliveryOutcome {
	return domain.DeliveryOutcome{
		RequestID:   s.Request.RequestID,
		Feasible:    report.Feasible,
		RequiredM:   report.RequiredHeadM,
		AvailableM:  report.AvailableHeadM,
		MarginM:     report.MarginM,
		FlowM3s:     flow,
		Wave:        wave,
		PathSegIDs:  s.Path.SegmentIDs(),
		PathGateIDs: s.Path.GateIDs(),
	}
}

type partition struct {
	key      string
	requests []domain.Request
}

// partitionRequests groups requests whose paths share any segment or gate.
// The partition key is the smallest segment id in the group, which keeps
// lock identity stable across runs over the same topology.
func partitionRequests(requests []domain.Request, paths map[string]*Path) []partition {
	type group struct {
		requests []domain.Request
		paths    []*Path
	}
	var groups []*group

	for _, req := range requests {
		p, ok := paths[req.RequestID]
		if !ok {
			continue
		}

		var merged *group
		for _, g := range groups {
			if sharesAny(p, g.paths) {
				if merged == nil {
					g.requests = append(g.requests, req)
					g.paths = append(g.paths, p)
					merged = g
				} else {
					// Path bridges two existing groups: fold them together.
					merged.requests = append(merged.requests, g.requests...)
					merged.paths = append(merged.paths, g.paths...)
					g.requests = nil
					g.paths = nil
				}
			}
		}
		if merged == nil {
			groups = append(groups, &group{requests: []domain.Request{req}, paths: []*Path{p}})
		}
	}

	var parts []partition
	for _, g := range groups {
		if len(g.requests) == 0 {
			continue
		}
		key := ""
		for _, p := range g.paths {
			for _, seg := range p.Segments {
				if key == "" || seg.SegmentID < key {
					key = seg.SegmentID
				}
			}
		}
		if key == "" {
			key = g.requests[0].RequestID
		}
		parts = append(parts, partition{key: key, requests: g.requests})
	}
	return parts
}

func mergePartition(result *domain.OptimizationResult, pr partitionResult) {
	result.Outcomes = append(result.Outcomes, pr.outcomes...)
	result.Settings = append(result.Settings, pr.settings...)
	result.EnergySites = append(result.EnergySites, pr.energySites...)
	result.ObjectiveVal += pr.objective
	result.Suboptimal = result.Suboptimal || pr.suboptimal
	result.TimeLimited = result.TimeLimited || pr.timeLimited
	result.Diagnostics.Iterations += pr.iterations
	result.Diagnostics.Converged = result.Diagnostics.Converged && pr.converged
}

// finalizeResult reports requests that never got a route as infeasible
// outcomes, then computes delivery efficiency: how much of the requested
// volume the optimized flows can land before each deadline.
func finalizeResult(result *domain.OptimizationResult, requests []domain.Request) {
	covered := make(map[string]struct{}, len(result.Outcomes))
	for _, out := range result.Outcomes {
		covered[out.RequestID] = struct{}{}
	}
	for _, req := range requests {
		if _, ok := covered[req.RequestID]; ok {
			continue
		}
		// No gravity route reaches this section from the source.
		result.Outcomes = append(result.Outcomes, domain.DeliveryOutcome{
			RequestID: req.RequestID,
			Feasible:  false,
		})
	}

	byID := make(map[string]domain.Request, len(requests))
	requestedTotal := 0.0
	for _, req := range requests {
		byID[req.RequestID] = req
		requestedTotal += req.VolumeM3
	}
	if requestedTotal <= 0 {
		return
	}

	delivered := 0.0
	for _, out := range result.Outcomes {
		if !out.Feasible || out.FlowM3s <= 0 {
			continue
		}
		req := byID[out.RequestID]
		window := req.Deadline.Sub(result.StartedAt).Seconds()
		if window <= 0 {
			continue
		}
		v := out.FlowM3s * window
		if v > req.VolumeM3 {
			v = req.VolumeM3
		}
		delivered += v
	}

	result.EfficiencyPc = 100 * delivered / requestedTotal
}

func highestNode(snap *domain.NetworkSnapshot) string {
	id := ""
	best := 0.0
	for _, n := range snap.Nodes {
		if id == "" || n.Elevation > best || (n.Elevation == best && n.NodeID < id) {
			id = n.NodeID
			best = n.Elevation
		}
	}
	return id
}
