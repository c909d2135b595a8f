package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/metrics"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/rules"
)

const snapshotKey = "snapshot"

type snapshot struct {
	graph    *kinship.Graph
	rules    *kinship.RuleTable
	loadedAt time.Time
	version  uint64
}

// RelationService answers relationship queries over a read-only snapshot of
// the member store and the rule table. Snapshots are shared between
// concurrent callers and reloaded after Invalidate or when the TTL expires.
type RelationService struct {
	Members repository.MemberRepositoryInterface
	Rules   repository.RelationRuleRepositoryInterface
	Engine  *kinship.Engine
	TTL     time.Duration

	group   singleflight.Group
	mu      sync.RWMutex
	snap    *snapshot
	version uint64
}

func NewRelationService(members repository.MemberRepositoryInterface, ruleRepo repository.RelationRuleRepositoryInterface, engine *kinship.Engine, ttl time.Duration) *RelationService {
	if engine == nil {
		engine = kinship.NewEngine(kinship.DefaultOptions())
	}
	return &RelationService{
		Members: members,
		Rules:   ruleRepo,
		Engine:  engine,
		TTL:     ttl,
	}
}

// ComputeRelations validates raw before touching the store and returns every
// relation of that member. Errors wrap kinship.ErrInvalidInput or
// kinship.ErrNotFound for client mistakes.
func (s *RelationService) ComputeRelations(ctx context.Context, raw string) ([]kinship.ComputedRelation, error) {
	start := time.Now()
	defer func() { metrics.ComputeDuration.Observe(time.Since(start).Seconds()) }()

	serNo, err := kinship.ParseSerNo(raw)
	if err != nil {
		metrics.ComputeTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	res, err := s.Compute(ctx, serNo)
	if err != nil {
		return nil, err
	}
	return res.Relations, nil
}

// Compute is ComputeRelations for an already validated serial number.
func (s *RelationService) Compute(ctx context.Context, serNo int64) (*kinship.Result, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		metrics.ComputeTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	res, err := s.Engine.Compute(snap.graph, snap.rules, serNo)
	if err != nil {
		if errors.Is(err, kinship.ErrNotFound) {
			metrics.ComputeTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.ComputeTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	s.reportAnomalies(serNo, res.Anomalies)
	metrics.ComputeTotal.WithLabelValues("ok").Inc()
	metrics.RelationsPerMember.Observe(float64(len(res.Relations)))
	return res, nil
}

// Relationship returns the relation of member from to member to.
func (s *RelationService) Relationship(ctx context.Context, fromRaw, toRaw string) (*kinship.ComputedRelation, error) {
	from, err := kinship.ParseSerNo(fromRaw)
	if err != nil {
		return nil, err
	}
	to, err := kinship.ParseSerNo(toRaw)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, &kinship.InvalidInputError{Value: toRaw, Reason: "a member has no relation to itself"}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Engine.Between(snap.graph, snap.rules, from, to)
}

// SerNos lists every member of the current snapshot in ascending order.
func (s *RelationService) SerNos(ctx context.Context) ([]int64, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.graph.SerNos(), nil
}

// Invalidate drops the cached snapshot. Loads already in flight are not
// stored once they finish.
func (s *RelationService) Invalidate() {
	s.mu.Lock()
	s.version++
	s.snap = nil
	s.mu.Unlock()
	s.group.Forget(snapshotKey)
}

func (s *RelationService) snapshot(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap, version := s.snap, s.version
	s.mu.RUnlock()
	if snap != nil && s.TTL > 0 && time.Since(snap.loadedAt) < s.TTL {
		return snap, nil
	}

	ch := s.group.DoChan(snapshotKey, func() (interface{}, error) {
		return s.load(version)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*snapshot), nil
	}
}

func (s *RelationService) load(version uint64) (*snapshot, error) {
	rows, err := s.Members.ListAll()
	if err != nil {
		metrics.SnapshotLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	members := make([]kinship.Member, len(rows))
	for i := range rows {
		members[i] = rows[i].ToKinship()
	}

	table, err := s.loadRules()
	if err != nil {
		metrics.SnapshotLoads.WithLabelValues("error").Inc()
		return nil, err
	}

	graph := kinship.NewGraph(members)
	for _, a := range graph.Anomalies() {
		log.Printf("Warning: member graph: %v", a)
	}
	metrics.AnomaliesTotal.WithLabelValues("inconsistent_graph").Add(float64(len(graph.Anomalies())))
	metrics.SnapshotLoads.WithLabelValues("ok").Inc()
	metrics.SnapshotMembers.Set(float64(graph.Len()))

	snap := &snapshot{graph: graph, rules: table, loadedAt: time.Now(), version: version}

	s.mu.Lock()
	if s.version == version {
		s.snap = snap
	}
	s.mu.Unlock()
	return snap, nil
}

// loadRules builds the rule table from the store, or from the embedded
// default while the store is still empty.
func (s *RelationService) loadRules() (*kinship.RuleTable, error) {
	var rs []kinship.Rule
	if s.Rules != nil {
		rows, err := s.Rules.ListAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load relation rules: %w", err)
		}
		rs = make([]kinship.Rule, len(rows))
		for i := range rows {
			rs[i] = rows[i].ToKinship()
		}
	}
	if len(rs) == 0 {
		def, err := rules.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load default relation rules: %w", err)
		}
		rs = def
	}
	table, err := kinship.NewRuleTable(rs)
	if err != nil {
		return nil, fmt.Errorf("stored relation rules are invalid: %w", err)
	}
	return table, nil
}

func (s *RelationService) reportAnomalies(serNo int64, anomalies []error) {
	for _, a := range anomalies {
		var ig *kinship.InconsistentGraphError
		var rn *kinship.RuleNotFoundError
		switch {
		case errors.As(a, &ig):
			metrics.AnomaliesTotal.WithLabelValues("inconsistent_graph").Inc()
		case errors.As(a, &rn):
			metrics.AnomaliesTotal.WithLabelValues("rule_not_found").Inc()
		}
		log.Printf("Warning: relations of member %d: %v", serNo, a)
	}
}
