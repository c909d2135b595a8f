// Package metrics holds the prometheus collectors of the relationship service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComputeTotal counts relation computations by result (ok, invalid_input, not_found, error)
	ComputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vanshavali_relation_compute_total",
		Help: "Total relation computations by result",
	}, []string{"result"})

	// ComputeDuration tracks latency of one computeRelations call, snapshot load included
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vanshavali_relation_compute_duration_seconds",
		Help:    "Relation computation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	// RelationsPerMember tracks how many relations a member ends up with
	RelationsPerMember = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vanshavali_relations_per_member",
		Help:    "Number of computed relations per member",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
	})

	// AnomaliesTotal counts recovered data problems by kind (inconsistent_graph, rule_not_found)
	AnomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vanshavali_relation_anomalies_total",
		Help: "Recovered graph inconsistencies and missing rules by kind",
	}, []string{"kind"})

	// SnapshotLoads counts member graph and rule table loads by result
	SnapshotLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vanshavali_snapshot_loads_total",
		Help: "Member graph snapshot loads by result",
	}, []string{"result"})

	SnapshotMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vanshavali_snapshot_members",
		Help: "Members in the most recently loaded graph snapshot",
	})

	// GenerationJobs counts materialization jobs by result (ok, failed, dropped)
	GenerationJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vanshavali_generation_jobs_total",
		Help: "Relationship materialization jobs by result",
	}, []string{"result"})

	GenerationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vanshavali_generation_queue_depth",
		Help: "Materialization jobs waiting in the queue",
	})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vanshavali_realtime_clients",
		Help: "Connected websocket clients",
	})
)
