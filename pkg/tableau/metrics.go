package tableau

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for engine-wide observability (6, "process-wide
// statistics counters, if compiled in, are mutated only on the
// session's thread"). Registered once at package init, like the
// teacher's metrics package; a process embedding more than one Session
// shares these counters across them, distinguished by nothing further
// since spec.md doesn't call for per-session label cardinality here
// (per-session identity belongs on log lines, not metric labels, to
// avoid unbounded label cardinality across long-lived fleets).
var (
	ruleFiringsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlreasoner_rule_firings_total",
			Help: "Tableau rule applications, by outcome",
		},
		[]string{"outcome"},
	)

	clashesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dlreasoner_clashes_total",
			Help: "Clashes detected during tableau expansion",
		},
	)

	backjumpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dlreasoner_backjumps_total",
			Help: "Dependency-directed backjumps performed",
		},
	)

	cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlreasoner_model_cache_total",
			Help: "Model cache lookups, by hit/miss",
		},
		[]string{"result"},
	)

	blockedNodeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlreasoner_blocked_nodes",
			Help: "Nodes currently blocked, as of the last query",
		},
	)

	branchingDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlreasoner_branching_depth",
			Help: "Branch stack depth at the end of the last query",
		},
	)

	queryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dlreasoner_query_duration_seconds",
			Help:    "Wall-clock duration of a single tableau query",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ruleFiringsTotal)
	prometheus.MustRegister(clashesTotal)
	prometheus.MustRegister(backjumpsTotal)
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(blockedNodeCount)
	prometheus.MustRegister(branchingDepth)
	prometheus.MustRegister(queryDuration)
}

// Metrics is the thin per-session handle Session.runQuery reports
// through; it exists as a struct (rather than calling the package-level
// collectors directly) so a future per-session label scheme only
// touches this one file.
type Metrics struct{}

// NewMetrics returns a Metrics handle bound to the package-level
// collectors registered above.
func NewMetrics() *Metrics { return &Metrics{} }

// ObserveQuery records one completed query's statistics against the
// registered collectors.
func (m *Metrics) ObserveQuery(stats Stats, elapsed time.Duration) {
	ruleFiringsTotal.WithLabelValues("applied").Add(float64(stats.RuleFirings))
	clashesTotal.Add(float64(stats.Clashes))
	backjumpsTotal.Add(float64(stats.Backjumps))
	cacheHitsTotal.WithLabelValues("hit").Add(float64(stats.CacheHits))
	cacheHitsTotal.WithLabelValues("miss").Add(float64(stats.CacheMisses))
	queryDuration.Observe(elapsed.Seconds())
}

// ObserveBlocking records the blocked-node count and branch depth
// snapshot at the end of a query.
func (m *Metrics) ObserveBlocking(blocked int, depth int) {
	blockedNodeCount.Set(float64(blocked))
	branchingDepth.Set(float64(depth))
}
