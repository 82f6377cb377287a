// Package metrics exposes audit results as Prometheus gauges. A crawl is a
// short-lived batch job, so the registry is written to a node_exporter
// textfile instead of being served.
package metrics

import (
	"fmt"

	"ringaudit/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ringaudit"

// Collector holds the gauges for the most recent audit plus run counters
type Collector struct {
	registry *prometheus.Registry

	nodes       prometheus.Gauge
	consistency *prometheus.GaugeVec
	edges       *prometheus.GaugeVec
	ratio       prometheus.Gauge
	queries     prometheus.Gauge
	failures    prometheus.Gauge
	duration    prometheus.Gauge
	lastRun     prometheus.Gauge
	audits      *prometheus.CounterVec
	retries     prometheus.Histogram
}

// New creates a collector on its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Nodes visited by the last audit",
		}),
		consistency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consistent_nodes",
			Help:      "Nodes whose neighbor at the given side and hop points back",
		}, []string{"side", "hop"}),
		edges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Connections summed over the last audit, by kind",
		}, []string{"kind"}),
		ratio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consistency_ratio",
			Help:      "Share of nodes whose right neighbor agrees",
		}),
		queries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queries",
			Help:      "Neighbor queries issued by the last audit",
		}),
		failures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "query_failures",
			Help:      "Failed neighbor queries in the last audit",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Wall time of the last audit",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last audit finished",
		}),
		audits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Audits run by outcome",
		}, []string{"outcome"}),
		retries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_retries",
			Help:      "Failed queries spent reaching each node",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 40},
		}),
	}
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records an audit
func (c *Collector) Observe(a *domain.Audit) {
	m := a.Metrics

	c.nodes.Set(float64(m.Count))
	c.consistency.WithLabelValues("right", "1").Set(float64(m.RightConsistent1))
	c.consistency.WithLabelValues("right", "2").Set(float64(m.RightConsistent2))
	c.consistency.WithLabelValues("left", "1").Set(float64(m.LeftConsistent1))
	c.consistency.WithLabelValues("left", "2").Set(float64(m.LeftConsistent2))

	for kind, v := range map[string]int{
		"all":    m.Edges,
		"cons":   m.Cons,
		"sas":    m.StrongEdges,
		"wedges": m.WeakEdges,
		"tcp":    m.TCP,
		"tunnel": m.Tunnel,
		"udp":    m.UDP,
	} {
		c.edges.WithLabelValues(kind).Set(float64(v))
	}

	c.ratio.Set(m.Ratio())
	c.queries.Set(float64(a.Queries))
	c.failures.Set(float64(a.Failures))
	c.duration.Set(a.Duration().Seconds())
	if !a.FinishedAt.IsZero() {
		c.lastRun.Set(float64(a.FinishedAt.Unix()))
	}
	c.audits.WithLabelValues(string(a.Outcome)).Inc()

	if a.Nodes != nil {
		for _, rec := range a.Nodes.All() {
			c.retries.Observe(float64(rec.Retries))
		}
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
