package domain

import (
	"fmt"
	"strings"
)

// MetricsHeader names the values returned by Metrics.Tuple, in order
const MetricsHeader = "count, r1consistency, r2consistency, l1consistency, l2consistency, edges, cons, sas, wedges, tcp, tunnel, udp"

// Metrics summarizes the consistency and connectivity of a node set
type Metrics struct {
	Count            int `json:"count" yaml:"count"`
	RightConsistent1 int `json:"r1consistency" yaml:"r1consistency"`
	RightConsistent2 int `json:"r2consistency" yaml:"r2consistency"`
	LeftConsistent1  int `json:"l1consistency" yaml:"l1consistency"`
	LeftConsistent2  int `json:"l2consistency" yaml:"l2consistency"`
	Edges            int `json:"edges" yaml:"edges"`
	Cons             int `json:"cons" yaml:"cons"`
	StrongEdges      int `json:"sas" yaml:"sas"`
	WeakEdges        int `json:"wedges" yaml:"wedges"`
	TCP              int `json:"tcp" yaml:"tcp"`
	Tunnel           int `json:"tunnel" yaml:"tunnel"`
	UDP              int `json:"udp" yaml:"udp"`
}

// Tuple returns the metrics in MetricsHeader order
func (m Metrics) Tuple() [12]int {
	return [12]int{
		m.Count,
		m.RightConsistent1,
		m.RightConsistent2,
		m.LeftConsistent1,
		m.LeftConsistent2,
		m.Edges,
		m.Cons,
		m.StrongEdges,
		m.WeakEdges,
		m.TCP,
		m.Tunnel,
		m.UDP,
	}
}

// Ratio is the share of nodes whose right neighbor points back at them.
// It is 0 for an empty set.
func (m Metrics) Ratio() float64 {
	if m.RightConsistent1 == 0 {
		return 0
	}
	return float64(m.RightConsistent1) / float64(m.Count)
}

// String formats the tuple as "(a, b, ...)"
func (m Metrics) String() string {
	t := m.Tuple()
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
