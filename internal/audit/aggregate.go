// Package audit checks a crawled node set for neighbor agreement.
//
// Two statistics are kept deliberately apart. Aggregate counts agreement in
// all four directions and the summary ratio uses the right-facing immediate
// count, while the per-node ConsistencyScore written by Score looks only at
// the two left-facing agreements. The asymmetry mirrors the long-standing
// audit output and is preserved as is.
package audit

import "ringaudit/internal/domain"

// Agreement is the outcome of the four directional checks for one node
type Agreement struct {
	Right1 bool
	Left1  bool
	Right2 bool
	Left2  bool
}

// Check tests addr's claimed neighbors against what they claim in return.
// Unset pointers and neighbors that were never visited do not agree.
func Check(nodes *domain.NodeSet, addr domain.Address, n *domain.NodeRecord) Agreement {
	var a Agreement
	if peer, ok := nodes.Get(n.Right); ok && peer.Left == addr {
		a.Right1 = true
	}
	if peer, ok := nodes.Get(n.Left); ok && peer.Right == addr {
		a.Left1 = true
	}
	if peer, ok := nodes.Get(n.Right2); ok && peer.Left2 == addr {
		a.Right2 = true
	}
	if peer, ok := nodes.Get(n.Left2); ok && peer.Right2 == addr {
		a.Left2 = true
	}
	return a
}

// Aggregate computes the summary metrics. It does not modify nodes.
func Aggregate(nodes *domain.NodeSet) domain.Metrics {
	var m domain.Metrics
	for addr, n := range nodes.All() {
		m.Count++

		a := Check(nodes, addr, n)
		if a.Right1 {
			m.RightConsistent1++
		}
		if a.Left1 {
			m.LeftConsistent1++
		}
		if a.Right2 {
			m.RightConsistent2++
		}
		if a.Left2 {
			m.LeftConsistent2++
		}

		m.StrongEdges += n.StrongEdges
		m.Cons += n.ConsCount
		m.WeakEdges += n.WeakEdges
		m.TCP += n.TCPEdges
		m.Tunnel += n.TunnelEdges
		m.UDP += n.UDPEdges
		m.Edges += n.Edges()
	}
	return m
}

// ScoreOf returns a node's consistency score: half a point for each of the
// two left-facing agreements
func ScoreOf(a Agreement) float64 {
	score := 0.0
	if a.Left1 {
		score++
	}
	if a.Left2 {
		score++
	}
	if score > 0 {
		score /= 2
	}
	return score
}

// Score writes ConsistencyScore on every record in nodes
func Score(nodes *domain.NodeSet) {
	for addr, n := range nodes.All() {
		n.ConsistencyScore = ScoreOf(Check(nodes, addr, n))
	}
}

// MeanScore averages the per-node scores; 0 for an empty set
func MeanScore(nodes *domain.NodeSet) float64 {
	if nodes.Len() == 0 {
		return 0
	}
	total := 0.0
	for _, n := range nodes.All() {
		total += n.ConsistencyScore
	}
	return total / float64(nodes.Len())
}
