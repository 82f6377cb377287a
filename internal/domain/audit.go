package domain

import "time"

// Outcome describes how a walk ended
type Outcome string

const (
	OutcomeComplete    Outcome = "complete"    // Wrapped around to the start
	OutcomeAborted     Outcome = "aborted"     // Retry and failover exhausted
	OutcomeLooped      Outcome = "looped"      // Revisited a node other than the start
	OutcomeUnreachable Outcome = "unreachable" // Entry node never reported its address
	OutcomeCancelled   Outcome = "cancelled"   // Context cancelled or deadline hit
)

// Audit is one complete run: the walk, its node set and the derived metrics
type Audit struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Start      Address   `json:"start"`
	Outcome    Outcome   `json:"outcome"`
	Secure     bool      `json:"secure"`
	Queries    int       `json:"queries"`
	Failures   int       `json:"failures"`
	Nodes      *NodeSet  `json:"-"`
	Metrics    Metrics   `json:"metrics"`
}

// Duration returns how long the run took
func (a *Audit) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// ConsistentNodes returns the number of nodes whose right neighbor agrees
func (a *Audit) ConsistentNodes() int {
	return a.Metrics.RightConsistent1
}

// AuditSummary is the stored header of an audit, without its nodes
type AuditSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Start      Address   `json:"start"`
	Outcome    Outcome   `json:"outcome"`
	NodeCount  int       `json:"node_count"`
	Ratio      float64   `json:"ratio"`
}
