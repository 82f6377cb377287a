package service

import (
	"fmt"
	"io"
	"strconv"

	"ringaudit/internal/domain"
)

// Summarize reduces an audit to its stored header
func Summarize(a *domain.Audit) domain.AuditSummary {
	return domain.AuditSummary{
		ID:         a.ID,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
		Start:      a.Start,
		Outcome:    a.Outcome,
		NodeCount:  a.Metrics.Count,
		Ratio:      a.Metrics.Ratio(),
	}
}

// WriteReport prints the consistency report for an audit
func WriteReport(w io.Writer, a *domain.Audit) error {
	m := a.Metrics
	_, err := fmt.Fprintf(w, "Nodes: %d\nConsistent Nodes: %d\nConsistency: %s\n%s\n%s\n",
		m.Count,
		a.ConsistentNodes(),
		strconv.FormatFloat(m.Ratio(), 'g', -1, 64),
		domain.MetricsHeader,
		m.String())
	return err
}

// WriteHistory prints one line per stored audit
func WriteHistory(w io.Writer, audits []domain.AuditSummary) error {
	if len(audits) == 0 {
		_, err := fmt.Fprintln(w, "No audits recorded")
		return err
	}
	for _, s := range audits {
		start := s.Start.Short()
		if start == "" {
			start = "-"
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %-11s  nodes=%-5d consistency=%.3f  start=%s\n",
			s.StartedAt.Format("2006-01-02 15:04:05"),
			s.ID,
			s.Outcome,
			s.NodeCount,
			s.Ratio,
			start); err != nil {
			return err
		}
	}
	return nil
}
