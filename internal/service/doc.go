// Package service implements the audit workflow for ringaudit.
//
// AuditService coordinates the crawler, the consistency aggregator and the
// optional collaborators around them:
//
//   - crawler.Walker walks the ring through an adapter.Querier
//   - audit.Score and audit.Aggregate derive per-node scores and metrics
//   - repository.Repository stores each finished audit
//   - metrics.Collector exposes the latest audit as Prometheus gauges
//
// Every audit publishes events on an EventBus (started, saved, finished) so
// a long-running watch loop can log progress without polling.
//
// Replay runs the same scoring and aggregation over an audit read back from
// an export, without touching the network.
package service
