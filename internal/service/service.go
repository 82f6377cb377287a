package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"ringaudit/internal/adapter"
	"ringaudit/internal/audit"
	"ringaudit/internal/codec"
	"ringaudit/internal/crawler"
	"ringaudit/internal/domain"
	"ringaudit/internal/metrics"
	"ringaudit/internal/repository"

	"github.com/google/uuid"
)

// Options configures an AuditService. Repo, Metrics and EventBus are optional.
type Options struct {
	Crawl    crawler.Options
	Deadline time.Duration
	Repo     repository.Repository
	Metrics  *metrics.Collector
	EventBus *EventBus
}

// AuditService runs audits: walk the ring, score and aggregate the nodes,
// then store, observe and announce the result
type AuditService struct {
	querier  adapter.Querier
	mu       sync.Mutex // guards opts.Crawl and opts.Deadline
	opts     Options
	eventBus *EventBus
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewAuditService creates a new audit service
func NewAuditService(q adapter.Querier, opts Options, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.EventBus
	if bus == nil {
		bus = NewEventBus()
	}
	return &AuditService{
		querier:  q,
		opts:     opts,
		eventBus: bus,
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run performs one audit. The audit is returned even when the walk was cut
// short; a deadline from Options ends the walk with OutcomeCancelled but is
// not reported as an error. Cancellation of ctx itself is.
func (s *AuditService) Run(ctx context.Context) (*domain.Audit, error) {
	s.mu.Lock()
	crawlOpts, deadline := s.opts.Crawl, s.opts.Deadline
	s.mu.Unlock()

	a := &domain.Audit{
		ID:        s.newID(),
		StartedAt: s.now(),
		Secure:    crawlOpts.Mode == adapter.TransportSecure,
	}

	s.eventBus.Publish(Event{
		Type:    EventAuditStarted,
		Payload: map[string]string{"audit_id": a.ID},
	})

	walkCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		walkCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	walker := crawler.New(s.querier, crawlOpts, s.log)
	res, walkErr := walker.Walk(walkCtx)
	if walkErr != nil && ctx.Err() == nil && errors.Is(walkErr, context.DeadlineExceeded) {
		s.log.Warn("crawl deadline reached", "deadline", deadline, "recorded", res.Nodes.Len())
		walkErr = nil
	}

	a.FinishedAt = s.now()
	a.Start = res.Start
	a.Outcome = res.Outcome
	a.Queries = res.Queries
	a.Failures = res.Failures
	a.Nodes = res.Nodes
	s.evaluate(a)

	// Stored even after ctx is cancelled
	if s.opts.Repo != nil {
		if err := s.opts.Repo.SaveAudit(context.WithoutCancel(ctx), a); err != nil {
			return a, fmt.Errorf("save audit: %w", err)
		}
		s.eventBus.Publish(Event{
			Type:    EventAuditSaved,
			Payload: map[string]string{"audit_id": a.ID},
		})
	}

	s.eventBus.Publish(Event{
		Type:    EventAuditFinished,
		Payload: Summarize(a),
	})

	s.log.Info("audit finished",
		"id", a.ID,
		"outcome", a.Outcome,
		"nodes", a.Metrics.Count,
		"consistent", a.ConsistentNodes(),
		"duration", a.Duration())

	return a, walkErr
}

// Reconfigure replaces the crawl options and deadline used by later runs
func (s *AuditService) Reconfigure(crawl crawler.Options, deadline time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Crawl = crawl
	s.opts.Deadline = deadline
	s.log.Info("audit settings changed", "mode", crawl.Mode, "deadline", deadline)
}

// Replay re-scores and re-aggregates an audit loaded from an export. Stored
// scores and metrics are discarded. Nothing is persisted.
func (s *AuditService) Replay(a *domain.Audit) *domain.Audit {
	if a.Nodes == nil {
		a.Nodes = domain.NewNodeSet()
	}
	s.evaluate(a)
	s.log.Info("audit replayed", "id", a.ID, "nodes", a.Metrics.Count, "consistent", a.ConsistentNodes())
	return a
}

// History returns the most recent stored audits
func (s *AuditService) History(ctx context.Context, limit int) ([]domain.AuditSummary, error) {
	if s.opts.Repo == nil {
		return nil, fmt.Errorf("no audit history configured")
	}
	return s.opts.Repo.ListAudits(ctx, limit)
}

// GetAudit loads a stored audit by ID
func (s *AuditService) GetAudit(ctx context.Context, id string) (*domain.Audit, error) {
	if s.opts.Repo == nil {
		return nil, fmt.Errorf("no audit history configured")
	}
	a, err := s.opts.Repo.GetAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("audit %s not found", id)
	}
	return a, nil
}

// evaluate scores every node, aggregates the set and updates the metrics
// collector
func (s *AuditService) evaluate(a *domain.Audit) {
	audit.Score(a.Nodes)
	a.Metrics = audit.Aggregate(a.Nodes)
	if s.opts.Metrics != nil {
		s.opts.Metrics.Observe(a)
	}
}

// ExportAudit writes an audit in the given format
func ExportAudit(a *domain.Audit, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(a, w)
}

// ImportAudit reads an audit written by ExportAudit
func ImportAudit(format string, r io.Reader) (*domain.Audit, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	a, err := c.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s audit: %w", format, err)
	}
	return a, nil
}
