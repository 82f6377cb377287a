package crawler

import (
	"context"
	"log/slog"

	"ringaudit/internal/adapter"
	"ringaudit/internal/domain"
)

// Options configure a walk
type Options struct {
	// Mode selects plain or secure routing for neighbor-info queries
	Mode adapter.TransportMode
	// Limits bound the retry ladder
	Limits Limits
}

// DefaultOptions returns plain transport with the default ladder
func DefaultOptions() Options {
	return Options{Mode: adapter.TransportPlain, Limits: DefaultLimits()}
}

// Result is everything a walk observed. It is valid for aggregation whatever
// the outcome.
type Result struct {
	Start    domain.Address
	Nodes    *domain.NodeSet
	Outcome  domain.Outcome
	Queries  int
	Failures int
}

// Complete reports whether the walk made it all the way around the ring
func (r *Result) Complete() bool {
	return r.Outcome == domain.OutcomeComplete
}

// Walker crawls the ring one node at a time
type Walker struct {
	querier adapter.Querier
	opts    Options
	log     *slog.Logger
}

// New creates a walker that reaches nodes through q
func New(q adapter.Querier, opts Options, logger *slog.Logger) *Walker {
	if opts.Mode == "" {
		opts.Mode = adapter.TransportPlain
	}
	opts.Limits = opts.Limits.normalized()
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{querier: q, opts: opts, log: logger}
}

// Walk starts at the entry node and follows right pointers until it is back
// where it started. Unreachable nodes are absorbed by the retry ladder; when
// the ladder gives up the nodes gathered so far are returned with
// OutcomeAborted. The only error returned is ctx's, alongside the partial
// result.
func (w *Walker) Walk(ctx context.Context) (*Result, error) {
	res := &Result{Nodes: domain.NewNodeSet()}

	start, err := w.localAddress(ctx, res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Outcome = domain.OutcomeCancelled
			return res, ctxErr
		}
		res.Outcome = domain.OutcomeUnreachable
		w.log.Warn("unable to crawl the system: entry node did not report its address", "error", err)
		return res, nil
	}
	res.Start = start
	w.log.Info("crawl started", "start", start.String(), "mode", w.opts.Mode)

	var (
		current = start
		last    = start
		forward = true // current came from a right or right2 pointer
		ladder  Ladder
		wrap    WrapState
	)

	for {
		if err := ctx.Err(); err != nil {
			res.Outcome = domain.OutcomeCancelled
			w.log.Warn("crawl cancelled", "recorded", res.Nodes.Len(), "error", err)
			return res, err
		}

		w.log.Debug("query", "addr", current.String(), "retries", ladder.Retries, "no_response", ladder.NoResponse)
		res.Queries++
		info, err := w.querier.NeighborInfo(ctx, current, w.opts.Mode)
		if err != nil {
			res.Failures++
			ladder = ladder.Failed(w.opts.Limits)
			w.log.Debug("query failed", "addr", current.String(), "ladder", ladder.State.String(), "error", err)

			switch ladder.State {
			case BackingOff:
				current, forward = last, false
			case FailingOverToSecondHop:
				next, ok := secondHop(res.Nodes, last)
				if !ok {
					ladder = ladder.Abort()
					break
				}
				w.log.Debug("failing over to second hop", "from", last.String(), "to", next.String())
				current, forward = next, true
			}

			if ladder.State == Aborted {
				res.Outcome = domain.OutcomeAborted
				w.log.Warn("unable to crawl the system", "last", last.String(), "recorded", res.Nodes.Len())
				return res, nil
			}
			continue
		}

		ladder = ladder.Succeeded(current != last)
		observed := info.Self

		wrap = wrap.Next(observed, start, res.Nodes.Len())
		if wrap == Done {
			res.Outcome = domain.OutcomeComplete
			break
		}
		if forward && res.Nodes.Has(observed) {
			if observed == start {
				res.Outcome = domain.OutcomeComplete
			} else {
				res.Outcome = domain.OutcomeLooped
				w.log.Warn("crawl revisited a node before returning to the start", "addr", observed.String())
			}
			break
		}

		retries := ladder.Failures
		if observed != last {
			ladder = ladder.Advanced()
		} else if prev, ok := res.Nodes.Get(observed); ok {
			retries = prev.Retries
		}

		rec := domain.NewNodeRecord(info, retries)
		res.Nodes.Put(observed, rec)
		w.log.Debug("recorded", "addr", observed.String(), "right", rec.Right.String(), "left", rec.Left.String())

		last = observed
		current, forward = rec.Right, true
	}

	w.log.Info("crawl finished", "outcome", res.Outcome, "nodes", res.Nodes.Len(), "queries", res.Queries, "failures", res.Failures)
	return res, nil
}

// localAddress asks the entry node who it is, retrying up to NoResponseMax
func (w *Walker) localAddress(ctx context.Context, res *Result) (domain.Address, error) {
	var lastErr error
	for attempt := 0; attempt < w.opts.Limits.NoResponseMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Address{}, err
		}
		res.Queries++
		addr, err := w.querier.LocalAddress(ctx)
		if err == nil {
			return addr, nil
		}
		res.Failures++
		lastErr = err
		w.log.Debug("local address query failed", "attempt", attempt+1, "error", err)
	}
	return domain.Address{}, lastErr
}

// secondHop returns the right2 pointer recorded for addr
func secondHop(nodes *domain.NodeSet, addr domain.Address) (domain.Address, bool) {
	rec, ok := nodes.Get(addr)
	if !ok || !rec.Right2.IsSet() {
		return domain.Address{}, false
	}
	return rec.Right2, true
}
