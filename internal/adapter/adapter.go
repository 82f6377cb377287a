package adapter

import (
	"context"
	"errors"

	"ringaudit/internal/domain"
)

// TransportMode selects how queries are routed through the overlay
type TransportMode string

const (
	// TransportPlain routes queries over the overlay without end-to-end security
	TransportPlain TransportMode = "plain"
	// TransportSecure routes queries through a secured sender
	TransportSecure TransportMode = "secure"
)

// ModeFor returns TransportSecure when secure is set, TransportPlain otherwise
func ModeFor(secure bool) TransportMode {
	if secure {
		return TransportSecure
	}
	return TransportPlain
}

// ErrMalformedResponse is returned when a node answers without the fields the
// crawler needs (self, right, left) or with unparsable addresses
var ErrMalformedResponse = errors.New("malformed neighbor info response")

// Querier is the remote-query collaborator used by the crawler. Any error is
// a failed query; implementations need not distinguish unreachable nodes from
// bad responses.
type Querier interface {
	// LocalAddress returns the address of the node behind the entry endpoint
	LocalAddress(ctx context.Context) (domain.Address, error)

	// NeighborInfo asks the node at addr for its neighbor table and counters
	NeighborInfo(ctx context.Context, addr domain.Address, mode TransportMode) (*domain.NeighborInfo, error)
}
