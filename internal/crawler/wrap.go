package crawler

import (
	"fmt"

	"ringaudit/internal/domain"
)

// WrapState tracks progress around the ring relative to the start address.
// Walking right visits decreasing addresses, so the walk first covers the
// addresses below the start, wraps to the top of the address space and comes
// back down to the start.
type WrapState int

const (
	// BeforeWrap: only addresses at or below the start seen so far
	BeforeWrap WrapState = iota
	// PastStart: an address above the start was seen; the walk has wrapped
	PastStart
	// Done: the walk is back at (or below) the start
	Done
)

func (w WrapState) String() string {
	switch w {
	case BeforeWrap:
		return "before-wrap"
	case PastStart:
		return "past-start"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("WrapState(%d)", int(w))
	}
}

// Next returns the state after observing an address. recorded is the number
// of nodes recorded before this observation.
func (w WrapState) Next(observed, start domain.Address, recorded int) WrapState {
	switch {
	case w == Done:
		return Done
	case observed.Greater(start):
		return PastStart
	case w == PastStart && observed.LessOrEqual(start):
		return Done
	case observed == start && recorded > 1:
		return Done
	default:
		return w
	}
}
