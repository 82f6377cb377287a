package crawler

import "fmt"

// LadderState is the position of the walk on the retry ladder
type LadderState int

const (
	// Probing: keep querying the current target
	Probing LadderState = iota
	// BackingOff: the target stopped answering; re-query the last good node
	BackingOff
	// FailingOverToSecondHop: backing off did not help; jump to last's right2
	FailingOverToSecondHop
	// Aborted: second-hop failover was exhausted too
	Aborted
)

func (s LadderState) String() string {
	switch s {
	case Probing:
		return "probing"
	case BackingOff:
		return "backing-off"
	case FailingOverToSecondHop:
		return "failing-over"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("LadderState(%d)", int(s))
	}
}

// Limits bound the retry ladder
type Limits struct {
	// NoResponseMax consecutive failures against one target trigger a back-off
	NoResponseMax int
	// RetryMax back-offs trigger second-hop failover (or abort, once failed over)
	RetryMax int
}

// DefaultLimits returns the standard 3 x 3 ladder
func DefaultLimits() Limits {
	return Limits{NoResponseMax: 3, RetryMax: 3}
}

func (l Limits) normalized() Limits {
	if l.NoResponseMax <= 0 {
		l.NoResponseMax = 3
	}
	if l.RetryMax <= 0 {
		l.RetryMax = 3
	}
	return l
}

// Ladder tracks failures between successful steps. All transitions are pure:
// they return the next value and leave the receiver untouched.
type Ladder struct {
	State      LadderState
	NoResponse int
	Retries    int
	// SecondHop is set once failover has been used and stays set until the
	// walk makes progress past the node it failed over from.
	SecondHop bool
	// Failures counts failed queries since the walk last reached a new node
	Failures int
}

// Failed records one failed query
func (l Ladder) Failed(limits Limits) Ladder {
	limits = limits.normalized()
	if l.State == Aborted {
		return l
	}

	l.Failures++
	l.NoResponse++
	if l.NoResponse < limits.NoResponseMax {
		l.State = Probing
		return l
	}

	l.NoResponse = 0
	l.Retries++
	if l.Retries < limits.RetryMax {
		l.State = BackingOff
		return l
	}

	if l.SecondHop {
		l.State = Aborted
		return l
	}
	l.SecondHop = true
	l.Retries = 0
	l.NoResponse = 0
	l.State = FailingOverToSecondHop
	return l
}

// Succeeded records a successful query. moved reports whether the queried
// target differed from the last recorded node; re-querying the last node
// keeps the retry count so repeated back-offs still escalate.
func (l Ladder) Succeeded(moved bool) Ladder {
	if l.State == Aborted {
		return l
	}
	l.State = Probing
	l.NoResponse = 0
	if moved {
		l.Retries = 0
	}
	return l
}

// Advanced records that a node other than the last one was reached
func (l Ladder) Advanced() Ladder {
	l.SecondHop = false
	l.Failures = 0
	return l
}

// Abort forces the terminal state, used when no failover target exists
func (l Ladder) Abort() Ladder {
	l.State = Aborted
	return l
}
