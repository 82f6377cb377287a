package audit

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringaudit/internal/domain"
)

func addr(t *testing.T, n uint64) domain.Address {
	t.Helper()
	b := make([]byte, domain.AddressLength)
	binary.BigEndian.PutUint64(b[domain.AddressLength-8:], n)
	a, err := domain.AddressFromBytes(b)
	require.NoError(t, err)
	return a
}

// ring builds a consistent node set over addrs in right-walking order
func ring(addrs []domain.Address, secondHop bool) *domain.NodeSet {
	set := domain.NewNodeSet()
	n := len(addrs)
	for i, a := range addrs {
		rec := &domain.NodeRecord{
			Right: addrs[(i+1)%n],
			Left:  addrs[(i-1+n)%n],
		}
		if secondHop {
			rec.Right2 = addrs[(i+2)%n]
			rec.Left2 = addrs[(i-2+2*n)%n]
		}
		set.Put(a, rec)
	}
	return set
}

func fourNodes(t *testing.T) []domain.Address {
	return []domain.Address{addr(t, 40), addr(t, 30), addr(t, 20), addr(t, 10)}
}

func TestAggregateFourNodeRing(t *testing.T) {
	m := Aggregate(ring(fourNodes(t), false))

	assert.Equal(t, domain.Metrics{
		Count:            4,
		RightConsistent1: 4,
		LeftConsistent1:  4,
	}, m)
	assert.Equal(t, 1.0, m.Ratio())
}

func TestAggregateWithSecondHops(t *testing.T) {
	m := Aggregate(ring(fourNodes(t), true))

	assert.Equal(t, 4, m.RightConsistent2)
	assert.Equal(t, 4, m.LeftConsistent2)
}

func TestAggregateSumsCounters(t *testing.T) {
	set := ring(fourNodes(t), false)
	for _, n := range set.All() {
		n.TCPEdges = 1
		n.TunnelEdges = 2
		n.UDPEdges = 3
		n.WeakEdges = 4
		n.ConsCount = 5
		n.StrongEdges = 6
	}

	m := Aggregate(set)

	assert.Equal(t, 24, m.Edges)
	assert.Equal(t, 4, m.TCP)
	assert.Equal(t, 8, m.Tunnel)
	assert.Equal(t, 12, m.UDP)
	assert.Equal(t, 16, m.WeakEdges)
	assert.Equal(t, 20, m.Cons)
	assert.Equal(t, 24, m.StrongEdges)
}

func TestAggregateIsIdempotent(t *testing.T) {
	set := ring(fourNodes(t), true)
	set.Put(addr(t, 99), &domain.NodeRecord{Right: addr(t, 1), UDPEdges: 3})

	first := Aggregate(set)
	second := Aggregate(set)
	assert.Equal(t, first, second)
}

func TestConsistencySymmetry(t *testing.T) {
	a, b := addr(t, 20), addr(t, 10)
	set := domain.NewNodeSet()
	set.Put(a, &domain.NodeRecord{Right: b})
	set.Put(b, &domain.NodeRecord{Left: a})

	recA, _ := set.Get(a)
	recB, _ := set.Get(b)
	assert.Equal(t, Agreement{Right1: true}, Check(set, a, recA))
	assert.Equal(t, Agreement{Left1: true}, Check(set, b, recB))

	m := Aggregate(set)
	assert.Equal(t, 1, m.RightConsistent1)
	assert.Equal(t, 1, m.LeftConsistent1)
}

func TestAggregatePartialRing(t *testing.T) {
	addrs := fourNodes(t)
	set := ring(addrs, false)

	// Drop a node: its neighbors now point at an unvisited address
	partial := domain.NewNodeSet()
	for a, n := range set.All() {
		if a != addrs[2] {
			partial.Put(a, n)
		}
	}

	m := Aggregate(partial)
	assert.Equal(t, 3, m.Count)
	assert.Equal(t, 2, m.RightConsistent1)
	assert.Equal(t, 2, m.LeftConsistent1)
	assert.InDelta(t, 2.0/3.0, m.Ratio(), 1e-9)
}

func TestAggregateUnsetPointersNeverMatch(t *testing.T) {
	a := addr(t, 5)
	set := domain.NewNodeSet()
	// A node whose unset right2/left2 would "match" another unset pointer
	set.Put(a, &domain.NodeRecord{Right: a, Left: a})

	m := Aggregate(set)
	assert.Equal(t, 1, m.RightConsistent1)
	assert.Equal(t, 0, m.RightConsistent2)
	assert.Equal(t, 0, m.LeftConsistent2)
}

func TestAggregateEmpty(t *testing.T) {
	m := Aggregate(domain.NewNodeSet())
	assert.Equal(t, domain.Metrics{}, m)
	assert.Equal(t, 0.0, m.Ratio())
	assert.Equal(t, [12]int{}, m.Tuple())
}

func TestScore(t *testing.T) {
	addrs := fourNodes(t)

	tests := []struct {
		name      string
		secondHop bool
		want      float64
	}{
		{"immediate only", false, 0.5},
		{"both hops", true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := ring(addrs, tt.secondHop)
			Score(set)
			for _, n := range set.All() {
				assert.Equal(t, tt.want, n.ConsistencyScore)
			}
			assert.Equal(t, tt.want, MeanScore(set))
		})
	}
}

func TestScoreIgnoresRightAgreement(t *testing.T) {
	a, b := addr(t, 20), addr(t, 10)
	set := domain.NewNodeSet()
	set.Put(a, &domain.NodeRecord{Right: b})
	set.Put(b, &domain.NodeRecord{Left: a})

	Score(set)

	recA, _ := set.Get(a)
	recB, _ := set.Get(b)
	assert.Equal(t, 0.0, recA.ConsistencyScore, "right-facing agreement does not score")
	assert.Equal(t, 0.5, recB.ConsistencyScore)
}

func TestScoreOf(t *testing.T) {
	assert.Equal(t, 0.0, ScoreOf(Agreement{Right1: true, Right2: true}))
	assert.Equal(t, 0.5, ScoreOf(Agreement{Left2: true}))
	assert.Equal(t, 1.0, ScoreOf(Agreement{Left1: true, Left2: true}))
	assert.Equal(t, 0.0, MeanScore(domain.NewNodeSet()))
}
