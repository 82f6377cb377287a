package domain

import "iter"

// NodeSet maps addresses to node records, remembering visit order
type NodeSet struct {
	order   []Address
	records map[Address]*NodeRecord
}

// NewNodeSet creates an empty node set
func NewNodeSet() *NodeSet {
	return &NodeSet{
		records: make(map[Address]*NodeRecord),
	}
}

// Put stores rec under addr. A second Put for the same address replaces the
// record but keeps its original position.
func (s *NodeSet) Put(addr Address, rec *NodeRecord) {
	if _, exists := s.records[addr]; !exists {
		s.order = append(s.order, addr)
	}
	s.records[addr] = rec
}

// Get returns the record stored under addr
func (s *NodeSet) Get(addr Address) (*NodeRecord, bool) {
	if s == nil || !addr.IsSet() {
		return nil, false
	}
	rec, ok := s.records[addr]
	return rec, ok
}

// Has reports whether addr has been recorded
func (s *NodeSet) Has(addr Address) bool {
	_, ok := s.Get(addr)
	return ok
}

// Len returns the number of recorded nodes
func (s *NodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Addresses returns the recorded addresses in visit order
func (s *NodeSet) Addresses() []Address {
	if s == nil {
		return nil
	}
	out := make([]Address, len(s.order))
	copy(out, s.order)
	return out
}

// All iterates over the set in visit order
func (s *NodeSet) All() iter.Seq2[Address, *NodeRecord] {
	return func(yield func(Address, *NodeRecord) bool) {
		if s == nil {
			return
		}
		for _, addr := range s.order {
			if !yield(addr, s.records[addr]) {
				return
			}
		}
	}
}
