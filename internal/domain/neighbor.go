package domain

// NeighborInfo is a node's answer to a neighbor-info query
type NeighborInfo struct {
	// Self is the address the queried node reports as its own. It may differ
	// from the address that was queried when routing tables are stale.
	Self Address

	Right  Address
	Left   Address
	Right2 Address
	Left2  Address

	LocalIPs    []string
	GeoLocation string
	Type        string

	// Only reported by tunneling nodes
	VirtualIP string
	Namespace string

	Cons        int
	TCP         int
	Tunnel      int
	UDP         int
	WeakEdges   int
	StrongEdges int
}
