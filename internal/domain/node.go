package domain

// NodeTypeTunneling is the node type reported by overlay nodes that carry a
// virtual IP tunnel; only these report VirtualIP and Namespace.
const NodeTypeTunneling = "IpopNode"

// NodeRecord is what the crawler keeps about one visited node
type NodeRecord struct {
	// Immediate neighbors (required)
	Right Address `json:"right" yaml:"right"`
	Left  Address `json:"left" yaml:"left"`

	// Second-hop neighbors (unset when the node did not report them)
	Right2 Address `json:"right2" yaml:"right2"`
	Left2  Address `json:"left2" yaml:"left2"`

	// Informational
	LocalIPs    []string `json:"local_ips,omitempty" yaml:"local_ips,omitempty"`
	GeoLocation string   `json:"geo_location,omitempty" yaml:"geo_location,omitempty"`
	NodeType    string   `json:"node_type,omitempty" yaml:"node_type,omitempty"`
	VirtualIP   string   `json:"virtual_ip,omitempty" yaml:"virtual_ip,omitempty"`
	Namespace   string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Retries is the number of failed queries spent reaching this node
	Retries int `json:"retries" yaml:"retries"`

	// Connectivity counters, zero when not reported
	ConsCount   int `json:"cons" yaml:"cons"`
	TCPEdges    int `json:"tcp" yaml:"tcp"`
	TunnelEdges int `json:"tunnel" yaml:"tunnel"`
	UDPEdges    int `json:"udp" yaml:"udp"`
	WeakEdges   int `json:"wedges" yaml:"wedges"`
	StrongEdges int `json:"sas" yaml:"sas"`

	// ConsistencyScore is 0, 0.5 or 1 (left-facing agreement only)
	ConsistencyScore float64 `json:"consistency" yaml:"consistency"`
}

// NewNodeRecord builds a record from a neighbor-info response
func NewNodeRecord(info *NeighborInfo, retries int) *NodeRecord {
	rec := &NodeRecord{
		Right:       info.Right,
		Left:        info.Left,
		Right2:      info.Right2,
		Left2:       info.Left2,
		GeoLocation: info.GeoLocation,
		NodeType:    info.Type,
		Retries:     retries,
		ConsCount:   info.Cons,
		TCPEdges:    info.TCP,
		TunnelEdges: info.Tunnel,
		UDPEdges:    info.UDP,
		WeakEdges:   info.WeakEdges,
		StrongEdges: info.StrongEdges,
	}
	if len(info.LocalIPs) > 0 {
		rec.LocalIPs = append([]string(nil), info.LocalIPs...)
	}
	if rec.IsTunneling() {
		rec.VirtualIP = info.VirtualIP
		rec.Namespace = info.Namespace
	}
	return rec
}

// IsTunneling reports whether the node is an overlay-tunneling variant
func (n *NodeRecord) IsTunneling() bool {
	return n.NodeType == NodeTypeTunneling
}

// Edges returns the total of tcp, tunnel and udp edges
func (n *NodeRecord) Edges() int {
	return n.TCPEdges + n.TunnelEdges + n.UDPEdges
}
