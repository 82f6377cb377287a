package codec

import (
	"fmt"
	"io"
	"time"

	"ringaudit/internal/domain"
)

// Importer interface for reading audits back from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Audit, error)
	Format() string
}

// Exporter interface for writing audits to various formats
type Exporter interface {
	Export(audit *domain.Audit, w io.Writer) error
	Format() string
}

// Codec both exports and imports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for "json" or "yaml"
func ForFormat(format string) (Codec, error) {
	switch format {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// auditDoc is the serialized form shared by the JSON and YAML codecs
type auditDoc struct {
	ID         string         `json:"id" yaml:"id"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Start      string         `json:"start" yaml:"start"`
	Outcome    string         `json:"outcome" yaml:"outcome"`
	Secure     bool           `json:"secure" yaml:"secure"`
	Queries    int            `json:"queries" yaml:"queries"`
	Failures   int            `json:"failures" yaml:"failures"`
	Metrics    domain.Metrics `json:"metrics" yaml:"metrics"`
	Ratio      float64        `json:"ratio" yaml:"ratio"`
	Nodes      []nodeDoc      `json:"nodes" yaml:"nodes"`
}

type nodeDoc struct {
	Address     string   `json:"address" yaml:"address"`
	Right       string   `json:"right" yaml:"right"`
	Left        string   `json:"left" yaml:"left"`
	Right2      string   `json:"right2,omitempty" yaml:"right2,omitempty"`
	Left2       string   `json:"left2,omitempty" yaml:"left2,omitempty"`
	LocalIPs    []string `json:"local_ips,omitempty" yaml:"local_ips,omitempty"`
	GeoLocation string   `json:"geo_location,omitempty" yaml:"geo_location,omitempty"`
	NodeType    string   `json:"node_type,omitempty" yaml:"node_type,omitempty"`
	VirtualIP   string   `json:"virtual_ip,omitempty" yaml:"virtual_ip,omitempty"`
	Namespace   string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Retries     int      `json:"retries" yaml:"retries"`
	Cons        int      `json:"cons" yaml:"cons"`
	TCP         int      `json:"tcp" yaml:"tcp"`
	Tunnel      int      `json:"tunnel" yaml:"tunnel"`
	UDP         int      `json:"udp" yaml:"udp"`
	WeakEdges   int      `json:"wedges" yaml:"wedges"`
	StrongEdges int      `json:"sas" yaml:"sas"`
	Consistency float64  `json:"consistency" yaml:"consistency"`
}

func toDoc(a *domain.Audit) *auditDoc {
	doc := &auditDoc{
		ID:         a.ID,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
		Start:      a.Start.String(),
		Outcome:    string(a.Outcome),
		Secure:     a.Secure,
		Queries:    a.Queries,
		Failures:   a.Failures,
		Metrics:    a.Metrics,
		Ratio:      a.Metrics.Ratio(),
		Nodes:      make([]nodeDoc, 0, a.Nodes.Len()),
	}

	for addr, n := range a.Nodes.All() {
		doc.Nodes = append(doc.Nodes, nodeDoc{
			Address:     addr.String(),
			Right:       n.Right.String(),
			Left:        n.Left.String(),
			Right2:      n.Right2.String(),
			Left2:       n.Left2.String(),
			LocalIPs:    n.LocalIPs,
			GeoLocation: n.GeoLocation,
			NodeType:    n.NodeType,
			VirtualIP:   n.VirtualIP,
			Namespace:   n.Namespace,
			Retries:     n.Retries,
			Cons:        n.ConsCount,
			TCP:         n.TCPEdges,
			Tunnel:      n.TunnelEdges,
			UDP:         n.UDPEdges,
			WeakEdges:   n.WeakEdges,
			StrongEdges: n.StrongEdges,
			Consistency: n.ConsistencyScore,
		})
	}
	return doc
}

func fromDoc(doc *auditDoc) (*domain.Audit, error) {
	a := &domain.Audit{
		ID:         doc.ID,
		StartedAt:  doc.StartedAt,
		FinishedAt: doc.FinishedAt,
		Outcome:    domain.Outcome(doc.Outcome),
		Secure:     doc.Secure,
		Queries:    doc.Queries,
		Failures:   doc.Failures,
		Metrics:    doc.Metrics,
		Nodes:      domain.NewNodeSet(),
	}

	var err error
	if a.Start, err = parseOptional(doc.Start); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	for i, nd := range doc.Nodes {
		addr, err := domain.ParseAddress(nd.Address)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		rec := &domain.NodeRecord{
			LocalIPs:         nd.LocalIPs,
			GeoLocation:      nd.GeoLocation,
			NodeType:         nd.NodeType,
			VirtualIP:        nd.VirtualIP,
			Namespace:        nd.Namespace,
			Retries:          nd.Retries,
			ConsCount:        nd.Cons,
			TCPEdges:         nd.TCP,
			TunnelEdges:      nd.Tunnel,
			UDPEdges:         nd.UDP,
			WeakEdges:        nd.WeakEdges,
			StrongEdges:      nd.StrongEdges,
			ConsistencyScore: nd.Consistency,
		}
		for _, f := range []struct {
			dst *domain.Address
			src string
		}{
			{&rec.Right, nd.Right},
			{&rec.Left, nd.Left},
			{&rec.Right2, nd.Right2},
			{&rec.Left2, nd.Left2},
		} {
			if *f.dst, err = parseOptional(f.src); err != nil {
				return nil, fmt.Errorf("node %s: %w", nd.Address, err)
			}
		}
		a.Nodes.Put(addr, rec)
	}
	return a, nil
}

func parseOptional(s string) (domain.Address, error) {
	if s == "" {
		return domain.Address{}, nil
	}
	return domain.ParseAddress(s)
}
