package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ringaudit/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullToAddress parses an optional address column
func nullToAddress(ns sql.NullString) (domain.Address, error) {
	if !ns.Valid || ns.String == "" {
		return domain.Address{}, nil
	}
	return domain.ParseAddress(ns.String)
}

// addressToNull stores unset addresses as NULL
func addressToNull(a domain.Address) sql.NullString {
	return stringToNull(a.String())
}

// ============================================================================
// Time Helpers
// ============================================================================

// Times are stored as RFC 3339 text so ordering by column sorts by time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a value to a nullable JSON string.
// Returns empty NullString for nil or empty slices.
func marshalToNull(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	if s, ok := v.([]string); ok && len(s) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to audit_nodes:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() and nodeInsertArgs()
// 5. Add the column to the CREATE TABLE in sqlite.go migrate() and an
//    ALTER TABLE for databases created before it
//
// CRITICAL: Column order must match between nodeColumns, scanArgs() and
// nodeInsertArgs(). Same pattern applies to audits.

// ============================================================================
// Audit Row Scanner
// ============================================================================

// auditRow holds all columns from an audit query for scanning
type auditRow struct {
	ID          string
	StartedAt   string
	FinishedAt  string
	Start       sql.NullString
	Outcome     string
	Secure      bool
	Queries     int
	Failures    int
	MetricsJSON sql.NullString
	NodeCount   int
	Ratio       float64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match auditColumns order exactly
func (r *auditRow) scanArgs() []any {
	return []any{
		&r.ID,          // 1
		&r.StartedAt,   // 2
		&r.FinishedAt,  // 3
		&r.Start,       // 4
		&r.Outcome,     // 5
		&r.Secure,      // 6
		&r.Queries,     // 7
		&r.Failures,    // 8
		&r.MetricsJSON, // 9
		&r.NodeCount,   // 10
		&r.Ratio,       // 11
	}
}

// toDomain converts the scanned row to a domain.Audit without nodes
func (r *auditRow) toDomain() (*domain.Audit, error) {
	a := &domain.Audit{
		ID:       r.ID,
		Outcome:  domain.Outcome(r.Outcome),
		Secure:   r.Secure,
		Queries:  r.Queries,
		Failures: r.Failures,
		Nodes:    domain.NewNodeSet(),
	}

	var err error
	if a.StartedAt, err = parseTime(r.StartedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if a.FinishedAt, err = parseTime(r.FinishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	if a.Start, err = nullToAddress(r.Start); err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	if err := unmarshalJSONField(r.MetricsJSON, &a.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}

	return a, nil
}

// toSummary converts the scanned row to a domain.AuditSummary
func (r *auditRow) toSummary() (domain.AuditSummary, error) {
	a, err := r.toDomain()
	if err != nil {
		return domain.AuditSummary{}, err
	}
	return domain.AuditSummary{
		ID:         a.ID,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
		Start:      a.Start,
		Outcome:    a.Outcome,
		NodeCount:  r.NodeCount,
		Ratio:      r.Ratio,
	}, nil
}

// auditColumns returns the SELECT column list for audit queries
const auditColumns = `id, started_at, finished_at, start, outcome, secure,
	queries, failures, metrics, node_count, ratio`

// auditInsertArgs prepares arguments for audit INSERT
func auditInsertArgs(a *domain.Audit) ([]any, error) {
	metricsJSON, err := marshalToNull(a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}

	count := 0
	if a.Nodes != nil {
		count = a.Nodes.Len()
	}

	return []any{
		a.ID,
		formatTime(a.StartedAt),
		formatTime(a.FinishedAt),
		addressToNull(a.Start),
		string(a.Outcome),
		a.Secure,
		a.Queries,
		a.Failures,
		metricsJSON,
		count,
		a.Metrics.Ratio(),
	}, nil
}

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from an audit_nodes query for scanning
type nodeRow struct {
	Address      string
	Right        sql.NullString
	Left         sql.NullString
	Right2       sql.NullString
	Left2        sql.NullString
	LocalIPsJSON sql.NullString
	GeoLocation  sql.NullString
	NodeType     sql.NullString
	VirtualIP    sql.NullString
	Namespace    sql.NullString
	Retries      int
	Cons         int
	TCP          int
	Tunnel       int
	UDP          int
	WeakEdges    int
	StrongEdges  int
	Consistency  float64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly
func (r *nodeRow) scanArgs() []any {
	return []any{
		&r.Address,      // 1
		&r.Right,        // 2
		&r.Left,         // 3
		&r.Right2,       // 4
		&r.Left2,        // 5
		&r.LocalIPsJSON, // 6
		&r.GeoLocation,  // 7
		&r.NodeType,     // 8
		&r.VirtualIP,    // 9
		&r.Namespace,    // 10
		&r.Retries,      // 11
		&r.Cons,         // 12
		&r.TCP,          // 13
		&r.Tunnel,       // 14
		&r.UDP,          // 15
		&r.WeakEdges,    // 16
		&r.StrongEdges,  // 17
		&r.Consistency,  // 18
	}
}

// toDomain converts the scanned row to an address and its record
func (r *nodeRow) toDomain() (domain.Address, *domain.NodeRecord, error) {
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return domain.Address{}, nil, err
	}

	rec := &domain.NodeRecord{
		GeoLocation:      nullToString(r.GeoLocation),
		NodeType:         nullToString(r.NodeType),
		VirtualIP:        nullToString(r.VirtualIP),
		Namespace:        nullToString(r.Namespace),
		Retries:          r.Retries,
		ConsCount:        r.Cons,
		TCPEdges:         r.TCP,
		TunnelEdges:      r.Tunnel,
		UDPEdges:         r.UDP,
		WeakEdges:        r.WeakEdges,
		StrongEdges:      r.StrongEdges,
		ConsistencyScore: r.Consistency,
	}

	for _, f := range []struct {
		dst *domain.Address
		src sql.NullString
	}{
		{&rec.Right, r.Right},
		{&rec.Left, r.Left},
		{&rec.Right2, r.Right2},
		{&rec.Left2, r.Left2},
	} {
		if *f.dst, err = nullToAddress(f.src); err != nil {
			return domain.Address{}, nil, fmt.Errorf("node %s: %w", r.Address, err)
		}
	}

	if err := unmarshalJSONField(r.LocalIPsJSON, &rec.LocalIPs); err != nil {
		return domain.Address{}, nil, fmt.Errorf("unmarshal local_ips: %w", err)
	}

	return addr, rec, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `address, right_addr, left_addr, right2_addr, left2_addr,
	local_ips, geo_location, node_type, virtual_ip, namespace,
	retries, cons, tcp, tunnel, udp, wedges, sas, consistency`

// nodeInsertArgs prepares arguments for audit_nodes INSERT.
// Returns: audit_id, seq, then nodeColumns in order.
func nodeInsertArgs(auditID string, seq int, addr domain.Address, rec *domain.NodeRecord) ([]any, error) {
	ipsJSON, err := marshalToNull(rec.LocalIPs)
	if err != nil {
		return nil, fmt.Errorf("marshal local_ips: %w", err)
	}

	return []any{
		auditID,
		seq,
		addr.String(),
		addressToNull(rec.Right),
		addressToNull(rec.Left),
		addressToNull(rec.Right2),
		addressToNull(rec.Left2),
		ipsJSON,
		stringToNull(rec.GeoLocation),
		stringToNull(rec.NodeType),
		stringToNull(rec.VirtualIP),
		stringToNull(rec.Namespace),
		rec.Retries,
		rec.ConsCount,
		rec.TCPEdges,
		rec.TunnelEdges,
		rec.UDPEdges,
		rec.WeakEdges,
		rec.StrongEdges,
		rec.ConsistencyScore,
	}, nil
}
