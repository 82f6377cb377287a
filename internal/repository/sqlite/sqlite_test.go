package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ringaudit/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func testAddr(b byte) domain.Address {
	var raw [domain.AddressLength]byte
	raw[0] = b
	a, err := domain.AddressFromBytes(raw[:])
	if err != nil {
		panic(err)
	}
	return a
}

// testAudit builds a consistent three node ring audit started at the given time
func testAudit(id string, started time.Time) *domain.Audit {
	a, b, c := testAddr(1), testAddr(2), testAddr(3)
	nodes := domain.NewNodeSet()
	nodes.Put(a, &domain.NodeRecord{
		Right: c, Left: b, Right2: b, Left2: c,
		LocalIPs:         []string{"10.0.0.1", "192.168.1.4"},
		GeoLocation:      "51.5, -0.1",
		NodeType:         domain.NodeTypeTunneling,
		VirtualIP:        "172.16.0.1",
		Namespace:        "ipop",
		ConsCount:        5,
		TCPEdges:         1,
		UDPEdges:         4,
		StrongEdges:      2,
		WeakEdges:        1,
		ConsistencyScore: 1,
	})
	nodes.Put(c, &domain.NodeRecord{Right: b, Left: a, Retries: 3, ConsistencyScore: 0.5})
	nodes.Put(b, &domain.NodeRecord{Right: a, Left: c})

	return &domain.Audit{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Start:      a,
		Outcome:    domain.OutcomeComplete,
		Secure:     true,
		Queries:    6,
		Failures:   3,
		Nodes:      nodes,
		Metrics: domain.Metrics{
			Count:            3,
			RightConsistent1: 3,
			LeftConsistent1:  3,
			Edges:            7,
			Cons:             5,
			StrongEdges:      2,
			WeakEdges:        1,
			TCP:              1,
			UDP:              4,
		},
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullToString(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected string
	}{
		{"valid", sql.NullString{String: "x", Valid: true}, "x"},
		{"null", sql.NullString{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEqual(t, tt.expected, nullToString(tt.input))
		})
	}
}

func TestAddressToNull(t *testing.T) {
	if addressToNull(domain.Address{}).Valid {
		t.Error("unset address should be NULL")
	}

	a := testAddr(9)
	ns := addressToNull(a)
	got, err := nullToAddress(ns)
	assertNoError(t, err)
	assertEqual(t, a, got)

	got, err = nullToAddress(sql.NullString{})
	assertNoError(t, err)
	if got.IsSet() {
		t.Error("NULL should decode to an unset address")
	}
}

func TestMarshalToNull(t *testing.T) {
	ns, err := marshalToNull([]string(nil))
	assertNoError(t, err)
	if ns.Valid {
		t.Error("empty slice should be NULL")
	}

	ns, err = marshalToNull([]string{"a"})
	assertNoError(t, err)
	assertEqual(t, `["a"]`, ns.String)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 5, 4, 3, 2, 1, 123456789, time.FixedZone("x", 3600))
	out, err := parseTime(formatTime(in))
	assertNoError(t, err)
	if !in.Equal(out) {
		t.Errorf("expected %v, got %v", in, out)
	}
}

// ============================================================================
// Repository Tests
// ============================================================================

func TestSaveAndGetAudit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	want := testAudit("a1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	assertNoError(t, repo.SaveAudit(ctx, want))

	got, err := repo.GetAudit(ctx, "a1")
	assertNoError(t, err)
	if got == nil {
		t.Fatal("expected audit, got nil")
	}

	assertEqual(t, want.ID, got.ID)
	assertEqual(t, want.Start, got.Start)
	assertEqual(t, want.Outcome, got.Outcome)
	assertEqual(t, want.Secure, got.Secure)
	assertEqual(t, want.Queries, got.Queries)
	assertEqual(t, want.Failures, got.Failures)
	assertEqual(t, want.Metrics, got.Metrics)
	if !want.StartedAt.Equal(got.StartedAt) || !want.FinishedAt.Equal(got.FinishedAt) {
		t.Errorf("times changed: %v-%v vs %v-%v", want.StartedAt, want.FinishedAt, got.StartedAt, got.FinishedAt)
	}

	// Walk order is preserved, not address order
	assertEqual(t, want.Nodes.Addresses(), got.Nodes.Addresses())
	for addr, rec := range want.Nodes.All() {
		other, ok := got.Nodes.Get(addr)
		if !ok {
			t.Fatalf("node %s missing", addr.Short())
		}
		assertEqual(t, rec, other)
	}
}

func TestGetAuditMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetAudit(context.Background(), "nope")
	assertNoError(t, err)
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSaveAuditReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	started := time.Now().UTC()

	assertNoError(t, repo.SaveAudit(ctx, testAudit("a1", started)))

	smaller := testAudit("a1", started)
	smaller.Nodes = domain.NewNodeSet()
	smaller.Nodes.Put(testAddr(1), &domain.NodeRecord{Right: testAddr(1), Left: testAddr(1)})
	smaller.Outcome = domain.OutcomeAborted
	assertNoError(t, repo.SaveAudit(ctx, smaller))

	got, err := repo.GetAudit(ctx, "a1")
	assertNoError(t, err)
	assertEqual(t, 1, got.Nodes.Len())
	assertEqual(t, domain.OutcomeAborted, got.Outcome)
}

func TestSaveAuditWithoutID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveAudit(context.Background(), testAudit("", time.Now()))
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSaveAuditWithoutNodes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := &domain.Audit{
		ID:         "empty",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Outcome:    domain.OutcomeUnreachable,
	}
	assertNoError(t, repo.SaveAudit(ctx, a))

	got, err := repo.GetAudit(ctx, "empty")
	assertNoError(t, err)
	assertEqual(t, 0, got.Nodes.Len())
	if got.Start.IsSet() {
		t.Error("start should stay unset")
	}
}

func TestListAndLatest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	latest, err := repo.LatestAudit(ctx)
	assertNoError(t, err)
	if latest != nil {
		t.Fatal("expected no latest audit in an empty database")
	}

	for i, id := range []string{"old", "newest", "middle"} {
		offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
		assertNoError(t, repo.SaveAudit(ctx, testAudit(id, base.Add(offset))))
	}

	all, err := repo.ListAudits(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 3, len(all))
	assertEqual(t, "newest", all[0].ID)
	assertEqual(t, "middle", all[1].ID)
	assertEqual(t, "old", all[2].ID)
	assertEqual(t, 3, all[0].NodeCount)
	assertEqual(t, 1.0, all[0].Ratio)

	limited, err := repo.ListAudits(ctx, 2)
	assertNoError(t, err)
	assertEqual(t, 2, len(limited))

	latest, err = repo.LatestAudit(ctx)
	assertNoError(t, err)
	assertEqual(t, "newest", latest.ID)
	assertEqual(t, 3, latest.Nodes.Len())
}

func TestDeleteAuditCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.SaveAudit(ctx, testAudit("a1", time.Now())))
	assertNoError(t, repo.DeleteAudit(ctx, "a1"))

	var count int
	assertNoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM audit_nodes`).Scan(&count))
	assertEqual(t, 0, count)

	got, err := repo.GetAudit(ctx, "a1")
	assertNoError(t, err)
	if got != nil {
		t.Error("audit should be gone")
	}
}

func TestFileDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audits.db")
	ctx := context.Background()

	repo, err := New(path)
	assertNoError(t, err)
	assertNoError(t, repo.SaveAudit(ctx, testAudit("persisted", time.Now())))
	assertNoError(t, repo.Close())

	repo, err = New(path)
	assertNoError(t, err)
	defer repo.Close()

	got, err := repo.GetAudit(ctx, "persisted")
	assertNoError(t, err)
	if got == nil {
		t.Fatal("audit did not survive reopening")
	}
	assertEqual(t, 3, got.Nodes.Len())
}
