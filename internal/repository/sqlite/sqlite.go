package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ringaudit/internal/domain"

	_ "modernc.org/sqlite"
)

// ErrMissingID is returned when saving an audit that has no ID
var ErrMissingID = errors.New("audit has no id")

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		pragmas += "&_pragma=journal_mode(WAL)"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		start TEXT,
		outcome TEXT NOT NULL,
		secure INTEGER NOT NULL DEFAULT 0,
		queries INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		metrics JSON,
		node_count INTEGER NOT NULL DEFAULT 0,
		ratio REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS audit_nodes (
		audit_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		address TEXT NOT NULL,
		right_addr TEXT,
		left_addr TEXT,
		right2_addr TEXT,
		left2_addr TEXT,
		local_ips JSON,
		geo_location TEXT,
		node_type TEXT,
		virtual_ip TEXT,
		namespace TEXT,
		retries INTEGER NOT NULL DEFAULT 0,
		cons INTEGER NOT NULL DEFAULT 0,
		tcp INTEGER NOT NULL DEFAULT 0,
		tunnel INTEGER NOT NULL DEFAULT 0,
		udp INTEGER NOT NULL DEFAULT 0,
		wedges INTEGER NOT NULL DEFAULT 0,
		sas INTEGER NOT NULL DEFAULT 0,
		consistency REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (audit_id, seq),
		FOREIGN KEY (audit_id) REFERENCES audits(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_audits_started ON audits(started_at);
	CREATE INDEX IF NOT EXISTS idx_audit_nodes_address ON audit_nodes(address);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveAudit stores an audit and its nodes in one transaction, replacing any
// audit with the same ID
func (r *Repository) SaveAudit(ctx context.Context, audit *domain.Audit) error {
	if audit.ID == "" {
		return ErrMissingID
	}

	args, err := auditInsertArgs(audit)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, audit.ID); err != nil {
		return fmt.Errorf("failed to clear audit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audits (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...); err != nil {
		return fmt.Errorf("failed to insert audit: %w", err)
	}

	if audit.Nodes != nil && audit.Nodes.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO audit_nodes (audit_id, seq, `+nodeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		seq := 0
		for addr, rec := range audit.Nodes.All() {
			nodeArgs, err := nodeInsertArgs(audit.ID, seq, addr, rec)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, nodeArgs...); err != nil {
				return fmt.Errorf("failed to insert node %s: %w", addr.Short(), err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAudit loads one audit with its nodes in walk order
func (r *Repository) GetAudit(ctx context.Context, id string) (*domain.Audit, error) {
	var row auditRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+auditColumns+`
		FROM audits WHERE id = ?
	`, id).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit: %w", err)
	}

	audit, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := r.loadNodes(ctx, audit); err != nil {
		return nil, err
	}
	return audit, nil
}

// LatestAudit loads the most recently started audit
func (r *Repository) LatestAudit(ctx context.Context) (*domain.Audit, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM audits ORDER BY started_at DESC, created_at DESC LIMIT 1
	`).Scan(&id)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest audit: %w", err)
	}

	return r.GetAudit(ctx, id)
}

// ListAudits returns audit headers, newest first. A limit of zero or less
// returns all audits.
func (r *Repository) ListAudits(ctx context.Context, limit int) ([]domain.AuditSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audits ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audits: %w", err)
	}
	defer rows.Close()

	var summaries []domain.AuditSummary
	for rows.Next() {
		var row auditRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		s, err := row.toSummary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audits: %w", err)
	}
	return summaries, nil
}

// DeleteAudit removes an audit and its nodes
func (r *Repository) DeleteAudit(ctx context.Context, id string) error {
	// Nodes are deleted by CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM audits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete audit: %w", err)
	}
	return nil
}

func (r *Repository) loadNodes(ctx context.Context, audit *domain.Audit) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM audit_nodes WHERE audit_id = ? ORDER BY seq
	`, audit.ID)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		addr, rec, err := row.toDomain()
		if err != nil {
			return err
		}
		audit.Nodes.Put(addr, rec)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}
	return nil
}
