package repository

import (
	"context"

	"ringaudit/internal/domain"
)

// Repository defines the interface for audit history access
type Repository interface {
	// Read operations. A missing audit yields nil without an error.
	GetAudit(ctx context.Context, id string) (*domain.Audit, error)
	LatestAudit(ctx context.Context) (*domain.Audit, error)
	ListAudits(ctx context.Context, limit int) ([]domain.AuditSummary, error)

	// Write operations
	SaveAudit(ctx context.Context, audit *domain.Audit) error
	DeleteAudit(ctx context.Context, id string) error

	// Close releases resources
	Close() error
}
