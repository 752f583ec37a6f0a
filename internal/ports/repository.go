package ports

import (
	"context"

	"github.com/benefitnav/benefitnav/internal/domain"
)

// DraftRepository defines the interface for draft persistence.
type DraftRepository interface {
	// Upsert inserts the draft or replaces the existing row sharing its
	// (owner_id, benefit_type) key, bumping updated_at. It returns the id of
	// the row that now holds the draft.
	Upsert(ctx context.Context, draft *domain.Draft) (string, error)

	// FindByID retrieves a draft by its id, scoped to the owner.
	FindByID(ctx context.Context, ownerID, draftID string) (*domain.Draft, error)

	// FindLatest retrieves the owner's most recently updated draft.
	FindLatest(ctx context.Context, ownerID string) (*domain.Draft, error)

	// ListByOwner retrieves all of the owner's drafts, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Draft, error)

	// Delete removes drafts matching the filter. A filter with neither a
	// draft id nor a benefit type is refused with ErrUnscopedDelete.
	Delete(ctx context.Context, ownerID string, filter domain.DraftFilter) error
}

// SubmissionRepository defines the interface for submitted applications.
type SubmissionRepository interface {
	// Create inserts a new submission row.
	Create(ctx context.Context, submission *domain.Submission) error

	// Exists reports whether a submission already exists for the pair.
	Exists(ctx context.Context, ownerID string, benefitType domain.BenefitType) (bool, error)

	// ListByOwner retrieves the owner's submissions, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error)
}

// AuditSink is the write-only destination for access records. Nothing in
// this engine reads audit records back.
type AuditSink interface {
	Append(ctx context.Context, record *domain.AuditRecord) error
}
