package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/ports"
)

// PostgresSubmissionRepository implements SubmissionRepository using
// PostgreSQL. Submissions are insert-only; no update or delete paths exist.
type PostgresSubmissionRepository struct {
	db *sql.DB
}

// NewPostgresSubmissionRepository creates a new PostgreSQL submission repository.
func NewPostgresSubmissionRepository(db *sql.DB) ports.SubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// Create inserts a new submission row.
func (r *PostgresSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	query := `
		INSERT INTO submitted_applications (id, owner_id, benefit_type, payload, payload_format, status, submitted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		submission.ID,
		submission.OwnerID,
		string(submission.BenefitType),
		submission.Payload,
		string(submission.Format),
		string(submission.Status),
		submission.SubmittedAt,
		submission.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// Exists reports whether a submission already exists for the pair.
func (r *PostgresSubmissionRepository) Exists(ctx context.Context, ownerID string, benefitType domain.BenefitType) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM submitted_applications WHERE owner_id = $1 AND benefit_type = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, ownerID, string(benefitType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing submission: %w", err)
	}

	return exists, nil
}

// ListByOwner retrieves the owner's submissions, newest first.
func (r *PostgresSubmissionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error) {
	query := `
		SELECT id, owner_id, benefit_type, payload, payload_format, status, submitted_at, created_at
		FROM submitted_applications
		WHERE owner_id = $1
		ORDER BY submitted_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*domain.Submission
	for rows.Next() {
		var sub domain.Submission
		var benefitType, format, status string
		err := rows.Scan(
			&sub.ID,
			&sub.OwnerID,
			&benefitType,
			&sub.Payload,
			&format,
			&status,
			&sub.SubmittedAt,
			&sub.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		sub.BenefitType = domain.BenefitType(benefitType)
		sub.Format = domain.PayloadFormat(format)
		sub.Status = domain.SubmissionStatus(status)
		submissions = append(submissions, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}
