package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/ports"
)

// PostgresDraftRepository implements DraftRepository using PostgreSQL.
type PostgresDraftRepository struct {
	db *sql.DB
}

// NewPostgresDraftRepository creates a new PostgreSQL draft repository.
func NewPostgresDraftRepository(db *sql.DB) ports.DraftRepository {
	return &PostgresDraftRepository{db: db}
}

// Upsert inserts the draft or replaces the row sharing its
// (owner_id, benefit_type) key. The unique constraint on that pair is what
// keeps at most one draft per owner and program.
func (r *PostgresDraftRepository) Upsert(ctx context.Context, draft *domain.Draft) (string, error) {
	query := `
		INSERT INTO drafts (id, owner_id, benefit_type, current_step, payload, payload_format, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, benefit_type) DO UPDATE
		SET current_step = EXCLUDED.current_step,
			payload = EXCLUDED.payload,
			payload_format = EXCLUDED.payload_format,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		draft.ID,
		draft.OwnerID,
		string(draft.BenefitType),
		draft.CurrentStep,
		draft.Payload,
		string(draft.Format),
		draft.CreatedAt,
		time.Now().UTC(),
	).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to upsert draft: %w", err)
	}

	return id, nil
}

// FindByID retrieves a draft by id, scoped to the owner.
func (r *PostgresDraftRepository) FindByID(ctx context.Context, ownerID, draftID string) (*domain.Draft, error) {
	query := `
		SELECT id, owner_id, benefit_type, current_step, payload, payload_format, created_at, updated_at
		FROM drafts
		WHERE id = $1 AND owner_id = $2
	`

	draft, err := scanDraft(r.db.QueryRowContext(ctx, query, draftID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}

	return draft, nil
}

// FindLatest retrieves the owner's most recently updated draft.
func (r *PostgresDraftRepository) FindLatest(ctx context.Context, ownerID string) (*domain.Draft, error) {
	query := `
		SELECT id, owner_id, benefit_type, current_step, payload, payload_format, created_at, updated_at
		FROM drafts
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	draft, err := scanDraft(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to find latest draft: %w", err)
	}

	return draft, nil
}

// ListByOwner retrieves all of the owner's drafts, newest first.
func (r *PostgresDraftRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Draft, error) {
	query := `
		SELECT id, owner_id, benefit_type, current_step, payload, payload_format, created_at, updated_at
		FROM drafts
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}

	return drafts, nil
}

// Delete removes drafts matching the filter. With neither a draft id nor a
// benefit type it refuses to run, so a bad call cannot wipe an owner's
// drafts wholesale.
func (r *PostgresDraftRepository) Delete(ctx context.Context, ownerID string, filter domain.DraftFilter) error {
	if filter.Empty() {
		return domain.ErrUnscopedDelete
	}

	query := `DELETE FROM drafts WHERE owner_id = $1`
	args := []interface{}{ownerID}
	argIndex := 2

	var conditions []string
	if filter.DraftID != "" {
		conditions = append(conditions, fmt.Sprintf("id = $%d", argIndex))
		args = append(args, filter.DraftID)
		argIndex++
	}
	if filter.BenefitType != "" {
		conditions = append(conditions, fmt.Sprintf("benefit_type = $%d", argIndex))
		args = append(args, string(filter.BenefitType))
	}

	query += " AND " + strings.Join(conditions, " AND ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete drafts: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*domain.Draft, error) {
	var draft domain.Draft
	var benefitType, format string

	err := row.Scan(
		&draft.ID,
		&draft.OwnerID,
		&benefitType,
		&draft.CurrentStep,
		&draft.Payload,
		&format,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	draft.BenefitType = domain.BenefitType(benefitType)
	draft.Format = domain.PayloadFormat(format)
	return &draft, nil
}
