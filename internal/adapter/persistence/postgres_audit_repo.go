package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/ports"
)

// PostgresAuditRepository implements the append-only audit sink using
// PostgreSQL. Records are never read back by this engine.
type PostgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository creates a new PostgreSQL audit sink.
func NewPostgresAuditRepository(db *sql.DB) ports.AuditSink {
	return &PostgresAuditRepository{db: db}
}

// Append inserts one audit record.
func (r *PostgresAuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	query := `
		INSERT INTO audit_log (id, actor_id, action, target_table, target_record_id, sensitive_fields, metadata, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var fieldsJSON []byte
	if len(record.SensitiveFields) > 0 {
		var err error
		fieldsJSON, err = json.Marshal(record.SensitiveFields)
		if err != nil {
			return fmt.Errorf("failed to marshal sensitive field paths: %w", err)
		}
	}

	metaJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal request metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.ActorID,
		string(record.Action),
		record.TargetTable,
		nullableString(record.TargetRecordID),
		fieldsJSON,
		metaJSON,
		record.Success,
		nullableString(record.ErrorMessage),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
