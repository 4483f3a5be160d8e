package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"FortuneScanner/internal/domain"
	"FortuneScanner/internal/ports"
)

// RunRepository records one row per run date in Postgres for diagnostics.
// The output file on disk stays the source of truth; history is best-effort.
type RunRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRecorder = (*RunRepository)(nil)

// NewRunRepository wires a sql.DB implementation.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveRun upserts the run snapshot for the document's date.
func (r *RunRepository) SaveRun(ctx context.Context, doc domain.OutputDocument, failedKeys []string) error {
	if r.db == nil {
		return nil
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	query, args, err := r.builder.
		Insert("fortune_runs").
		Columns("date_kst", "status", "error_message", "failed_signs", "document").
		Values(doc.DateKST, string(doc.Status), doc.ErrorMessage, pq.StringArray(failedKeys), docJSON).
		Suffix(`ON CONFLICT (date_kst) DO UPDATE
		        SET status = EXCLUDED.status,
		            error_message = EXCLUDED.error_message,
		            failed_signs = EXCLUDED.failed_signs,
		            document = EXCLUDED.document,
		            updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	return nil
}

// HasOKRun reports whether the date already has a committed ok run.
func (r *RunRepository) HasOKRun(ctx context.Context, dateKST string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	query, args, err := r.builder.
		Select("status").
		From("fortune_runs").
		Where(sq.Eq{"date_kst": dateKST}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var status string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query run: %w", err)
	}

	return status == string(domain.StatusOK), nil
}
