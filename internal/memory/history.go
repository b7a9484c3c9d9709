package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
)

// HistoryExecutor persists append-style history records (conversational
// history and actions history). A paralegal owns many records; individual
// records are keyed by their record id.
type HistoryExecutor struct {
	db     *database.PostgreSQL
	logger *logger.Logger

	table    string
	idColumn string
}

// NewConversationalHistoryExecutor creates the executor for conversation summaries
func NewConversationalHistoryExecutor(db *database.PostgreSQL, logger *logger.Logger) *HistoryExecutor {
	return &HistoryExecutor{
		db:       db,
		logger:   logger,
		table:    "vault.conversational_history",
		idColumn: "history_id",
	}
}

// NewActionsHistoryExecutor creates the executor for performed-action records
func NewActionsHistoryExecutor(db *database.PostgreSQL, logger *logger.Logger) *HistoryExecutor {
	return &HistoryExecutor{
		db:       db,
		logger:   logger,
		table:    "vault.actions_history",
		idColumn: "action_id",
	}
}

func (e *HistoryExecutor) columns() string {
	return fmt.Sprintf("%s, vp_id, summary, context, access_count, created, updated", e.idColumn)
}

func (e *HistoryExecutor) scan(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.VPID, &r.Summary, &r.Context, &r.AccessCount, &r.Created, &r.Updated)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get fetches one history record by id, scoped to the paralegal
func (e *HistoryExecutor) Get(ctx context.Context, in Input) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE vp_id = $1 AND %s = $2
	`, e.columns(), e.table, e.idColumn)

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, in.VPID, in.RecordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("history record %s %w", in.RecordID, ErrNotFound)
		}
		e.logger.Errorf("Failed to get history record from %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// GetAll fetches every history record for a paralegal, newest first
func (e *HistoryExecutor) GetAll(ctx context.Context, in Input) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE vp_id = $1
		ORDER BY created DESC
	`, e.columns(), e.table)

	rows, err := e.db.Pool().Query(ctx, query, in.VPID)
	if err != nil {
		e.logger.Errorf("Failed to list history records from %s: %v", e.table, err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := e.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Create appends a new history record
func (e *HistoryExecutor) Create(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Appending history record to %s for paralegal: %s", e.table, in.VPID)

	query := fmt.Sprintf(`
		INSERT INTO %s (vp_id, summary, context)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, e.table, e.columns())

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, in.VPID, in.Summary, in.Context))
	if err != nil {
		e.logger.Errorf("Failed to create history record in %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// Update patches only the fields present in the input and leaves the rest
// unchanged. Applying the same update twice yields the same final state.
func (e *HistoryExecutor) Update(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Updating history record %s in %s", in.RecordID, e.table)

	setClauses := []string{"updated = CURRENT_TIMESTAMP"}
	args := []interface{}{}
	argIndex := 1

	if in.Summary != "" {
		setClauses = append(setClauses, fmt.Sprintf("summary = $%d", argIndex))
		args = append(args, in.Summary)
		argIndex++
	}
	if in.Context != "" {
		setClauses = append(setClauses, fmt.Sprintf("context = $%d", argIndex))
		args = append(args, in.Context)
		argIndex++
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE vp_id = $%d AND %s = $%d
		RETURNING %s
	`, e.table, strings.Join(setClauses, ", "), argIndex, e.idColumn, argIndex+1, e.columns())
	args = append(args, in.VPID, in.RecordID)

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("history record %s %w", in.RecordID, ErrNotFound)
		}
		e.logger.Errorf("Failed to update history record in %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// Delete hard-deletes one history record by id
func (e *HistoryExecutor) Delete(ctx context.Context, in Input) error {
	e.logger.Infof("Deleting history record %s from %s", in.RecordID, e.table)

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE vp_id = $1 AND %s = $2
	`, e.table, e.idColumn)

	commandTag, err := e.db.Pool().Exec(ctx, query, in.VPID, in.RecordID)
	if err != nil {
		e.logger.Errorf("Failed to delete history record from %s: %v", e.table, err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("history record %s %w", in.RecordID, ErrNotFound)
	}
	return nil
}
