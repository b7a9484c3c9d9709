package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
)

// KnowledgeExecutor persists typed knowledge records. One executor instance
// serves one table; records are keyed by (vp_id, type) and at most one record
// exists per pair, enforced both here (GET-then-CREATE) and by a unique
// constraint on the table.
type KnowledgeExecutor struct {
	db     *database.PostgreSQL
	logger *logger.Logger

	table      string
	idColumn   string
	typeColumn string
	// typeOf extracts the domain's type selector from the input
	typeOf func(Input) string
}

// NewGlobalKnowledgeExecutor creates the executor for global-knowledge records
func NewGlobalKnowledgeExecutor(db *database.PostgreSQL, logger *logger.Logger) *KnowledgeExecutor {
	return &KnowledgeExecutor{
		db:         db,
		logger:     logger,
		table:      "vault.global_knowledge",
		idColumn:   "knowledge_id",
		typeColumn: "knowledge_type",
		typeOf:     func(in Input) string { return string(in.KnowledgeType) },
	}
}

// NewEducationalKnowledgeExecutor creates the executor for educational-knowledge records
func NewEducationalKnowledgeExecutor(db *database.PostgreSQL, logger *logger.Logger) *KnowledgeExecutor {
	return &KnowledgeExecutor{
		db:         db,
		logger:     logger,
		table:      "vault.educational_knowledge",
		idColumn:   "education_id",
		typeColumn: "education_type",
		typeOf:     func(in Input) string { return string(in.EducationType) },
	}
}

func (e *KnowledgeExecutor) columns() string {
	return fmt.Sprintf("%s, vp_id, %s, prompt, access_count, created, updated", e.idColumn, e.typeColumn)
}

func (e *KnowledgeExecutor) scan(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.VPID, &r.Type, &r.Prompt, &r.AccessCount, &r.Created, &r.Updated)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get fetches one record by (vp_id, type)
func (e *KnowledgeExecutor) Get(ctx context.Context, in Input) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE vp_id = $1 AND %s = $2
	`, e.columns(), e.table, e.typeColumn)

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, in.VPID, e.typeOf(in)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s record %w for paralegal %s", e.typeOf(in), ErrNotFound, in.VPID)
		}
		e.logger.Errorf("Failed to get knowledge record from %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// GetAll fetches every record for a paralegal across types
func (e *KnowledgeExecutor) GetAll(ctx context.Context, in Input) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE vp_id = $1
		ORDER BY %s
	`, e.columns(), e.table, e.typeColumn)

	rows, err := e.db.Pool().Query(ctx, query, in.VPID)
	if err != nil {
		e.logger.Errorf("Failed to list knowledge records from %s: %v", e.table, err)
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

// Create inserts a record for a (vp_id, type) pair
func (e *KnowledgeExecutor) Create(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Creating %s knowledge record for paralegal: %s", e.typeOf(in), in.VPID)

	// GET-then-CREATE keeps one record per (vp_id, type); the unique
	// constraint backstops races
	if _, err := e.Get(ctx, in); err == nil {
		return nil, fmt.Errorf("%s record already exists for paralegal %s", e.typeOf(in), in.VPID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (vp_id, %s, prompt)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, e.table, e.typeColumn, e.columns())

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, in.VPID, e.typeOf(in), in.Prompt))
	if err != nil {
		e.logger.Errorf("Failed to create knowledge record in %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// Update replaces the prompt of the record keyed by (vp_id, type)
func (e *KnowledgeExecutor) Update(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Updating %s knowledge record for paralegal: %s", e.typeOf(in), in.VPID)

	query := fmt.Sprintf(`
		UPDATE %s
		SET prompt = $1, updated = CURRENT_TIMESTAMP
		WHERE vp_id = $2 AND %s = $3
		RETURNING %s
	`, e.table, e.typeColumn, e.columns())

	record, err := e.scan(e.db.Pool().QueryRow(ctx, query, in.Prompt, in.VPID, e.typeOf(in)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s record %w for paralegal %s", e.typeOf(in), ErrNotFound, in.VPID)
		}
		e.logger.Errorf("Failed to update knowledge record in %s: %v", e.table, err)
		return nil, err
	}
	return record, nil
}

// Delete removes the record keyed by (vp_id, type)
func (e *KnowledgeExecutor) Delete(ctx context.Context, in Input) error {
	e.logger.Infof("Deleting %s knowledge record for paralegal: %s", e.typeOf(in), in.VPID)

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE vp_id = $1 AND %s = $2
	`, e.table, e.typeColumn)

	commandTag, err := e.db.Pool().Exec(ctx, query, in.VPID, e.typeOf(in))
	if err != nil {
		e.logger.Errorf("Failed to delete knowledge record from %s: %v", e.table, err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("%s record %w for paralegal %s", e.typeOf(in), ErrNotFound, in.VPID)
	}
	return nil
}
