package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
)

// IdentityExecutor persists self-identity records. Each paralegal holds
// exactly one identity record, keyed by vp_id.
type IdentityExecutor struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewIdentityExecutor creates a new self-identity executor
func NewIdentityExecutor(db *database.PostgreSQL, logger *logger.Logger) *IdentityExecutor {
	return &IdentityExecutor{
		db:     db,
		logger: logger,
	}
}

const identityColumns = "identity_id, vp_id, prompt, access_count, created, updated"

func scanIdentity(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.VPID, &r.Prompt, &r.AccessCount, &r.Created, &r.Updated)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get fetches the identity record for a paralegal
func (e *IdentityExecutor) Get(ctx context.Context, in Input) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.self_identity
		WHERE vp_id = $1
	`, identityColumns)

	record, err := scanIdentity(e.db.Pool().QueryRow(ctx, query, in.VPID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("self-identity %w for paralegal %s", ErrNotFound, in.VPID)
		}
		e.logger.Errorf("Failed to get self-identity: %v", err)
		return nil, err
	}
	return record, nil
}

// GetAll returns the identity record as a one-element list, or an empty list
func (e *IdentityExecutor) GetAll(ctx context.Context, in Input) ([]Record, error) {
	record, err := e.Get(ctx, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Record{}, nil
		}
		return nil, err
	}
	return []Record{*record}, nil
}

// Create inserts the identity record for a paralegal
func (e *IdentityExecutor) Create(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Creating self-identity for paralegal: %s", in.VPID)

	// GET-then-CREATE: one identity per paralegal
	if _, err := e.Get(ctx, in); err == nil {
		return nil, fmt.Errorf("self-identity already exists for paralegal %s", in.VPID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO vault.self_identity (vp_id, prompt)
		VALUES ($1, $2)
		RETURNING %s
	`, identityColumns)

	record, err := scanIdentity(e.db.Pool().QueryRow(ctx, query, in.VPID, in.Prompt))
	if err != nil {
		e.logger.Errorf("Failed to create self-identity: %v", err)
		return nil, err
	}
	return record, nil
}

// Update replaces the prompt of the identity record
func (e *IdentityExecutor) Update(ctx context.Context, in Input) (*Record, error) {
	e.logger.Infof("Updating self-identity for paralegal: %s", in.VPID)

	query := fmt.Sprintf(`
		UPDATE vault.self_identity
		SET prompt = $1, updated = CURRENT_TIMESTAMP
		WHERE vp_id = $2
		RETURNING %s
	`, identityColumns)

	record, err := scanIdentity(e.db.Pool().QueryRow(ctx, query, in.Prompt, in.VPID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("self-identity %w for paralegal %s", ErrNotFound, in.VPID)
		}
		e.logger.Errorf("Failed to update self-identity: %v", err)
		return nil, err
	}
	return record, nil
}

// Delete removes the identity record for a paralegal
func (e *IdentityExecutor) Delete(ctx context.Context, in Input) error {
	e.logger.Infof("Deleting self-identity for paralegal: %s", in.VPID)

	commandTag, err := e.db.Pool().Exec(ctx, `
		DELETE FROM vault.self_identity
		WHERE vp_id = $1
	`, in.VPID)
	if err != nil {
		e.logger.Errorf("Failed to delete self-identity: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("self-identity %w for paralegal %s", ErrNotFound, in.VPID)
	}
	return nil
}
