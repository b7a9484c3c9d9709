package ability

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Service handles ability operations
type Service struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewService creates a new ability service
func NewService(db *database.PostgreSQL, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Ability represents a named capability attachable to a paralegal
type Ability struct {
	ID           string
	Name         string
	Description  string
	Structure    map[string]interface{}
	Requirements map[string]interface{}
	models.AuditMetadata
}

// AbilityOperation describes one sub-operation of an ability, such as
// task management or email handling, with its declared schemas.
type AbilityOperation struct {
	ID            string
	AbilityID     string
	OperationName string
	InputSchema   map[string]interface{}
	OutputSchema  map[string]interface{}
	WorkflowSteps []string
	Constraints   map[string]interface{}
	Permissions   []string
	models.AuditMetadata
}

const abilityColumns = "ability_id, ability_name, ability_description, structure, requirements, created, updated"

const operationColumns = "operation_id, ability_id, operation_name, input_schema, output_schema, workflow_steps, constraints, permissions, created, updated"

func scanAbility(row pgx.Row) (*Ability, error) {
	var a Ability
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Structure,
		&a.Requirements,
		&a.Created,
		&a.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanOperation(row pgx.Row) (*AbilityOperation, error) {
	var op AbilityOperation
	err := row.Scan(
		&op.ID,
		&op.AbilityID,
		&op.OperationName,
		&op.InputSchema,
		&op.OutputSchema,
		&op.WorkflowSteps,
		&op.Constraints,
		&op.Permissions,
		&op.Created,
		&op.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Create creates a new ability
func (s *Service) Create(ctx context.Context, name, description string, structure, requirements map[string]interface{}) (*Ability, error) {
	s.logger.Infof("Creating ability: %s", name)

	query := fmt.Sprintf(`
		INSERT INTO vault.abilities (ability_name, ability_description, structure, requirements)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, abilityColumns)

	a, err := scanAbility(s.db.Pool().QueryRow(ctx, query, name, description, structure, requirements))
	if err != nil {
		s.logger.Errorf("Failed to create ability: %v", err)
		return nil, err
	}
	return a, nil
}

// Get retrieves an ability by ID
func (s *Service) Get(ctx context.Context, abilityID string) (*Ability, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.abilities
		WHERE ability_id = $1
	`, abilityColumns)

	a, err := scanAbility(s.db.Pool().QueryRow(ctx, query, abilityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("ability not found")
		}
		s.logger.Errorf("Failed to get ability: %v", err)
		return nil, err
	}
	return a, nil
}

// List retrieves all abilities
func (s *Service) List(ctx context.Context) ([]*Ability, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.abilities
		ORDER BY ability_name
	`, abilityColumns)

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		s.logger.Errorf("Failed to list abilities: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var abilities []*Ability
	for rows.Next() {
		a, err := scanAbility(rows)
		if err != nil {
			return nil, err
		}
		abilities = append(abilities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return abilities, nil
}

// Update updates specific fields of an ability
func (s *Service) Update(ctx context.Context, abilityID string, updates map[string]interface{}) (*Ability, error) {
	s.logger.Infof("Updating ability: %s", abilityID)
	if len(updates) == 0 {
		return s.Get(ctx, abilityID)
	}

	query := "UPDATE vault.abilities SET updated = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argIndex := 1

	for field, value := range updates {
		query += fmt.Sprintf(", %s = $%d", field, argIndex)
		args = append(args, value)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE ability_id = $%d RETURNING %s", argIndex, abilityColumns)
	args = append(args, abilityID)

	a, err := scanAbility(s.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("ability not found")
		}
		s.logger.Errorf("Failed to update ability: %v", err)
		return nil, err
	}
	return a, nil
}

// Delete deletes an ability and its operation records
func (s *Service) Delete(ctx context.Context, abilityID string) error {
	s.logger.Infof("Deleting ability: %s", abilityID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		DELETE FROM vault.abilities
		WHERE ability_id = $1
	`, abilityID)
	if err != nil {
		s.logger.Errorf("Failed to delete ability: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("ability not found")
	}
	return nil
}

// AddOperation attaches a sub-operation record to an ability
func (s *Service) AddOperation(ctx context.Context, op *AbilityOperation) (*AbilityOperation, error) {
	s.logger.Infof("Adding operation %s to ability %s", op.OperationName, op.AbilityID)

	var abilityExists bool
	err := s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vault.abilities WHERE ability_id = $1)
	`, op.AbilityID).Scan(&abilityExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check ability existence: %w", err)
	}
	if !abilityExists {
		return nil, errors.New("ability not found")
	}

	query := fmt.Sprintf(`
		INSERT INTO vault.ability_operations (ability_id, operation_name, input_schema, output_schema, workflow_steps, constraints, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, operationColumns)

	created, err := scanOperation(s.db.Pool().QueryRow(ctx, query,
		op.AbilityID, op.OperationName, op.InputSchema, op.OutputSchema,
		op.WorkflowSteps, op.Constraints, op.Permissions))
	if err != nil {
		s.logger.Errorf("Failed to add ability operation: %v", err)
		return nil, err
	}
	return created, nil
}

// GetOperations retrieves all sub-operation records for an ability
func (s *Service) GetOperations(ctx context.Context, abilityID string) ([]*AbilityOperation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.ability_operations
		WHERE ability_id = $1
		ORDER BY operation_name
	`, operationColumns)

	rows, err := s.db.Pool().Query(ctx, query, abilityID)
	if err != nil {
		s.logger.Errorf("Failed to list ability operations: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var ops []*AbilityOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// ResolveRequirements reports whether the prerequisites declared by an
// ability are satisfied. Requirement graphs are not evaluated yet; every
// ability currently resolves as satisfied.
func (s *Service) ResolveRequirements(ctx context.Context, abilityID string) (bool, error) {
	_, err := s.Get(ctx, abilityID)
	if err != nil {
		return false, err
	}
	return true, nil
}
