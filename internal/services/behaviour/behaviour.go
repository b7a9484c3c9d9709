package behaviour

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Service handles behaviour operations
type Service struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewService creates a new behaviour service
func NewService(db *database.PostgreSQL, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Behaviour represents a configurable personality trait with a system prompt
type Behaviour struct {
	ID           string
	Name         string
	SystemPrompt string
	Status       models.BehaviourStatus
	models.AuditMetadata
}

const behaviourColumns = "behaviour_id, behaviour_name, system_prompt, behaviour_status, created, updated"

func scanBehaviour(row pgx.Row) (*Behaviour, error) {
	var b Behaviour
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.SystemPrompt,
		&b.Status,
		&b.Created,
		&b.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create creates a new behaviour. Names are globally unique.
func (s *Service) Create(ctx context.Context, name, systemPrompt string) (*Behaviour, error) {
	s.logger.Infof("Creating behaviour: %s", name)

	var nameExists bool
	err := s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vault.behaviours WHERE behaviour_name = $1)
	`, name).Scan(&nameExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check behaviour name: %w", err)
	}
	if nameExists {
		return nil, errors.New("behaviour with this name already exists")
	}

	query := fmt.Sprintf(`
		INSERT INTO vault.behaviours (behaviour_name, system_prompt, behaviour_status)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, behaviourColumns)

	b, err := scanBehaviour(s.db.Pool().QueryRow(ctx, query, name, systemPrompt, models.BehaviourActive))
	if err != nil {
		s.logger.Errorf("Failed to create behaviour: %v", err)
		return nil, err
	}
	return b, nil
}

// Get retrieves a behaviour by ID
func (s *Service) Get(ctx context.Context, behaviourID string) (*Behaviour, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.behaviours
		WHERE behaviour_id = $1
	`, behaviourColumns)

	b, err := scanBehaviour(s.db.Pool().QueryRow(ctx, query, behaviourID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("behaviour not found")
		}
		s.logger.Errorf("Failed to get behaviour: %v", err)
		return nil, err
	}
	return b, nil
}

// GetByName retrieves a behaviour by its unique name
func (s *Service) GetByName(ctx context.Context, name string) (*Behaviour, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.behaviours
		WHERE behaviour_name = $1
	`, behaviourColumns)

	b, err := scanBehaviour(s.db.Pool().QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("behaviour not found")
		}
		s.logger.Errorf("Failed to get behaviour by name: %v", err)
		return nil, err
	}
	return b, nil
}

// List retrieves all behaviours, optionally filtered by status
func (s *Service) List(ctx context.Context, status models.BehaviourStatus) ([]*Behaviour, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.behaviours
	`, behaviourColumns)
	args := []interface{}{}

	if status != "" {
		query += " WHERE behaviour_status = $1"
		args = append(args, status)
	}
	query += " ORDER BY behaviour_name"

	rows, err := s.db.Pool().Query(ctx, query, args...)
	if err != nil {
		s.logger.Errorf("Failed to list behaviours: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var behaviours []*Behaviour
	for rows.Next() {
		b, err := scanBehaviour(rows)
		if err != nil {
			return nil, err
		}
		behaviours = append(behaviours, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return behaviours, nil
}

// Update updates specific fields of a behaviour. Status transitions
// are free-form; any of active/inactive/deprecated may follow any other.
func (s *Service) Update(ctx context.Context, behaviourID string, updates map[string]interface{}) (*Behaviour, error) {
	s.logger.Infof("Updating behaviour: %s", behaviourID)
	if len(updates) == 0 {
		return s.Get(ctx, behaviourID)
	}

	if v, ok := updates["behaviour_status"]; ok {
		if status, ok := v.(models.BehaviourStatus); ok && !status.Valid() {
			return nil, fmt.Errorf("invalid behaviour status: %s", status)
		}
		if status, ok := v.(string); ok && !models.BehaviourStatus(status).Valid() {
			return nil, fmt.Errorf("invalid behaviour status: %s", status)
		}
	}

	query := "UPDATE vault.behaviours SET updated = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argIndex := 1

	for field, value := range updates {
		query += fmt.Sprintf(", %s = $%d", field, argIndex)
		args = append(args, value)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE behaviour_id = $%d RETURNING %s", argIndex, behaviourColumns)
	args = append(args, behaviourID)

	b, err := scanBehaviour(s.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("behaviour not found")
		}
		s.logger.Errorf("Failed to update behaviour: %v", err)
		return nil, err
	}
	return b, nil
}

// Delete deletes a behaviour
func (s *Service) Delete(ctx context.Context, behaviourID string) error {
	s.logger.Infof("Deleting behaviour: %s", behaviourID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		DELETE FROM vault.behaviours
		WHERE behaviour_id = $1
	`, behaviourID)
	if err != nil {
		s.logger.Errorf("Failed to delete behaviour: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("behaviour not found")
	}
	return nil
}
