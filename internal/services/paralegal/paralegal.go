package paralegal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Service handles virtual paralegal operations
type Service struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewService creates a new paralegal service
func NewService(db *database.PostgreSQL, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Paralegal represents a virtual paralegal owned by a user
type Paralegal struct {
	ID               string
	OwnerID          string
	Name             string
	Email            string
	Description      string
	Status           string
	Abilities        []string
	Behaviours       []string
	TechTreeProgress map[string]int
	models.AuditMetadata
}

const paralegalColumns = "vp_id, owner_id, vp_name, vp_email, vp_description, vp_status, abilities, behaviours, tech_tree_progress, created, updated"

func scanParalegal(row pgx.Row) (*Paralegal, error) {
	var p Paralegal
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Email,
		&p.Description,
		&p.Status,
		&p.Abilities,
		&p.Behaviours,
		&p.TechTreeProgress,
		&p.Created,
		&p.Updated,
	)
	if err != nil {
		return nil, err
	}
	if p.Abilities == nil {
		p.Abilities = []string{}
	}
	if p.Behaviours == nil {
		p.Behaviours = []string{}
	}
	if p.TechTreeProgress == nil {
		p.TechTreeProgress = map[string]int{}
	}
	return &p, nil
}

// Create creates a new virtual paralegal for the given owner
func (s *Service) Create(ctx context.Context, ownerID, name, email, description string) (*Paralegal, error) {
	s.logger.Infof("Creating paralegal %s for owner %s", name, ownerID)

	var emailExists bool
	err := s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vault.paralegals WHERE vp_email = $1)
	`, email).Scan(&emailExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check paralegal email: %w", err)
	}
	if emailExists {
		return nil, errors.New("paralegal with this email already exists")
	}

	var nameExists bool
	err = s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vault.paralegals WHERE owner_id = $1 AND vp_name = $2)
	`, ownerID, name).Scan(&nameExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check paralegal name: %w", err)
	}
	if nameExists {
		return nil, errors.New("paralegal with this name already exists for owner")
	}

	query := fmt.Sprintf(`
		INSERT INTO vault.paralegals (owner_id, vp_name, vp_email, vp_description, vp_status, abilities, behaviours, tech_tree_progress)
		VALUES ($1, $2, $3, $4, 'active', '[]'::jsonb, '[]'::jsonb, '{}'::jsonb)
		RETURNING %s
	`, paralegalColumns)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, ownerID, name, email, description))
	if err != nil {
		s.logger.Errorf("Failed to create paralegal: %v", err)
		return nil, err
	}
	return p, nil
}

// Get retrieves a paralegal by ID
func (s *Service) Get(ctx context.Context, vpID string) (*Paralegal, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.paralegals
		WHERE vp_id = $1
	`, paralegalColumns)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, vpID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("paralegal not found")
		}
		s.logger.Errorf("Failed to get paralegal: %v", err)
		return nil, err
	}
	return p, nil
}

// ListByOwner retrieves all paralegals owned by a user
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Paralegal, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM vault.paralegals
		WHERE owner_id = $1
		ORDER BY vp_name
	`, paralegalColumns)

	rows, err := s.db.Pool().Query(ctx, query, ownerID)
	if err != nil {
		s.logger.Errorf("Failed to list paralegals: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var paralegals []*Paralegal
	for rows.Next() {
		p, err := scanParalegal(rows)
		if err != nil {
			return nil, err
		}
		paralegals = append(paralegals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paralegals, nil
}

// Update updates specific fields of a paralegal
func (s *Service) Update(ctx context.Context, vpID string, updates map[string]interface{}) (*Paralegal, error) {
	s.logger.Infof("Updating paralegal: %s", vpID)
	if len(updates) == 0 {
		return s.Get(ctx, vpID)
	}

	query := "UPDATE vault.paralegals SET updated = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argIndex := 1

	for field, value := range updates {
		query += fmt.Sprintf(", %s = $%d", field, argIndex)
		args = append(args, value)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE vp_id = $%d RETURNING %s", argIndex, paralegalColumns)
	args = append(args, vpID)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("paralegal not found")
		}
		s.logger.Errorf("Failed to update paralegal: %v", err)
		return nil, err
	}
	return p, nil
}

// GrantAbility appends an ability ID to the paralegal's ability list.
// Granting an already-held ability is a no-op.
func (s *Service) GrantAbility(ctx context.Context, vpID, abilityID string) (*Paralegal, error) {
	s.logger.Infof("Granting ability %s to paralegal %s", abilityID, vpID)

	query := fmt.Sprintf(`
		UPDATE vault.paralegals
		SET abilities = CASE
			WHEN abilities @> to_jsonb($2::text) THEN abilities
			ELSE abilities || to_jsonb($2::text)
		END,
		updated = CURRENT_TIMESTAMP
		WHERE vp_id = $1
		RETURNING %s
	`, paralegalColumns)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, vpID, abilityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("paralegal not found")
		}
		s.logger.Errorf("Failed to grant ability: %v", err)
		return nil, err
	}
	return p, nil
}

// AssignBehaviour appends a behaviour ID to the paralegal's behaviour list.
func (s *Service) AssignBehaviour(ctx context.Context, vpID, behaviourID string) (*Paralegal, error) {
	s.logger.Infof("Assigning behaviour %s to paralegal %s", behaviourID, vpID)

	query := fmt.Sprintf(`
		UPDATE vault.paralegals
		SET behaviours = CASE
			WHEN behaviours @> to_jsonb($2::text) THEN behaviours
			ELSE behaviours || to_jsonb($2::text)
		END,
		updated = CURRENT_TIMESTAMP
		WHERE vp_id = $1
		RETURNING %s
	`, paralegalColumns)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, vpID, behaviourID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("paralegal not found")
		}
		s.logger.Errorf("Failed to assign behaviour: %v", err)
		return nil, err
	}
	return p, nil
}

// SetTechTreeProgress records progress on a single tech tree node
func (s *Service) SetTechTreeProgress(ctx context.Context, vpID, node string, level int) (*Paralegal, error) {
	query := fmt.Sprintf(`
		UPDATE vault.paralegals
		SET tech_tree_progress = jsonb_set(tech_tree_progress, ARRAY[$2], to_jsonb($3::int), true),
		updated = CURRENT_TIMESTAMP
		WHERE vp_id = $1
		RETURNING %s
	`, paralegalColumns)

	p, err := scanParalegal(s.db.Pool().QueryRow(ctx, query, vpID, node, level))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("paralegal not found")
		}
		s.logger.Errorf("Failed to set tech tree progress: %v", err)
		return nil, err
	}
	return p, nil
}

// Delete deletes a paralegal and all of its memory records
func (s *Service) Delete(ctx context.Context, vpID string) error {
	s.logger.Infof("Deleting paralegal: %s", vpID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		DELETE FROM vault.paralegals
		WHERE vp_id = $1
	`, vpID)
	if err != nil {
		s.logger.Errorf("Failed to delete paralegal: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("paralegal not found")
	}
	return nil
}

// Exists checks if a paralegal with the given ID exists
func (s *Service) Exists(ctx context.Context, vpID string) (bool, error) {
	var exists bool
	err := s.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vault.paralegals WHERE vp_id = $1)
	`, vpID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
