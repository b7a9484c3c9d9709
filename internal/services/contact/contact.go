package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Service handles contact operations
type Service struct {
	db     *database.PostgreSQL
	logger *logger.Logger
}

// NewService creates a new contact service
func NewService(db *database.PostgreSQL, logger *logger.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Contact represents an address-book entry
type Contact struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	models.AuditMetadata
}

// Association is a join record linking a contact to a client or a
// project with a role attribute. Association rows are not independent
// entities; they live and die with their contact.
type Association struct {
	ID        string
	ContactID string
	TargetID  string
	Role      models.ContactRole
	models.AuditMetadata
}

const contactColumns = "contact_id, first_name, last_name, contact_email, contact_phone, created, updated"

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Created,
		&c.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanAssociation(row pgx.Row) (*Association, error) {
	var a Association
	err := row.Scan(
		&a.ID,
		&a.ContactID,
		&a.TargetID,
		&a.Role,
		&a.Created,
		&a.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new contact
func (s *Service) Create(ctx context.Context, firstName, lastName, email, phone string) (*Contact, error) {
	s.logger.Infof("Creating contact: %s %s", firstName, lastName)

	query := fmt.Sprintf(`
		INSERT INTO contacts (first_name, last_name, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, contactColumns)

	c, err := scanContact(s.db.Pool().QueryRow(ctx, query, firstName, lastName, email, phone))
	if err != nil {
		s.logger.Errorf("Failed to create contact: %v", err)
		return nil, err
	}
	return c, nil
}

// Get retrieves a contact by ID
func (s *Service) Get(ctx context.Context, contactID string) (*Contact, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts
		WHERE contact_id = $1
	`, contactColumns)

	c, err := scanContact(s.db.Pool().QueryRow(ctx, query, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("contact not found")
		}
		s.logger.Errorf("Failed to get contact: %v", err)
		return nil, err
	}
	return c, nil
}

// List retrieves all contacts
func (s *Service) List(ctx context.Context) ([]*Contact, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts
		ORDER BY last_name, first_name
	`, contactColumns)

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		s.logger.Errorf("Failed to list contacts: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Update updates specific fields of a contact
func (s *Service) Update(ctx context.Context, contactID string, updates map[string]interface{}) (*Contact, error) {
	s.logger.Infof("Updating contact: %s", contactID)
	if len(updates) == 0 {
		return s.Get(ctx, contactID)
	}

	query := "UPDATE contacts SET updated = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argIndex := 1

	for field, value := range updates {
		query += fmt.Sprintf(", %s = $%d", field, argIndex)
		args = append(args, value)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE contact_id = $%d RETURNING %s", argIndex, contactColumns)
	args = append(args, contactID)

	c, err := scanContact(s.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("contact not found")
		}
		s.logger.Errorf("Failed to update contact: %v", err)
		return nil, err
	}
	return c, nil
}

// Delete deletes a contact and its association rows
func (s *Service) Delete(ctx context.Context, contactID string) error {
	s.logger.Infof("Deleting contact: %s", contactID)

	commandTag, err := s.db.Pool().Exec(ctx, `
		DELETE FROM contacts
		WHERE contact_id = $1
	`, contactID)
	if err != nil {
		s.logger.Errorf("Failed to delete contact: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("contact not found")
	}
	return nil
}

// LinkClient associates a contact with a client under the given role
func (s *Service) LinkClient(ctx context.Context, contactID, clientID string, role models.ContactRole) (*Association, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid contact role: %s", role)
	}
	s.logger.Infof("Linking contact %s to client %s as %s", contactID, clientID, role)

	a, err := scanAssociation(s.db.Pool().QueryRow(ctx, `
		INSERT INTO contact_clients (contact_id, client_id, contact_role)
		VALUES ($1, $2, $3)
		RETURNING association_id, contact_id, client_id, contact_role, created, updated
	`, contactID, clientID, role))
	if err != nil {
		s.logger.Errorf("Failed to link contact to client: %v", err)
		return nil, err
	}
	return a, nil
}

// LinkProject associates a contact with a project under the given role
func (s *Service) LinkProject(ctx context.Context, contactID, projectID string, role models.ContactRole) (*Association, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid contact role: %s", role)
	}
	s.logger.Infof("Linking contact %s to project %s as %s", contactID, projectID, role)

	a, err := scanAssociation(s.db.Pool().QueryRow(ctx, `
		INSERT INTO contact_projects (contact_id, project_id, contact_role)
		VALUES ($1, $2, $3)
		RETURNING association_id, contact_id, project_id, contact_role, created, updated
	`, contactID, projectID, role))
	if err != nil {
		s.logger.Errorf("Failed to link contact to project: %v", err)
		return nil, err
	}
	return a, nil
}

// ClientAssociations lists the client association rows for a contact
func (s *Service) ClientAssociations(ctx context.Context, contactID string) ([]*Association, error) {
	return s.listAssociations(ctx, contactID, "contact_clients", "client_id")
}

// ProjectAssociations lists the project association rows for a contact
func (s *Service) ProjectAssociations(ctx context.Context, contactID string) ([]*Association, error) {
	return s.listAssociations(ctx, contactID, "contact_projects", "project_id")
}

func (s *Service) listAssociations(ctx context.Context, contactID, table, targetColumn string) ([]*Association, error) {
	query := fmt.Sprintf(`
		SELECT association_id, contact_id, %s, contact_role, created, updated
		FROM %s
		WHERE contact_id = $1
		ORDER BY created
	`, targetColumn, table)

	rows, err := s.db.Pool().Query(ctx, query, contactID)
	if err != nil {
		s.logger.Errorf("Failed to list contact associations: %v", err)
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()

	var associations []*Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		associations = append(associations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return associations, nil
}

// Unlink removes a client or project association by its row ID
func (s *Service) Unlink(ctx context.Context, table, associationID string) error {
	if table != "contact_clients" && table != "contact_projects" {
		return fmt.Errorf("unknown association table: %s", table)
	}

	commandTag, err := s.db.Pool().Exec(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE association_id = $1
	`, table), associationID)
	if err != nil {
		s.logger.Errorf("Failed to unlink contact association: %v", err)
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return errors.New("association not found")
	}
	return nil
}
