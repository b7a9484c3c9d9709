package models

import "time"

// AuditMetadata carries the audit columns shared by every persisted entity.
// It is embedded by value rather than inherited, so each entity owns its copy.
type AuditMetadata struct {
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Role is the access level attached to a user account.
type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role grants cross-user access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// KnowledgeType discriminates global-knowledge records. At most one record
// exists per (paralegal, type).
type KnowledgeType string

const (
	KnowledgeTypeLegal      KnowledgeType = "legal"
	KnowledgeTypeProcedural KnowledgeType = "procedural"
	KnowledgeTypeClient     KnowledgeType = "client"
	KnowledgeTypeGeneral    KnowledgeType = "general"
)

// Valid reports whether the knowledge type is a known discriminator.
func (k KnowledgeType) Valid() bool {
	switch k {
	case KnowledgeTypeLegal, KnowledgeTypeProcedural, KnowledgeTypeClient, KnowledgeTypeGeneral:
		return true
	}
	return false
}

// EducationType discriminates educational-knowledge records.
type EducationType string

const (
	EducationTypeCaseLaw   EducationType = "case_law"
	EducationTypeStatutes  EducationType = "statutes"
	EducationTypeProcedure EducationType = "procedure"
	EducationTypeDrafting  EducationType = "drafting"
)

// Valid reports whether the education type is a known discriminator.
func (e EducationType) Valid() bool {
	switch e {
	case EducationTypeCaseLaw, EducationTypeStatutes, EducationTypeProcedure, EducationTypeDrafting:
		return true
	}
	return false
}

// BehaviourStatus is the lifecycle state of a behaviour. Transitions are
// free-form; there is no guarded state machine.
type BehaviourStatus string

const (
	BehaviourActive     BehaviourStatus = "active"
	BehaviourInactive   BehaviourStatus = "inactive"
	BehaviourDeprecated BehaviourStatus = "deprecated"
)

func (b BehaviourStatus) Valid() bool {
	switch b {
	case BehaviourActive, BehaviourInactive, BehaviourDeprecated:
		return true
	}
	return false
}

// ContactRole is the role attribute on a contact association row.
type ContactRole string

const (
	ContactRolePrimary   ContactRole = "primary"
	ContactRoleBilling   ContactRole = "billing"
	ContactRoleLegal     ContactRole = "legal"
	ContactRoleTechnical ContactRole = "technical"
)

func (c ContactRole) Valid() bool {
	switch c {
	case ContactRolePrimary, ContactRoleBilling, ContactRoleLegal, ContactRoleTechnical:
		return true
	}
	return false
}
