package memory

import (
	"fmt"

	"github.com/paravault/paravault/pkg/database"
	"github.com/paravault/paravault/pkg/logger"
	"github.com/paravault/paravault/pkg/models"
)

// Domain names as they appear in route paths.
const (
	DomainSelfIdentity          = "self-identity"
	DomainGlobalKnowledge       = "global-knowledge"
	DomainEducationalKnowledge  = "educational-knowledge"
	DomainConversationalHistory = "conversational-history"
	DomainActionsHistory        = "actions-history"
)

func selfIdentityDomain() Domain {
	return Domain{
		Name:         DomainSelfIdentity,
		SingleRecord: true,
		TextFields:   []TextField{FieldPrompt},
	}
}

func globalKnowledgeDomain() Domain {
	return Domain{
		Name:       DomainGlobalKnowledge,
		Typed:      true,
		TextFields: []TextField{FieldPrompt},
		ValidateType: func(in Input) error {
			if in.KnowledgeType == "" {
				return fmt.Errorf("knowledge_type is required")
			}
			if !in.KnowledgeType.Valid() {
				return fmt.Errorf("unknown knowledge_type %q", in.KnowledgeType)
			}
			return nil
		},
	}
}

func educationalKnowledgeDomain() Domain {
	return Domain{
		Name:       DomainEducationalKnowledge,
		Typed:      true,
		TextFields: []TextField{FieldPrompt},
		ValidateType: func(in Input) error {
			if in.EducationType == "" {
				return fmt.Errorf("education_type is required")
			}
			if !in.EducationType.Valid() {
				return fmt.Errorf("unknown education_type %q", in.EducationType)
			}
			return nil
		},
	}
}

func conversationalHistoryDomain() Domain {
	return Domain{
		Name:       DomainConversationalHistory,
		TextFields: []TextField{FieldSummary, FieldContext},
	}
}

func actionsHistoryDomain() Domain {
	return Domain{
		Name:       DomainActionsHistory,
		TextFields: []TextField{FieldSummary, FieldContext},
	}
}

// ParseKnowledgeType converts a route path segment into a knowledge type.
func ParseKnowledgeType(s string) (models.KnowledgeType, error) {
	kt := models.KnowledgeType(s)
	if !kt.Valid() {
		return "", fmt.Errorf("unknown knowledge_type %q", s)
	}
	return kt, nil
}

// ParseEducationType converts a route path segment into an education type.
func ParseEducationType(s string) (models.EducationType, error) {
	et := models.EducationType(s)
	if !et.Valid() {
		return "", fmt.Errorf("unknown education_type %q", s)
	}
	return et, nil
}

// NewWorkflows builds the workflow for every long-term-memory domain, keyed
// by the domain name used in route paths.
func NewWorkflows(db *database.PostgreSQL, log *logger.Logger) map[string]*Workflow {
	return map[string]*Workflow{
		DomainSelfIdentity:          NewWorkflow(selfIdentityDomain(), NewIdentityExecutor(db, log), log),
		DomainGlobalKnowledge:       NewWorkflow(globalKnowledgeDomain(), NewGlobalKnowledgeExecutor(db, log), log),
		DomainEducationalKnowledge:  NewWorkflow(educationalKnowledgeDomain(), NewEducationalKnowledgeExecutor(db, log), log),
		DomainConversationalHistory: NewWorkflow(conversationalHistoryDomain(), NewConversationalHistoryExecutor(db, log), log),
		DomainActionsHistory:        NewWorkflow(actionsHistoryDomain(), NewActionsHistoryExecutor(db, log), log),
	}
}
