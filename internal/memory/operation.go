package memory

import (
	"github.com/paravault/paravault/pkg/models"
)

// Operation is the closed set of actions a long-term-memory workflow accepts.
type Operation string

const (
	OpGet    Operation = "GET"
	OpGetAll Operation = "GET_ALL"
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Known reports whether the tag is a member of the operation set.
func (op Operation) Known() bool {
	switch op {
	case OpGet, OpGetAll, OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// RequiresAllText reports whether the operation needs every free-text field
// the domain declares. True only for CREATE.
func (op Operation) RequiresAllText() bool {
	return op == OpCreate
}

// RequiresSomeText reports whether the operation needs at least one of the
// domain's free-text fields. True for UPDATE, which patches fields that are
// present and leaves the rest untouched.
func (op Operation) RequiresSomeText() bool {
	return op == OpUpdate
}

// TargetsRecord reports whether the operation addresses a single existing
// record and therefore needs a key (record id, or the type selector for
// typed domains).
func (op Operation) TargetsRecord() bool {
	switch op {
	case OpGet, OpUpdate, OpDelete:
		return true
	}
	return false
}

// TextField names a free-text field of the memory input envelope.
type TextField string

const (
	FieldPrompt  TextField = "prompt"
	FieldSummary TextField = "summary"
	FieldContext TextField = "context"
)

// Input is the request envelope for a memory operation.
type Input struct {
	Operation Operation `json:"operation"`
	VPID      string    `json:"vp_id"`
	RecordID  string    `json:"record_id,omitempty"`

	Prompt  string `json:"prompt,omitempty"`
	Summary string `json:"summary,omitempty"`
	Context string `json:"context,omitempty"`

	KnowledgeType models.KnowledgeType `json:"knowledge_type,omitempty"`
	EducationType models.EducationType `json:"education_type,omitempty"`
}

// Text returns the value of the named free-text field.
func (in Input) Text(f TextField) string {
	switch f {
	case FieldPrompt:
		return in.Prompt
	case FieldSummary:
		return in.Summary
	case FieldContext:
		return in.Context
	}
	return ""
}

// Record is a single long-term-memory record. Fields not used by a domain
// stay zero and are omitted from JSON.
type Record struct {
	ID          string `json:"id"`
	VPID        string `json:"vp_id"`
	Type        string `json:"type,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Context     string `json:"context,omitempty"`
	AccessCount int64  `json:"access_count,omitempty"`
	models.AuditMetadata
}

// Output is the response envelope for a memory operation. Failures surface
// here; ProcessOperation never returns a Go error to its caller.
type Output struct {
	Success bool     `json:"success"`
	Record  *Record  `json:"record,omitempty"`
	Records []Record `json:"records,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func failure(msg string) Output {
	return Output{Success: false, Error: msg}
}
