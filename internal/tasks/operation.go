package tasks

import (
	"github.com/paravault/paravault/pkg/models"
)

// Operation is the closed set of actions the task workflow accepts.
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

// RequiresTitle reports whether the operation needs the task title.
func (op Operation) RequiresTitle() bool {
	return op == OpCreate
}

// TargetsTask reports whether the operation addresses one existing task.
func (op Operation) TargetsTask() bool {
	switch op {
	case OpGet, OpUpdate, OpDelete:
		return true
	}
	return false
}

// DefaultStatus is assigned to tasks created without an explicit status.
// Status values are free strings; transitions are not validated.
const DefaultStatus = "pending"

// Pagination defaults for GET_ALL.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Task is a work item assigned by a paralegal to a user.
type Task struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description,omitempty"`
	Status              string `json:"status"`
	Priority            string `json:"priority,omitempty"`
	AssignedByParalegal string `json:"assigned_by_paralegal,omitempty"`
	AssignedToUser      string `json:"assigned_to_user,omitempty"`
	models.AuditMetadata
}

// Input is the request envelope for a task operation.
type Input struct {
	Operation Operation `json:"operation"`
	TaskID    string    `json:"task_id,omitempty"`

	Title               string `json:"title,omitempty"`
	Description         string `json:"description,omitempty"`
	Status              string `json:"status,omitempty"`
	Priority            string `json:"priority,omitempty"`
	AssignedByParalegal string `json:"assigned_by_paralegal,omitempty"`
	AssignedToUser      string `json:"assigned_to_user,omitempty"`

	// GET_ALL filters and pagination
	FilterStatus   string `json:"filter_status,omitempty"`
	FilterPriority string `json:"filter_priority,omitempty"`
	Page           int    `json:"page,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
}

// Output is the response envelope for a task operation.
type Output struct {
	Success bool   `json:"success"`
	Task    *Task  `json:"task,omitempty"`
	Tasks   []Task `json:"tasks,omitempty"`
	Total   int64  `json:"total,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Output {
	return Output{Success: false, Error: msg}
}
