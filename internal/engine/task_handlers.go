package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/notifier"
	"github.com/paravault/paravault/internal/tasks"
)

// TaskHandlers contains the task endpoint handlers. Requests funnel
// through the task workflow; a workflow-level failure maps to a 4xx
// with the error string as the detail payload.
type TaskHandlers struct {
	engine *Engine
}

// NewTaskHandlers creates a new instance of TaskHandlers
func NewTaskHandlers(engine *Engine) *TaskHandlers {
	return &TaskHandlers{
		engine: engine,
	}
}

func (th *TaskHandlers) writeWorkflowFailure(w http.ResponseWriter, out tasks.Output) {
	status := http.StatusBadRequest
	if strings.Contains(out.Error, "not found") {
		status = http.StatusNotFound
	}
	th.engine.writeErrorResponse(w, status, "Task operation failed", out.Error)
}

// AddTask handles POST /api/v1/tasks
func (th *TaskHandlers) AddTask(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	var req struct {
		Title               string `json:"title"`
		Description         string `json:"description"`
		Status              string `json:"status"`
		Priority            string `json:"priority"`
		AssignedByParalegal string `json:"assigned_by_paralegal"`
		AssignedToUser      string `json:"assigned_to_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		th.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	out := th.engine.taskWorkflow.ProcessOperation(r.Context(), tasks.Input{
		Operation:           tasks.OpCreate,
		Title:               req.Title,
		Description:         req.Description,
		Status:              req.Status,
		Priority:            req.Priority,
		AssignedByParalegal: req.AssignedByParalegal,
		AssignedToUser:      req.AssignedToUser,
	})
	if !out.Success {
		th.writeWorkflowFailure(w, out)
		return
	}

	th.notifyTaskCreated(out)
	th.engine.writeJSONResponse(w, http.StatusCreated, out.Task)
}

// notifyTaskCreated pushes the new task to the configured outbound
// webhook, if any. Delivery runs in the background; the creating
// request never waits on it.
func (th *TaskHandlers) notifyTaskCreated(out tasks.Output) {
	if th.engine.notifier == nil || th.engine.taskWebhookURL == "" || out.Task == nil {
		return
	}

	task := out.Task
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		err := th.engine.notifier.Send(ctx, notifier.Delivery{
			ID:         task.ID,
			URL:        th.engine.taskWebhookURL,
			Event:      "task.created",
			Payload:    task,
			Secret:     th.engine.webhookSecret,
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		})
		if err != nil && th.engine.logger != nil {
			th.engine.logger.Errorf("Task notification failed: %v", err)
		}
	}()
}

// ShowTask handles GET /api/v1/tasks/{task_id}
func (th *TaskHandlers) ShowTask(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	out := th.engine.taskWorkflow.ProcessOperation(r.Context(), tasks.Input{
		Operation: tasks.OpGet,
		TaskID:    mux.Vars(r)["task_id"],
	})
	if !out.Success {
		th.writeWorkflowFailure(w, out)
		return
	}

	th.engine.writeJSONResponse(w, http.StatusOK, out.Task)
}

// ListTasks handles GET /api/v1/tasks with status/priority filters and
// page/page_size pagination
func (th *TaskHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	out := th.engine.taskWorkflow.ProcessOperation(r.Context(), tasks.Input{
		Operation:      tasks.OpGetAll,
		FilterStatus:   q.Get("status"),
		FilterPriority: q.Get("priority"),
		Page:           page,
		PageSize:       pageSize,
	})
	if !out.Success {
		th.writeWorkflowFailure(w, out)
		return
	}

	th.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tasks": out.Tasks,
		"total": out.Total,
	})
}

// ModifyTask handles PUT /api/v1/tasks/{task_id}
func (th *TaskHandlers) ModifyTask(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		Status         string `json:"status"`
		Priority       string `json:"priority"`
		AssignedToUser string `json:"assigned_to_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		th.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	out := th.engine.taskWorkflow.ProcessOperation(r.Context(), tasks.Input{
		Operation:      tasks.OpUpdate,
		TaskID:         mux.Vars(r)["task_id"],
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssignedToUser: req.AssignedToUser,
	})
	if !out.Success {
		th.writeWorkflowFailure(w, out)
		return
	}

	th.engine.writeJSONResponse(w, http.StatusOK, out.Task)
}

// DeleteTask handles DELETE /api/v1/tasks/{task_id}
func (th *TaskHandlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	th.engine.TrackOperation()
	defer th.engine.UntrackOperation()

	out := th.engine.taskWorkflow.ProcessOperation(r.Context(), tasks.Input{
		Operation: tasks.OpDelete,
		TaskID:    mux.Vars(r)["task_id"],
	})
	if !out.Success {
		th.writeWorkflowFailure(w, out)
		return
	}

	th.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Task deleted successfully",
		"status":  StatusDeleted,
	})
}
