package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/paravault/paravault/pkg/logger"
)

// ErrNotFound is returned by the executor when a task lookup misses.
var ErrNotFound = errors.New("task not found")

// Executor performs the persistence actions for tasks.
type Executor interface {
	Get(ctx context.Context, in Input) (*Task, error)
	GetAll(ctx context.Context, in Input) ([]Task, int64, error)
	Create(ctx context.Context, in Input) (*Task, error)
	Update(ctx context.Context, in Input) (*Task, error)
	Delete(ctx context.Context, in Input) error
}

// Workflow validates a task operation and dispatches it to the executor.
// Failures never cross this boundary as errors; they surface in the Output.
type Workflow struct {
	executor Executor
	logger   *logger.Logger
	dispatch map[Operation]func(context.Context, Input) Output
}

// NewWorkflow builds the task workflow with its operation table resolved at
// construction.
func NewWorkflow(executor Executor, log *logger.Logger) *Workflow {
	w := &Workflow{
		executor: executor,
		logger:   log,
	}
	w.dispatch = map[Operation]func(context.Context, Input) Output{
		OpGet:    w.get,
		OpGetAll: w.getAll,
		OpCreate: w.create,
		OpUpdate: w.update,
		OpDelete: w.delete,
	}
	return w
}

// ProcessOperation validates the input and dispatches to the executor.
func (w *Workflow) ProcessOperation(ctx context.Context, in Input) Output {
	if err := w.validate(in); err != nil {
		if w.logger != nil {
			w.logger.Warnf("Rejected task %s operation: %v", in.Operation, err)
		}
		return failure(err.Error())
	}

	handler, ok := w.dispatch[in.Operation]
	if !ok {
		return failure(fmt.Sprintf("unknown operation %q", in.Operation))
	}
	return handler(ctx, in)
}

func (w *Workflow) validate(in Input) error {
	if !in.Operation.Known() {
		return fmt.Errorf("unknown operation %q", in.Operation)
	}
	if in.Operation.RequiresTitle() && in.Title == "" {
		return errors.New("title is required")
	}
	if in.Operation.TargetsTask() && in.TaskID == "" {
		return errors.New("task_id is required")
	}
	if in.Operation == OpUpdate &&
		in.Title == "" && in.Description == "" && in.Status == "" &&
		in.Priority == "" && in.AssignedToUser == "" {
		return errors.New("at least one field is required for UPDATE")
	}
	return nil
}

func (w *Workflow) get(ctx context.Context, in Input) Output {
	task, err := w.executor.Get(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Task: task}
}

func (w *Workflow) getAll(ctx context.Context, in Input) Output {
	tasks, total, err := w.executor.GetAll(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return Output{Success: true, Tasks: tasks, Total: total}
}

func (w *Workflow) create(ctx context.Context, in Input) Output {
	task, err := w.executor.Create(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Task: task}
}

func (w *Workflow) update(ctx context.Context, in Input) Output {
	task, err := w.executor.Update(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Task: task}
}

func (w *Workflow) delete(ctx context.Context, in Input) Output {
	if err := w.executor.Delete(ctx, in); err != nil {
		return failure(err.Error())
	}
	return Output{Success: true}
}
