package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/paravault/paravault/pkg/logger"
)

// ErrNotFound is returned by executors when a lookup-by-key misses.
var ErrNotFound = errors.New("record not found")

// Executor performs the persistence actions for exactly one memory domain.
type Executor interface {
	Get(ctx context.Context, in Input) (*Record, error)
	GetAll(ctx context.Context, in Input) ([]Record, error)
	Create(ctx context.Context, in Input) (*Record, error)
	Update(ctx context.Context, in Input) (*Record, error)
	Delete(ctx context.Context, in Input) error
}

// Domain describes the shape of one long-term-memory domain: its name, the
// free-text fields it carries, and how records are keyed.
type Domain struct {
	Name string
	// Typed domains key records by (vp_id, type) and hold at most one record
	// per pair.
	Typed bool
	// SingleRecord domains hold exactly one record per paralegal, keyed by
	// vp_id alone.
	SingleRecord bool
	// TextFields are the free-text fields the domain requires on CREATE.
	TextFields []TextField
	// ValidateType checks the typed selector on the input. Nil for untyped
	// domains.
	ValidateType func(Input) error
}

// Workflow validates a memory operation against the domain's requirements and
// dispatches it to the executor. All failures, validation and executor alike,
// surface through the Output envelope.
type Workflow struct {
	domain   Domain
	executor Executor
	logger   *logger.Logger
	dispatch map[Operation]func(context.Context, Input) Output
}

// NewWorkflow builds a workflow for one domain. The operation table is
// resolved here, once, so an unknown tag can never reach the executor.
func NewWorkflow(domain Domain, executor Executor, log *logger.Logger) *Workflow {
	w := &Workflow{
		domain:   domain,
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

// Domain returns the domain this workflow serves.
func (w *Workflow) Domain() Domain {
	return w.domain
}

// ProcessOperation validates the input and dispatches to the executor. It
// never panics or returns an error; the Output carries success or failure.
func (w *Workflow) ProcessOperation(ctx context.Context, in Input) Output {
	if err := w.validate(in); err != nil {
		if w.logger != nil {
			w.logger.Warnf("Rejected %s operation on %s: %v", in.Operation, w.domain.Name, err)
		}
		return failure(err.Error())
	}

	handler, ok := w.dispatch[in.Operation]
	if !ok {
		return failure(fmt.Sprintf("unknown operation %q for domain %s", in.Operation, w.domain.Name))
	}

	return handler(ctx, in)
}

func (w *Workflow) validate(in Input) error {
	if !in.Operation.Known() {
		return fmt.Errorf("unknown operation %q for domain %s", in.Operation, w.domain.Name)
	}
	if in.VPID == "" {
		return errors.New("vp_id is required")
	}

	if in.Operation.RequiresAllText() {
		for _, f := range w.domain.TextFields {
			if in.Text(f) == "" {
				return fmt.Errorf("%s is required for %s on %s", f, in.Operation, w.domain.Name)
			}
		}
	}

	if in.Operation.RequiresSomeText() {
		present := false
		for _, f := range w.domain.TextFields {
			if in.Text(f) != "" {
				present = true
				break
			}
		}
		if !present {
			return fmt.Errorf("at least one of the %s fields is required for %s", w.domain.Name, in.Operation)
		}
	}

	// Typed domains need a valid selector whenever a single record is
	// addressed or created
	if w.domain.Typed && (in.Operation.TargetsRecord() || in.Operation == OpCreate) {
		if w.domain.ValidateType == nil {
			return fmt.Errorf("domain %s declares a type selector but no validator", w.domain.Name)
		}
		if err := w.domain.ValidateType(in); err != nil {
			return err
		}
	}

	// Multi-record untyped domains address records by id
	if !w.domain.Typed && !w.domain.SingleRecord && in.Operation.TargetsRecord() && in.RecordID == "" {
		return errors.New("record_id is required")
	}

	return nil
}

func (w *Workflow) get(ctx context.Context, in Input) Output {
	record, err := w.executor.Get(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Record: record}
}

func (w *Workflow) getAll(ctx context.Context, in Input) Output {
	records, err := w.executor.GetAll(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	if records == nil {
		// Empty result is a success with an empty list, not a failure
		records = []Record{}
	}
	return Output{Success: true, Records: records}
}

func (w *Workflow) create(ctx context.Context, in Input) Output {
	record, err := w.executor.Create(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Record: record}
}

func (w *Workflow) update(ctx context.Context, in Input) Output {
	record, err := w.executor.Update(ctx, in)
	if err != nil {
		return failure(err.Error())
	}
	return Output{Success: true, Record: record}
}

func (w *Workflow) delete(ctx context.Context, in Input) Output {
	if err := w.executor.Delete(ctx, in); err != nil {
		return failure(err.Error())
	}
	return Output{Success: true}
}
