package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paravault/paravault/pkg/models"
)

// fakeExecutor is an in-memory Executor test double that counts calls.
type fakeExecutor struct {
	records map[string]Record
	calls   map[string]int
	nextID  int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		records: make(map[string]Record),
		calls:   make(map[string]int),
	}
}

func (f *fakeExecutor) totalCalls() int {
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// lookup resolves an input to the stored record ID, either directly or by
// matching vp_id plus the domain selector.
func (f *fakeExecutor) lookup(in Input) (string, bool) {
	if in.RecordID != "" {
		_, ok := f.records[in.RecordID]
		return in.RecordID, ok
	}
	for id, r := range f.records {
		if r.VPID != in.VPID {
			continue
		}
		if in.KnowledgeType != "" && r.Type != string(in.KnowledgeType) {
			continue
		}
		if in.EducationType != "" && r.Type != string(in.EducationType) {
			continue
		}
		return id, true
	}
	return "", false
}

func (f *fakeExecutor) Get(ctx context.Context, in Input) (*Record, error) {
	f.calls["get"]++
	id, ok := f.lookup(in)
	if !ok {
		return nil, fmt.Errorf("record %w", ErrNotFound)
	}
	r := f.records[id]
	return &r, nil
}

func (f *fakeExecutor) GetAll(ctx context.Context, in Input) ([]Record, error) {
	f.calls["get_all"]++
	records := []Record{}
	for _, r := range f.records {
		if r.VPID == in.VPID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (f *fakeExecutor) Create(ctx context.Context, in Input) (*Record, error) {
	f.calls["create"]++
	if _, exists := f.lookup(in); exists {
		return nil, fmt.Errorf("record already exists")
	}
	typ := string(in.KnowledgeType)
	if typ == "" {
		typ = string(in.EducationType)
	}
	f.nextID++
	r := Record{
		ID:      fmt.Sprintf("rec-%d", f.nextID),
		VPID:    in.VPID,
		Type:    typ,
		Prompt:  in.Prompt,
		Summary: in.Summary,
		Context: in.Context,
	}
	f.records[r.ID] = r
	return &r, nil
}

func (f *fakeExecutor) Update(ctx context.Context, in Input) (*Record, error) {
	f.calls["update"]++
	id, ok := f.lookup(in)
	if !ok {
		return nil, fmt.Errorf("record %w", ErrNotFound)
	}
	r := f.records[id]
	if in.Prompt != "" {
		r.Prompt = in.Prompt
	}
	if in.Summary != "" {
		r.Summary = in.Summary
	}
	if in.Context != "" {
		r.Context = in.Context
	}
	f.records[id] = r
	return &r, nil
}

func (f *fakeExecutor) Delete(ctx context.Context, in Input) error {
	f.calls["delete"]++
	id, ok := f.lookup(in)
	if !ok {
		return fmt.Errorf("record %w", ErrNotFound)
	}
	delete(f.records, id)
	return nil
}

func allDomains() []Domain {
	return []Domain{
		selfIdentityDomain(),
		globalKnowledgeDomain(),
		educationalKnowledgeDomain(),
		conversationalHistoryDomain(),
		actionsHistoryDomain(),
	}
}

// validInput returns a CREATE-ready input for the given domain.
func validInput(d Domain, op Operation) Input {
	in := Input{Operation: op, VPID: "vp-1"}
	for _, f := range d.TextFields {
		switch f {
		case FieldPrompt:
			in.Prompt = "a prompt"
		case FieldSummary:
			in.Summary = "a summary"
		case FieldContext:
			in.Context = "some context"
		}
	}
	if d.Name == DomainGlobalKnowledge {
		in.KnowledgeType = models.KnowledgeTypeLegal
	}
	if d.Name == DomainEducationalKnowledge {
		in.EducationType = models.EducationTypeCaseLaw
	}
	return in
}

func TestCreateWithoutRequiredTextNeverReachesExecutor(t *testing.T) {
	for _, d := range allDomains() {
		t.Run(d.Name, func(t *testing.T) {
			exec := newFakeExecutor()
			w := NewWorkflow(d, exec, nil)

			in := validInput(d, OpCreate)
			in.Prompt = ""
			in.Summary = ""
			in.Context = ""

			out := w.ProcessOperation(context.Background(), in)

			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Error)
			assert.Equal(t, 0, exec.totalCalls(), "executor must not be invoked on validation failure")
		})
	}
}

func TestGetMissIsFailureAndGetAllEmptyIsSuccess(t *testing.T) {
	for _, d := range allDomains() {
		t.Run(d.Name, func(t *testing.T) {
			exec := newFakeExecutor()
			w := NewWorkflow(d, exec, nil)

			get := validInput(d, OpGet)
			get.RecordID = "missing"
			out := w.ProcessOperation(context.Background(), get)
			assert.False(t, out.Success)
			assert.Contains(t, out.Error, "not found")

			all := Input{Operation: OpGetAll, VPID: "vp-1"}
			out = w.ProcessOperation(context.Background(), all)
			assert.True(t, out.Success)
			require.NotNil(t, out.Records)
			assert.Empty(t, out.Records)
			assert.Empty(t, out.Error)
		})
	}
}

func TestPartialUpdatePatchesOnlyPresentFields(t *testing.T) {
	d := conversationalHistoryDomain()
	exec := newFakeExecutor()
	w := NewWorkflow(d, exec, nil)

	created := w.ProcessOperation(context.Background(), validInput(d, OpCreate))
	require.True(t, created.Success)

	update := Input{
		Operation: OpUpdate,
		VPID:      "vp-1",
		RecordID:  created.Record.ID,
		Summary:   "revised summary",
	}

	out := w.ProcessOperation(context.Background(), update)
	require.True(t, out.Success)
	assert.Equal(t, "revised summary", out.Record.Summary)
	assert.Equal(t, "some context", out.Record.Context, "absent field must stay unchanged")

	// Idempotence: the same update applied again yields the same state
	again := w.ProcessOperation(context.Background(), update)
	require.True(t, again.Success)
	assert.Equal(t, out.Record.Summary, again.Record.Summary)
	assert.Equal(t, out.Record.Context, again.Record.Context)
}

func TestSecondDeleteFails(t *testing.T) {
	d := globalKnowledgeDomain()
	exec := newFakeExecutor()
	w := NewWorkflow(d, exec, nil)

	created := w.ProcessOperation(context.Background(), validInput(d, OpCreate))
	require.True(t, created.Success)

	del := validInput(d, OpDelete)
	del.Prompt = ""

	out := w.ProcessOperation(context.Background(), del)
	assert.True(t, out.Success)

	out = w.ProcessOperation(context.Background(), del)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "not found")
}

func TestUnknownOperationIsRejected(t *testing.T) {
	exec := newFakeExecutor()
	w := NewWorkflow(selfIdentityDomain(), exec, nil)

	out := w.ProcessOperation(context.Background(), Input{Operation: "ARCHIVE", VPID: "vp-1"})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "unknown operation")
	assert.Equal(t, 0, exec.totalCalls())
}

func TestMissingVPIDIsRejected(t *testing.T) {
	exec := newFakeExecutor()
	w := NewWorkflow(actionsHistoryDomain(), exec, nil)

	out := w.ProcessOperation(context.Background(), Input{Operation: OpGetAll})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "vp_id")
	assert.Equal(t, 0, exec.totalCalls())
}

func TestTypedDomainRequiresValidSelector(t *testing.T) {
	t.Run("missing selector", func(t *testing.T) {
		exec := newFakeExecutor()
		w := NewWorkflow(globalKnowledgeDomain(), exec, nil)

		in := validInput(globalKnowledgeDomain(), OpCreate)
		in.KnowledgeType = ""

		out := w.ProcessOperation(context.Background(), in)
		assert.False(t, out.Success)
		assert.Contains(t, out.Error, "knowledge_type")
		assert.Equal(t, 0, exec.totalCalls())
	})

	t.Run("unknown selector", func(t *testing.T) {
		exec := newFakeExecutor()
		w := NewWorkflow(educationalKnowledgeDomain(), exec, nil)

		in := validInput(educationalKnowledgeDomain(), OpCreate)
		in.EducationType = "astrology"

		out := w.ProcessOperation(context.Background(), in)
		assert.False(t, out.Success)
		assert.Contains(t, out.Error, "education_type")
	})
}

func TestUpdateWithOneOfTwoFieldsPassesValidation(t *testing.T) {
	d := actionsHistoryDomain()
	exec := newFakeExecutor()
	w := NewWorkflow(d, exec, nil)

	created := w.ProcessOperation(context.Background(), validInput(d, OpCreate))
	require.True(t, created.Success)

	out := w.ProcessOperation(context.Background(), Input{
		Operation: OpUpdate,
		VPID:      "vp-1",
		RecordID:  created.Record.ID,
		Context:   "only context",
	})
	assert.True(t, out.Success)

	// but UPDATE with neither field present is a validation failure
	out = w.ProcessOperation(context.Background(), Input{
		Operation: OpUpdate,
		VPID:      "vp-1",
		RecordID:  created.Record.ID,
	})
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}
