package engine

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paravault/paravault/internal/memory"
	"github.com/paravault/paravault/pkg/models"
)

// MemoryHandlers contains the long-term-memory endpoint handlers. One
// handler set serves all five domains; the domain segment of the path
// selects the workflow.
type MemoryHandlers struct {
	engine *Engine
}

// NewMemoryHandlers creates a new instance of MemoryHandlers
func NewMemoryHandlers(engine *Engine) *MemoryHandlers {
	return &MemoryHandlers{
		engine: engine,
	}
}

// MemoryRequest carries the writable fields of a memory record
type MemoryRequest struct {
	VPID          string `json:"vp_id,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Context       string `json:"context,omitempty"`
	KnowledgeType string `json:"knowledge_type,omitempty"`
	EducationType string `json:"education_type,omitempty"`
}

func (mh *MemoryHandlers) workflow(w http.ResponseWriter, r *http.Request) (*memory.Workflow, bool) {
	domain := mux.Vars(r)["domain"]
	wf, ok := mh.engine.memoryFlows[domain]
	if !ok {
		mh.engine.writeErrorResponse(w, http.StatusNotFound, "Unknown memory domain", domain)
		return nil, false
	}
	return wf, true
}

// applySelector interprets the trailing path segment for the domain:
// the typed discriminator for knowledge domains, the record ID for
// history domains. Single-record domains take no selector.
func (mh *MemoryHandlers) applySelector(w http.ResponseWriter, wf *memory.Workflow, selector string, in *memory.Input) bool {
	domain := wf.Domain()

	if selector == "" {
		return true
	}

	if domain.Typed {
		switch domain.Name {
		case memory.DomainGlobalKnowledge:
			kt, err := memory.ParseKnowledgeType(selector)
			if err != nil {
				mh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid knowledge type", err.Error())
				return false
			}
			in.KnowledgeType = kt
		case memory.DomainEducationalKnowledge:
			et, err := memory.ParseEducationType(selector)
			if err != nil {
				mh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid education type", err.Error())
				return false
			}
			in.EducationType = et
		}
		return true
	}

	in.RecordID = selector
	return true
}

func (mh *MemoryHandlers) writeWorkflowFailure(w http.ResponseWriter, out memory.Output) {
	status := http.StatusBadRequest
	if strings.Contains(out.Error, "not found") {
		status = http.StatusNotFound
	}
	mh.engine.writeErrorResponse(w, status, "Memory operation failed", out.Error)
}

// Create handles POST /longterm-memory/{domain}
func (mh *MemoryHandlers) Create(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	wf, ok := mh.workflow(w, r)
	if !ok {
		return
	}

	var req MemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	in := memory.Input{
		Operation:     memory.OpCreate,
		VPID:          req.VPID,
		Prompt:        req.Prompt,
		Summary:       req.Summary,
		Context:       req.Context,
		KnowledgeType: models.KnowledgeType(req.KnowledgeType),
		EducationType: models.EducationType(req.EducationType),
	}

	out := wf.ProcessOperation(r.Context(), in)
	if !out.Success {
		mh.writeWorkflowFailure(w, out)
		return
	}

	mh.engine.writeJSONResponse(w, http.StatusCreated, out.Record)
}

// Fetch handles GET /longterm-memory/{domain}/{vp_id}[/{selector}]
func (mh *MemoryHandlers) Fetch(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	wf, ok := mh.workflow(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	in := memory.Input{VPID: vars["vp_id"]}
	selector := vars["selector"]

	domain := wf.Domain()
	switch {
	case domain.SingleRecord:
		in.Operation = memory.OpGet
	case selector == "":
		in.Operation = memory.OpGetAll
	default:
		in.Operation = memory.OpGet
		if !mh.applySelector(w, wf, selector, &in) {
			return
		}
	}

	out := wf.ProcessOperation(r.Context(), in)
	if !out.Success {
		mh.writeWorkflowFailure(w, out)
		return
	}

	if in.Operation == memory.OpGetAll {
		mh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"records": out.Records})
		return
	}
	mh.engine.writeJSONResponse(w, http.StatusOK, out.Record)
}

// Update handles PUT /longterm-memory/{domain}/{vp_id}[/{selector}]
func (mh *MemoryHandlers) Update(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	wf, ok := mh.workflow(w, r)
	if !ok {
		return
	}

	var req MemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mh.engine.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	vars := mux.Vars(r)
	in := memory.Input{
		Operation: memory.OpUpdate,
		VPID:      vars["vp_id"],
		Prompt:    req.Prompt,
		Summary:   req.Summary,
		Context:   req.Context,
	}
	if !mh.applySelector(w, wf, vars["selector"], &in) {
		return
	}

	out := wf.ProcessOperation(r.Context(), in)
	if !out.Success {
		mh.writeWorkflowFailure(w, out)
		return
	}

	mh.engine.writeJSONResponse(w, http.StatusOK, out.Record)
}

// Delete handles DELETE /longterm-memory/{domain}/{vp_id}[/{selector}]
func (mh *MemoryHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	mh.engine.TrackOperation()
	defer mh.engine.UntrackOperation()

	wf, ok := mh.workflow(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	in := memory.Input{
		Operation: memory.OpDelete,
		VPID:      vars["vp_id"],
	}
	if !mh.applySelector(w, wf, vars["selector"], &in) {
		return
	}

	out := wf.ProcessOperation(r.Context(), in)
	if !out.Success {
		mh.writeWorkflowFailure(w, out)
		return
	}

	mh.engine.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Record deleted successfully",
		"status":  StatusDeleted,
	})
}
