package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"smena.org/internal/access"
	"smena.org/internal/audit"
	"smena.org/internal/obs"
	"smena.org/internal/paper"
	"smena.org/internal/permission"
)

type createPaperRequest struct {
	OwnerID           string         `json:"owner_id,omitempty"`
	Type              string         `json:"type"`
	BusinessContextID string         `json:"business_context_id,omitempty"`
	Payload           map[string]any `json:"payload,omitempty"`
	ValidFrom         *time.Time     `json:"valid_from,omitempty"`
	ValidUntil        *time.Time     `json:"valid_until,omitempty"`
}

type updatePaperRequest struct {
	Payload         map[string]any `json:"payload,omitempty"`
	ValidFrom       *time.Time     `json:"valid_from,omitempty"`
	ValidUntil      *time.Time     `json:"valid_until,omitempty"`
	ClearValidUntil bool           `json:"clear_valid_until,omitempty"`
	Replace         bool           `json:"replace,omitempty"`
}

type extendPaperRequest struct {
	ValidUntil time.Time `json:"valid_until"`
}

type validatePaperRequest struct {
	Status string `json:"status"`
}

func (a *API) handlePapersCollection(w http.ResponseWriter, r *http.Request) {
	if a.papers == nil {
		writeError(w, r, http.StatusServiceUnavailable, "paper service unavailable")
		return
	}
	switch r.Method {
	case http.MethodPost:
		a.handlePaperCreate(w, r)
	case http.MethodGet:
		a.handlePapersList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handlePaperCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req createPaperRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		owner = caller
	}
	// Выдача бумаги другой личности требует права paper:create в её контексте.
	if owner != caller && !a.allow(w, r, caller, access.Request{
		Resource:          permission.ResourcePaper,
		Action:            permission.ActionCreate,
		BusinessContextID: req.BusinessContextID,
		TargetIdentityID:  owner,
	}) {
		return
	}
	create := paper.CreateRequest{
		OwnerID:           owner,
		Type:              paper.Type(strings.TrimSpace(req.Type)),
		BusinessContextID: req.BusinessContextID,
		Payload:           req.Payload,
		ValidUntil:        req.ValidUntil,
	}
	if req.ValidFrom != nil {
		create.ValidFrom = *req.ValidFrom
	}
	p, err := a.papers.Create(r.Context(), create)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObservePaperMutation("create")
	audit.LogEvent(r.Context(), "paper.create", map[string]any{
		"paper_id": p.ID,
		"owner_id": p.OwnerID,
		"type":     string(p.Type),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/papers/%s", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handlePapersList(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if owner == "" {
		owner = caller
	}
	if owner != caller && !a.allow(w, r, caller, access.Request{
		Resource:         permission.ResourcePaper,
		Action:           permission.ActionRead,
		TargetIdentityID: owner,
		PaperOwnerID:     owner,
	}) {
		return
	}
	papers, err := a.papers.ListByOwner(r.Context(), owner)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner_id": owner,
		"papers":   papers,
	})
}

func (a *API) handlePaperScoped(w http.ResponseWriter, r *http.Request) {
	if a.papers == nil {
		writeError(w, r, http.StatusServiceUnavailable, "paper service unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/papers/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		a.handlePaperByID(w, r, id)
	case len(parts) == 2 && parts[1] == "extend":
		a.handlePaperExtend(w, r, id)
	case len(parts) == 2 && parts[1] == "validate":
		a.handlePaperValidate(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handlePaperByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		a.handlePaperGet(w, r, id)
	case http.MethodPatch:
		a.handlePaperUpdate(w, r, id)
	case http.MethodDelete:
		a.handlePaperDeactivate(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handlePaperGet(w http.ResponseWriter, r *http.Request, id string) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	p, err := a.papers.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if p.OwnerID != caller && !a.allow(w, r, caller, access.Request{
		Resource:          permission.ResourcePaper,
		Action:            permission.ActionRead,
		BusinessContextID: p.BusinessContextID,
		TargetIdentityID:  p.OwnerID,
		PaperOwnerID:      p.OwnerID,
	}) {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePaperUpdate(w http.ResponseWriter, r *http.Request, id string) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req updatePaperRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.papers.Update(r.Context(), caller, id, paper.Patch{
		Payload:         req.Payload,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		ClearValidUntil: req.ClearValidUntil,
		Replace:         req.Replace,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObservePaperMutation("update")
	audit.LogEvent(r.Context(), "paper.update", map[string]any{
		"paper_id": p.ID,
		"owner_id": p.OwnerID,
		"replace":  req.Replace,
	})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePaperDeactivate(w http.ResponseWriter, r *http.Request, id string) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	p, err := a.papers.Deactivate(r.Context(), caller, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObservePaperMutation("deactivate")
	audit.LogEvent(r.Context(), "paper.deactivate", map[string]any{
		"paper_id": p.ID,
		"owner_id": p.OwnerID,
	})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePaperExtend(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req extendPaperRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ValidUntil.IsZero() {
		writeError(w, r, http.StatusBadRequest, "valid_until is required")
		return
	}
	p, err := a.papers.ExtendValidity(r.Context(), caller, id, req.ValidUntil)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObservePaperMutation("extend")
	audit.LogEvent(r.Context(), "paper.extend", map[string]any{
		"paper_id":    p.ID,
		"owner_id":    p.OwnerID,
		"valid_until": req.ValidUntil.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handlePaperValidate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req validatePaperRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.papers.Validate(r.Context(), caller, id, paper.Verification(strings.TrimSpace(req.Status)))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObservePaperMutation("validate")
	audit.LogEvent(r.Context(), "paper.validate", map[string]any{
		"paper_id": p.ID,
		"owner_id": p.OwnerID,
		"status":   string(p.Verification),
	})
	writeJSON(w, http.StatusOK, p)
}
