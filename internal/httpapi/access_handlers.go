package httpapi

import (
	"net/http"
	"strings"

	"smena.org/internal/access"
	"smena.org/internal/audit"
	"smena.org/internal/permission"
)

type accessCheckRequest struct {
	Resource          string `json:"resource"`
	Action            string `json:"action"`
	BusinessContextID string `json:"business_context_id,omitempty"`
	TargetIdentityID  string `json:"target_identity_id,omitempty"`
	PaperOwnerID      string `json:"paper_owner_id,omitempty"`
}

// handleAccessCheck отвечает на один вопрос авторизации для вызывающего.
// Отказ — это ответ 200 с allowed=false, а не ошибка.
func (a *API) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.facade == nil {
		writeError(w, r, http.StatusServiceUnavailable, "access engine unavailable")
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req accessCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Resource) == "" || strings.TrimSpace(req.Action) == "" {
		writeError(w, r, http.StatusBadRequest, "resource and action are required")
		return
	}
	decision, err := a.facade.Authorize(r.Context(), caller, access.Request{
		Resource:          permission.Resource(strings.TrimSpace(req.Resource)),
		Action:            permission.Action(strings.TrimSpace(req.Action)),
		BusinessContextID: req.BusinessContextID,
		TargetIdentityID:  req.TargetIdentityID,
		PaperOwnerID:      req.PaperOwnerID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if !decision.Allowed {
		audit.LogEvent(r.Context(), "access.denied", map[string]any{
			"resource": req.Resource,
			"action":   req.Action,
			"reason":   decision.Reason,
		})
	}
	writeJSON(w, http.StatusOK, decision)
}
