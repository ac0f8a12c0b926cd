package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"smena.org/internal/access"
	"smena.org/internal/audit"
	"smena.org/internal/identity"
	"smena.org/internal/permission"
)

type registerIdentityRequest struct {
	DisplayName string `json:"display_name"`
}

type setVerificationRequest struct {
	Status string `json:"status"`
}

func (a *API) handleIdentitiesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.identities == nil {
		writeError(w, r, http.StatusServiceUnavailable, "identity service unavailable")
		return
	}
	var req registerIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	idn, err := a.identities.Register(r.Context(), req.DisplayName)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.register", map[string]any{
		"identity_id": idn.ID,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/identities/%s", idn.ID))
	writeJSON(w, http.StatusCreated, idn)
}

func (a *API) handleIdentityScoped(w http.ResponseWriter, r *http.Request) {
	if a.identities == nil {
		writeError(w, r, http.StatusServiceUnavailable, "identity service unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/identities/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		a.handleIdentityGet(w, r, id)
	case len(parts) == 2 && parts[1] == "verification":
		a.handleIdentityVerification(w, r, id)
	case len(parts) == 2 && parts[1] == "deactivate":
		a.handleIdentityDeactivate(w, r, id)
	case len(parts) == 2 && parts[1] == "roles":
		a.handleIdentityRoles(w, r, id)
	case len(parts) == 3 && parts[1] == "roles" && parts[2] == "recompute":
		a.handleIdentityRecompute(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleIdentityGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	idn, err := a.identities.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idn)
}

// handleIdentityVerification продвигает статус проверки личности. Сам себя
// верифицировать нельзя: нужна роль с правом identity:update.
func (a *API) handleIdentityVerification(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	if !a.allow(w, r, caller, access.Request{
		Resource:         permission.ResourceIdentity,
		Action:           permission.ActionUpdate,
		TargetIdentityID: id,
	}) {
		return
	}
	var req setVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	idn, err := a.identities.SetVerification(r.Context(), id, identity.VerificationStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.verification", map[string]any{
		"identity_id": idn.ID,
		"status":      string(idn.Verification),
	})
	writeJSON(w, http.StatusOK, idn)
}

// handleIdentityDeactivate отключает личность. Самоотключение разрешено.
func (a *API) handleIdentityDeactivate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	if caller != id && !a.allow(w, r, caller, access.Request{
		Resource:         permission.ResourceIdentity,
		Action:           permission.ActionDelete,
		TargetIdentityID: id,
	}) {
		return
	}
	idn, err := a.identities.Deactivate(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.deactivate", map[string]any{
		"identity_id": idn.ID,
	})
	writeJSON(w, http.StatusOK, idn)
}

func (a *API) handleIdentityRoles(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.facade == nil {
		writeError(w, r, http.StatusServiceUnavailable, "role engine unavailable")
		return
	}
	roles, err := a.facade.Roles(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id": id,
		"roles":       roles,
	})
}

// handleIdentityRecompute — ручной перезапуск вычисления ролей. Путь
// восстановления после неудачного автоматического пересчёта.
func (a *API) handleIdentityRecompute(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.facade == nil {
		writeError(w, r, http.StatusServiceUnavailable, "role engine unavailable")
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	if caller != id && !a.allow(w, r, caller, access.Request{
		Resource:         permission.ResourceIdentity,
		Action:           permission.ActionUpdate,
		TargetIdentityID: id,
	}) {
		return
	}
	roles, err := a.facade.Recompute(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "roles.recompute", map[string]any{
		"identity_id": id,
		"roles":       len(roles),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id": id,
		"roles":       roles,
	})
}

// allow runs an authorization check and writes the denial response itself.
func (a *API) allow(w http.ResponseWriter, r *http.Request, callerID string, req access.Request) bool {
	if a.facade == nil {
		writeError(w, r, http.StatusServiceUnavailable, "access engine unavailable")
		return false
	}
	decision, err := a.facade.Authorize(r.Context(), callerID, req)
	if err != nil {
		handleDomainError(w, r, err)
		return false
	}
	if !decision.Allowed {
		audit.LogEvent(r.Context(), "access.denied", map[string]any{
			"resource": string(req.Resource),
			"action":   string(req.Action),
			"reason":   decision.Reason,
		})
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
