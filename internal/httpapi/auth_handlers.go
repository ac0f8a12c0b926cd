package httpapi

import (
	"net/http"
	"strings"
)

type tokenRequest struct {
	IdentityID string `json:"identity_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token выдаёт JWT для указанной личности. Эндпоинт для разработки и
// демо: в проде перед ним стоит внешний IdP.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.tokens == nil {
		writeError(w, r, http.StatusServiceUnavailable, "token issuance is not configured")
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.IdentityID = strings.TrimSpace(req.IdentityID)
	if req.IdentityID == "" {
		writeError(w, r, http.StatusBadRequest, "identity_id is required")
		return
	}

	if a.identities != nil {
		if _, err := a.identities.Get(r.Context(), req.IdentityID); err != nil {
			handleDomainError(w, r, err)
			return
		}
	}

	token, err := a.tokens.Issue(req.IdentityID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(a.tokens.AccessTTL().Seconds()),
	})
}
