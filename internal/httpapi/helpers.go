package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"smena.org/internal/access"
	"smena.org/internal/identity"
	"smena.org/internal/paper"
	"smena.org/internal/role"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps engine sentinels to HTTP statuses. Engine
// availability failures stay generic: no paper ids, no payload contents.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, paper.ErrInvalidType),
		errors.Is(err, paper.ErrMissingBusinessContext),
		errors.Is(err, paper.ErrUnexpectedContext),
		errors.Is(err, paper.ErrInvalidValidityWindow),
		errors.Is(err, paper.ErrInvalidInput),
		errors.Is(err, paper.ErrInvalidTransition),
		errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidTransition):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, paper.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, paper.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, role.ErrComputationUnavailable), errors.Is(err, access.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "unable to determine permissions")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
