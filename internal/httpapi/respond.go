package httpapi

import (
	"careops/internal/core"
	"careops/internal/validation"
	"encoding/json"
	"errors"
	"net/http"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: msg})
}

func writeValidationErrors(w http.ResponseWriter, fields validation.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
		Error:  http.StatusText(http.StatusUnprocessableEntity),
		Fields: fields,
	})
}

// writeServiceError maps service-layer failures to status codes. Unknown
// errors surface as 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	var nf core.ErrNotFound
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
