package handler

import (
	"encoding/json"
	"net/http"

	dErrors "medcat/pkg/domain-errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates coded domain errors into the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation, dErrors.CodeInvalidState:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeConflict:
		status = http.StatusConflict
	case dErrors.CodeForbidden:
		status = http.StatusForbidden
	case dErrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case dErrors.CodeInternal, "":
		code = dErrors.CodeInternal
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: message})
}
