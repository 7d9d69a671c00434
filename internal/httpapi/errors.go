package httpapi

import (
	"encoding/json"
	"net/http"

	"stlauncher/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeResult reports the outcome of a control operation. Precondition
// failures are a normal result with success=false, not an HTTP error.
func writeResult(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		writeJSON(w, types.ResultResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, types.ResultResponse{Success: true, Message: msg})
}

func writeFailure(w http.ResponseWriter, err error) {
	writeResult(w, "", err)
}
