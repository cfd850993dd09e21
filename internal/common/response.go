package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the payload of every error response, wrapped as {"error": ErrorBody}.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

const encodeFailure = `{"error":{"code":"INTERNAL","message":"failed to encode response"}}`

// JSON writes v with the given status. Encoding happens before the header is sent so a
// failure still yields a well-formed 500.
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailure))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// JSONError writes an error response.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
