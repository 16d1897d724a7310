package httputil

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON body shape shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// WriteJSON writes an envelope with the given status code.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// WriteSuccess writes a 200 envelope with message and data.
func WriteSuccess(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// WriteCreated writes a 201 envelope with message and data.
func WriteCreated(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// WriteNoContent writes a 204 response with no body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErr classifies err and writes the matching status and envelope.
// Unknown errors are reported as 500 with a generic message.
func WriteErr(w http.ResponseWriter, err error) {
	apiErr := AsAPIError(err)
	WriteJSON(w, apiErr.Kind.Status(), Envelope{
		Success: false,
		Message: apiErr.Message,
		Errors:  apiErr.Details,
	})
}

// WriteErrorMessage writes an error envelope with an explicit kind.
func WriteErrorMessage(w http.ResponseWriter, kind Kind, message string) {
	WriteJSON(w, kind.Status(), Envelope{Success: false, Message: message})
}

// WriteUnauthorized writes a 401 envelope.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindUnauthenticated, message)
}

// WriteForbidden writes a 403 envelope.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindForbidden, message)
}

// WriteNotFound writes a 404 envelope.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindNotFound, message)
}

// WriteBadRequest writes a 400 envelope.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindValidation, message)
}

// WriteConflict writes a 409 envelope.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindConflict, message)
}

// WriteTooManyRequests writes a 429 envelope.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, KindRateLimited, message)
}

// WriteInternalError writes a 500 envelope without leaking err to the client.
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErr(w, Internal(err))
}
