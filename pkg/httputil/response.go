package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	CurrentRole string `json:"currentRole,omitempty"`
}

// DataResponse is the body of every successful request that returns data
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes {"success":true,"data":...}
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, DataResponse{Success: true, Data: data})
}

// WriteSuccess writes a 200 response with data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response with data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteData(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErrorMessage writes {"success":false,"error":message}
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteRoleError writes an authorization failure carrying the caller's role
func WriteRoleError(w http.ResponseWriter, status int, message, currentRole string) {
	WriteJSON(w, status, ErrorResponse{Error: message, CurrentRole: currentRole})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteConflict writes a conflict error (409)
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

// WriteGone writes a gone error (410)
func WriteGone(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusGone, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes a 500 without exposing the cause
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "Internal server error")
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}
