/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

The development backend speaks the game backend's wire format: success bodies are flat
JSON objects ({"message": ..., "token": ...}) and errors are {"error": ..., "code": ...}
with the status taken from the errs template.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"mmoclient/internal/pkg/errs"
	"mmoclient/internal/pkg/logx"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	// Error is the human-readable message the game client displays.
	Error string `json:"error"`

	// Code is the errs code, for clients that want to branch on it.
	Code int `json:"code"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write response body", "path", r.URL.Path, "error", err.Error())
	}
}

// RespondSuccess sends data with the given success status (200 or 201).
func RespondSuccess(w http.ResponseWriter, r *http.Request, httpStatus int, data any) {
	RespondJSON(w, r, httpStatus, data)
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	status := customErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	RespondJSON(w, r, status, ErrorResponse{
		Error: customErr.Message,
		Code:  customErr.Code,
	})
}
