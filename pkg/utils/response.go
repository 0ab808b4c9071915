package utils

import (
	"encoding/json"
	"net/http"

	"transporter-dashboard/internal/apiclient"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondData wraps data in the {success, data} envelope the dashboard UI expects
func RespondData(w http.ResponseWriter, status int, data interface{}) {
	RespondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// StatusFor maps a backend error kind onto the status this service answers with
func StatusFor(err *apiclient.Error) int {
	switch err.Kind {
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindValidation:
		return http.StatusBadRequest
	case apiclient.KindServer:
		return http.StatusBadGateway
	case apiclient.KindNetwork:
		return http.StatusServiceUnavailable
	}
	if err.Status >= 400 && err.Status < 500 {
		return err.Status
	}
	return http.StatusInternalServerError
}

// RespondAPIError sends err with its user-facing message and kind
func RespondAPIError(w http.ResponseWriter, err error) {
	apiErr := apiclient.AsError(err)
	RespondJSON(w, StatusFor(apiErr), map[string]interface{}{
		"success": false,
		"error":   apiErr.Error(),
		"kind":    apiErr.Kind,
	})
}
