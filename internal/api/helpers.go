package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pgj1978/PI-VPN-Router/internal/router"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
	"github.com/pgj1978/PI-VPN-Router/internal/vpn"
)

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError sends a JSON error response.
func WriteError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := ErrorResponse{Error: message}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	json.NewEncoder(w).Encode(resp)
}

// WriteJSON sends a JSON success response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeServiceError maps service-layer errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var cmdErr *system.CommandError

	switch {
	case errors.Is(err, router.ErrDeviceNotFound),
		errors.Is(err, router.ErrDomainNotFound),
		errors.Is(err, vpn.ErrProfileNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, router.ErrDomainExists),
		errors.Is(err, vpn.ErrProfileExists),
		errors.Is(err, vpn.ErrProfileActive):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vpn.ErrInvalidName),
		errors.Is(err, vpn.ErrInvalidProfile):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cmdErr):
		WriteError(w, http.StatusInternalServerError, "command failed", cmdErr.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
