package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to the HTTP status the API answers with.
func StatusFor(kind scheduling.Kind) int {
	switch kind {
	case scheduling.KindInvalidInput:
		return http.StatusBadRequest
	case scheduling.KindUnauthorized:
		return http.StatusUnauthorized
	case scheduling.KindNotFound:
		return http.StatusNotFound
	case scheduling.KindCapacityExceeded, scheduling.KindTimeConflict, scheduling.KindAlreadyAssigned:
		return http.StatusConflict
	case scheduling.KindStaffIneligible, scheduling.KindNoEligibleAppointment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the error's kind. Internal failures are logged and their
// cause is not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := scheduling.KindOf(err)
	msg := err.Error()
	if kind == scheduling.KindInternal {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal error"
	} else {
		var se *scheduling.Error
		if errors.As(err, &se) && se.Message != "" {
			msg = se.Message
		}
	}
	writeJSON(w, StatusFor(kind), errorResponse{Error: msg, Kind: string(kind)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: string(scheduling.KindInvalidInput)})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
