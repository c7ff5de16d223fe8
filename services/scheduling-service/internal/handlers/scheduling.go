package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

type SchedulingHandler struct {
	engine *scheduling.Engine
	logger *slog.Logger
}

func NewSchedulingHandler(engine *scheduling.Engine, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{engine: engine, logger: logger}
}

// Register mounts the API under /api/v1.
func (h *SchedulingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/appointments/check-conflict", h.CheckConflict)
	mux.HandleFunc("/api/v1/appointments/{id}", h.Appointment)
	mux.HandleFunc("/api/v1/queue", h.Queue)
	mux.HandleFunc("/api/v1/staff", h.Staff)
	mux.HandleFunc("/api/v1/staff/types", h.StaffTypes)
	mux.HandleFunc("/api/v1/staff/{id}/slots", h.Slots)
	mux.HandleFunc("/api/v1/services", h.Services)
}

type appointmentItem struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customer_name"`
	ServiceID       string `json:"service_id"`
	ServiceName     string `json:"service_name,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	StaffID         string `json:"staff_id,omitempty"`
	StaffName       string `json:"staff_name,omitempty"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Status          string `json:"status"`
	QueuePosition   int64  `json:"queue_position,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toAppointmentItem(d model.AppointmentDetail) appointmentItem {
	return appointmentItem{
		ID:              d.ID,
		CustomerName:    d.CustomerName,
		ServiceID:       d.ServiceID,
		ServiceName:     d.ServiceName,
		DurationMinutes: d.DurationMinutes,
		StaffID:         d.StaffID,
		StaffName:       d.StaffName,
		Date:            d.Date,
		Time:            d.Time,
		Status:          string(d.Status),
		QueuePosition:   d.QueuePosition,
		CreatedAt:       d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type createAppointmentRequest struct {
	CustomerName string `json:"customer_name"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

type createAppointmentResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	QueuePosition int64  `json:"queue_position,omitempty"`
}

func (h *SchedulingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAppointments(w, r)
	case http.MethodPost:
		h.createAppointment(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *SchedulingHandler) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AppointmentFilter{
		Date:    strings.TrimSpace(q.Get("date")),
		StaffID: strings.TrimSpace(q.Get("staff_id")),
		Status:  model.Status(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}

	items, err := h.engine.ListAppointments(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]appointmentItem, 0, len(items))
	for _, d := range items {
		out = append(out, toAppointmentItem(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *SchedulingHandler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	res, err := h.engine.CreateAppointment(r.Context(), scheduling.CreateInput{
		CustomerName: req.CustomerName,
		ServiceID:    req.ServiceID,
		StaffID:      req.StaffID,
		Date:         req.Date,
		Time:         req.Time,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAppointmentResponse{
		ID:            res.ID,
		Status:        string(res.Status),
		QueuePosition: res.QueuePosition,
	})
}

type updateAppointmentRequest struct {
	CustomerName string `json:"customer_name"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       string `json:"status"`
}

func (h *SchedulingHandler) Appointment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	switch r.Method {
	case http.MethodGet:
		d, err := h.engine.GetAppointment(r.Context(), id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentItem(d))
	case http.MethodPut:
		var req updateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid json body")
			return
		}
		if _, err := h.engine.UpdateAppointment(r.Context(), scheduling.UpdateInput{
			ID:           id,
			CustomerName: req.CustomerName,
			ServiceID:    req.ServiceID,
			StaffID:      req.StaffID,
			Date:         req.Date,
			Time:         req.Time,
			Status:       req.Status,
		}); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		h.writeAppointment(w, r, id, http.StatusOK)
	case http.MethodDelete:
		if err := h.engine.DeleteAppointment(r.Context(), id); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

// writeAppointment re-reads id so responses carry the joined names.
func (h *SchedulingHandler) writeAppointment(w http.ResponseWriter, r *http.Request, id string, code int) {
	d, err := h.engine.GetAppointment(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, code, toAppointmentItem(d))
}

type conflictResponse struct {
	Conflict bool                `json:"conflict"`
	Existing *conflictingBooking `json:"existing,omitempty"`
}

type conflictingBooking struct {
	AppointmentID   string `json:"appointment_id"`
	CustomerName    string `json:"customer_name"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

func (h *SchedulingHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	res, err := h.engine.CheckConflict(r.Context(), scheduling.ConflictQuery{
		StaffID:   q.Get("staff_id"),
		Date:      q.Get("date"),
		Time:      q.Get("time"),
		ServiceID: q.Get("service_id"),
		ExcludeID: q.Get("exclude_id"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := conflictResponse{Conflict: res.Conflict}
	if res.Existing != nil {
		out.Existing = &conflictingBooking{
			AppointmentID:   res.Existing.AppointmentID,
			CustomerName:    res.Existing.CustomerName,
			Time:            res.Existing.Time,
			DurationMinutes: res.Existing.DurationMinutes,
			Status:          string(res.Existing.Status),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type queueItem struct {
	AppointmentID     string `json:"appointment_id"`
	Position          int64  `json:"position"`
	CustomerName      string `json:"customer_name"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	ServiceID         string `json:"service_id"`
	ServiceName       string `json:"service_name"`
	RequiredStaffType string `json:"required_staff_type"`
}

type assignRequest struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
}

// Queue lists waiting appointments on GET. POST assigns the named appointment, or
// the earliest one the staff member qualifies for when appointment_id is omitted.
func (h *SchedulingHandler) Queue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := h.engine.ListQueue(r.Context())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		out := make([]queueItem, 0, len(entries))
		for _, e := range entries {
			out = append(out, queueItem{
				AppointmentID:     e.AppointmentID,
				Position:          e.Position,
				CustomerName:      e.CustomerName,
				Date:              e.Date,
				Time:              e.Time,
				ServiceID:         e.ServiceID,
				ServiceName:       e.ServiceName,
				RequiredStaffType: e.RequiredStaffType,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"queue": out})
	case http.MethodPost:
		var req assignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid json body")
			return
		}
		var (
			appt model.Appointment
			err  error
		)
		if strings.TrimSpace(req.AppointmentID) != "" {
			appt, err = h.engine.AssignFromQueue(r.Context(), req.AppointmentID, req.StaffID)
		} else {
			appt, err = h.engine.AutoAssign(r.Context(), req.StaffID)
		}
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		h.writeAppointment(w, r, appt.ID, http.StatusOK)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

type staffItem struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ServiceType      string `json:"service_type"`
	DailyCapacity    int    `json:"daily_capacity"`
	Status           string `json:"status"`
	AppointmentCount int    `json:"appointment_count"`
}

func (h *SchedulingHandler) Staff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	staff, err := h.engine.ListStaff(r.Context(), model.StaffFilter{
		Type: strings.TrimSpace(q.Get("type")),
		Date: strings.TrimSpace(q.Get("date")),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]staffItem, 0, len(staff))
	for _, s := range staff {
		out = append(out, staffItem{
			ID:               s.ID,
			Name:             s.Name,
			ServiceType:      s.ServiceType,
			DailyCapacity:    s.DailyCapacity,
			Status:           string(s.Status),
			AppointmentCount: s.AppointmentCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": out})
}

func (h *SchedulingHandler) StaffTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	types, err := h.engine.ListStaffTypes(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

func (h *SchedulingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	staffID := strings.TrimSpace(r.PathValue("id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if date == "" || serviceID == "" {
		badRequest(w, "date and service_id are required")
		return
	}
	slots, err := h.engine.OpenSlots(r.Context(), staffID, serviceID, date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"staff_id":   staffID,
		"service_id": serviceID,
		"date":       date,
		"slots":      slots,
	})
}

type serviceItem struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DurationMinutes   int    `json:"duration_minutes"`
	RequiredStaffType string `json:"required_staff_type"`
}

func (h *SchedulingHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	services, err := h.engine.ListServices(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]serviceItem, 0, len(services))
	for _, s := range services {
		out = append(out, serviceItem{
			ID:                s.ID,
			Name:              s.Name,
			DurationMinutes:   s.DurationMinutes,
			RequiredStaffType: s.RequiredStaffType,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}
