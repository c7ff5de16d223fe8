package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/kafkax"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

const (
	EventServiceUpserted = "catalog.service.upserted.v1"
	EventStaffUpserted   = "catalog.staff.upserted.v1"
)

// Writer stores catalog rows locally. Both storage drivers implement it.
type Writer interface {
	UpsertService(ctx context.Context, svc model.Service) error
	UpsertStaff(ctx context.Context, st model.Staff) error
}

type Invalidator interface {
	InvalidateService(ctx context.Context, id string) error
	InvalidateStaff(ctx context.Context, id string) error
}

type servicePayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DurationMinutes   int    `json:"duration_minutes"`
	RequiredStaffType string `json:"required_staff_type"`
}

type staffPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ServiceType   string `json:"service_type"`
	DailyCapacity int    `json:"daily_capacity"`
	Status        string `json:"status"`
}

func (p servicePayload) service() (model.Service, bool) {
	svc := model.Service{
		ID:                strings.TrimSpace(p.ID),
		Name:              strings.TrimSpace(p.Name),
		DurationMinutes:   p.DurationMinutes,
		RequiredStaffType: strings.TrimSpace(p.RequiredStaffType),
	}
	ok := svc.ID != "" && svc.Name != "" && svc.RequiredStaffType != "" && model.ValidDuration(svc.DurationMinutes)
	return svc, ok
}

// staff defaults a missing status to available.
func (p staffPayload) staff() (model.Staff, bool) {
	st := model.Staff{
		ID:            strings.TrimSpace(p.ID),
		Name:          strings.TrimSpace(p.Name),
		ServiceType:   strings.TrimSpace(p.ServiceType),
		DailyCapacity: p.DailyCapacity,
		Status:        model.StaffStatus(strings.TrimSpace(p.Status)),
	}
	if st.Status == "" {
		st.Status = model.StaffAvailable
	}
	ok := st.ID != "" && st.Name != "" && st.ServiceType != "" && st.DailyCapacity > 0 &&
		(st.Status == model.StaffAvailable || st.Status == model.StaffOnLeave)
	return st, ok
}

// EventHandler applies catalog change events to the local copy and drops cached entries.
type EventHandler struct {
	store  Writer
	cache  Invalidator
	logger *slog.Logger
}

// NewEventHandler accepts a nil cache when caching is disabled.
func NewEventHandler(store Writer, cache Invalidator, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: store, cache: cache, logger: logger}
}

// Handle returns an error only for failures worth retrying. Malformed events are logged
// and dropped.
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	switch meta.EventType {
	case EventServiceUpserted:
		var p servicePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			h.logger.Error("invalid service event", "err", err, "event_id", meta.EventID)
			return nil
		}
		svc, ok := p.service()
		if !ok {
			h.logger.Error("service event rejected", "event_id", meta.EventID, "service_id", svc.ID, "duration_minutes", svc.DurationMinutes)
			return nil
		}
		if err := h.store.UpsertService(ctx, svc); err != nil {
			return err
		}
		if h.cache != nil {
			if err := h.cache.InvalidateService(ctx, svc.ID); err != nil {
				h.logger.Warn("catalog cache invalidation failed", "err", err, "service_id", svc.ID)
			}
		}
		h.logger.Info("service synced", "service_id", svc.ID)

	case EventStaffUpserted:
		var p staffPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			h.logger.Error("invalid staff event", "err", err, "event_id", meta.EventID)
			return nil
		}
		st, ok := p.staff()
		if !ok {
			h.logger.Error("staff event rejected", "event_id", meta.EventID, "staff_id", st.ID)
			return nil
		}
		if err := h.store.UpsertStaff(ctx, st); err != nil {
			return err
		}
		if h.cache != nil {
			if err := h.cache.InvalidateStaff(ctx, st.ID); err != nil {
				h.logger.Warn("catalog cache invalidation failed", "err", err, "staff_id", st.ID)
			}
		}
		h.logger.Info("staff synced", "staff_id", st.ID, "status", string(st.Status))

	default:
		h.logger.Debug("ignoring event", "event_type", meta.EventType)
	}
	return nil
}
