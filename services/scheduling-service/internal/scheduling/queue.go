package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/availability"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

// ListQueue returns waiting appointments by ascending position.
func (e *Engine) ListQueue(ctx context.Context) ([]model.QueueEntry, error) {
	return e.store.ListQueue(ctx)
}

// AssignFromQueue gives a specific queued appointment to staffID.
func (e *Engine) AssignFromQueue(ctx context.Context, appointmentID, staffID string) (out model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.AssignFromQueue", trace.WithAttributes(
		attribute.String("appointment.id", appointmentID),
		attribute.String("staff.id", staffID),
	))
	defer func() { endSpan(span, err) }()

	appointmentID = strings.TrimSpace(appointmentID)
	staffID = strings.TrimSpace(staffID)
	if appointmentID == "" || staffID == "" {
		return model.Appointment{}, invalidInput("appointment and staff are required")
	}

	var staff model.Staff
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.LockAppointment(ctx, appointmentID)
		if err != nil {
			return lookup("appointment", appointmentID, err)
		}
		if appt.StaffID != "" {
			return newError(KindAlreadyAssigned, "appointment %s is already assigned", appointmentID)
		}
		if appt.Status != model.StatusQueued {
			return invalidInput("appointment %s is %s, not queued", appointmentID, appt.Status)
		}
		staff, err = tx.LockStaff(ctx, staffID)
		if err != nil {
			return lookup("staff", staffID, err)
		}
		out, err = assignQueued(ctx, tx, appt, staff, e.now())
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}

	e.record(ctx, activity.ActionAssigned, out, "assigned from queue to "+staff.Name)
	return out, nil
}

// AutoAssign gives the earliest queued appointment staffID is qualified for to staffID.
// Only that entry is considered: if it fails capacity or conflict checks the call fails.
func (e *Engine) AutoAssign(ctx context.Context, staffID string) (out model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.AutoAssign", trace.WithAttributes(attribute.String("staff.id", staffID)))
	defer func() { endSpan(span, err) }()

	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return model.Appointment{}, invalidInput("staff is required")
	}

	var staff model.Staff
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		staff, err = tx.LockStaff(ctx, staffID)
		if err != nil {
			return lookup("staff", staffID, err)
		}
		if staff.Status == model.StaffOnLeave {
			return newError(KindStaffIneligible, "%s is on leave", staff.Name)
		}
		appt, err := tx.ClaimEarliestEligible(ctx, staff.ServiceType)
		if errors.Is(err, ErrNotFound) {
			return newError(KindNoEligibleAppointment, "no queued appointment needs a %s", staff.ServiceType)
		}
		if err != nil {
			return err
		}
		out, err = assignQueued(ctx, tx, appt, staff, e.now())
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}

	e.record(ctx, activity.ActionAutoAssigned, out, "auto-assigned to "+staff.Name)
	return out, nil
}

// assignQueued moves a locked, queued appointment onto staff's calendar and out of
// the queue.
func assignQueued(ctx context.Context, tx Tx, appt model.Appointment, staff model.Staff, now time.Time) (model.Appointment, error) {
	svc, err := tx.GetService(ctx, appt.ServiceID)
	if err != nil {
		return model.Appointment{}, lookup("service", appt.ServiceID, err)
	}
	start, err := availability.ParseClock(appt.Time)
	if err != nil {
		return model.Appointment{}, invalidInput("%v", err)
	}
	iv, err := serviceInterval(svc, start)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := checkAssignment(ctx, tx, staff, svc, appt.Date, iv, appt.ID, allChecks); err != nil {
		return model.Appointment{}, err
	}

	appt.StaffID = staff.ID
	appt.Status = model.StatusScheduled
	appt.UpdatedAt = now
	if err := tx.UpdateAppointment(ctx, appt); err != nil {
		return model.Appointment{}, err
	}
	if _, err := tx.Dequeue(ctx, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}
