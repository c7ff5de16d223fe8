package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/availability"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

const slotStep = 15

var tracer = otel.Tracer("scheduling")

// Engine owns every state transition of an appointment. Each mutation runs in one
// store transaction and is reported to the activity sink after it commits.
type Engine struct {
	store     Store
	catalog   Catalog
	sink      activity.Sink
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	workStart availability.Clock
	workEnd   availability.Clock
}

type Option func(*Engine)

// WithCatalog routes non-transactional catalog reads through c, typically a cache.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithWorkday bounds the window OpenSlots searches.
func WithWorkday(start, end availability.Clock) Option {
	return func(e *Engine) {
		if end > start {
			e.workStart, e.workEnd = start, end
		}
	}
}

func NewEngine(store Store, sink activity.Sink, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = activity.LogSink{Logger: logger}
	}
	e := &Engine{
		store:     store,
		catalog:   store,
		sink:      sink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		workStart: 9 * 60,
		workEnd:   17 * 60,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CreateInput struct {
	CustomerName string
	ServiceID    string
	StaffID      string
	Date         string
	Time         string
}

type CreateResult struct {
	ID            string
	Status        model.Status
	QueuePosition int64
}

func (e *Engine) CreateAppointment(ctx context.Context, in CreateInput) (res CreateResult, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.CreateAppointment")
	defer func() { endSpan(span, err) }()

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.StaffID = strings.TrimSpace(in.StaffID)
	if in.CustomerName == "" || in.ServiceID == "" || strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return CreateResult{}, invalidInput("customer name, service, date and time are required")
	}
	date, start, err := parseSlot(in.Date, in.Time)
	if err != nil {
		return CreateResult{}, err
	}

	now := e.now()
	appt := model.Appointment{
		ID:           e.newID(),
		CustomerName: in.CustomerName,
		ServiceID:    in.ServiceID,
		StaffID:      in.StaffID,
		Date:         date,
		Time:         start.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	var staff model.Staff
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		svc, err := tx.GetService(ctx, appt.ServiceID)
		if err != nil {
			return lookup("service", appt.ServiceID, err)
		}
		iv, err := serviceInterval(svc, start)
		if err != nil {
			return err
		}

		if appt.StaffID == "" {
			appt.Status = model.StatusQueued
			if err := tx.InsertAppointment(ctx, appt); err != nil {
				return err
			}
			pos, err := tx.Enqueue(ctx, appt.ID)
			if err != nil {
				return err
			}
			res.QueuePosition = pos
			return nil
		}

		staff, err = tx.LockStaff(ctx, appt.StaffID)
		if err != nil {
			return lookup("staff", appt.StaffID, err)
		}
		if err := checkAssignment(ctx, tx, staff, svc, appt.Date, iv, "", allChecks); err != nil {
			return err
		}
		appt.Status = model.StatusScheduled
		return tx.InsertAppointment(ctx, appt)
	})
	if err != nil {
		return CreateResult{}, err
	}

	res.ID = appt.ID
	res.Status = appt.Status
	if appt.Status == model.StatusQueued {
		e.record(ctx, activity.ActionQueued, appt, fmt.Sprintf("added to queue at position %d", res.QueuePosition))
	} else {
		e.record(ctx, activity.ActionScheduled, appt, "scheduled with "+staff.Name)
	}
	return res, nil
}

// UpdateInput holds a partial update. Empty fields keep their current value.
type UpdateInput struct {
	ID           string
	CustomerName string
	ServiceID    string
	StaffID      string
	Date         string
	Time         string
	Status       string
}

func (e *Engine) UpdateAppointment(ctx context.Context, in UpdateInput) (out model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.UpdateAppointment", trace.WithAttributes(attribute.String("appointment.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		return model.Appointment{}, invalidInput("appointment id is required")
	}
	var nextStatus model.Status
	if s := strings.TrimSpace(in.Status); s != "" {
		parsed, ok := model.ParseStatus(s)
		if !ok {
			return model.Appointment{}, invalidInput("invalid status %q", s)
		}
		nextStatus = parsed
	}

	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return lookup("appointment", id, err)
		}

		next := cur
		if v := strings.TrimSpace(in.CustomerName); v != "" {
			next.CustomerName = v
		}
		if v := strings.TrimSpace(in.ServiceID); v != "" {
			next.ServiceID = v
		}
		if v := strings.TrimSpace(in.StaffID); v != "" {
			next.StaffID = v
		}
		if v := strings.TrimSpace(in.Date); v != "" {
			d, err := availability.ParseDate(v)
			if err != nil {
				return invalidInput("%v", err)
			}
			next.Date = d
		}
		if v := strings.TrimSpace(in.Time); v != "" {
			c, err := availability.ParseClock(v)
			if err != nil {
				return invalidInput("%v", err)
			}
			next.Time = c.String()
		}
		if nextStatus != "" {
			next.Status = nextStatus
		}

		fromQueue := cur.StaffID == "" && next.StaffID != ""
		if fromQueue && (nextStatus == "" || nextStatus == model.StatusQueued) {
			next.Status = model.StatusScheduled
		}
		if next.StaffID == "" && next.Status != model.StatusQueued && next.Status != model.StatusCancelled {
			return invalidInput("a staff member is required to mark an appointment %s", next.Status)
		}
		if !cur.Status.CanTransitionTo(next.Status) {
			return invalidInput("cannot change status from %s to %s", cur.Status, next.Status)
		}

		staffChanged := next.StaffID != cur.StaffID
		serviceChanged := next.ServiceID != cur.ServiceID
		slotChanged := next.Date != cur.Date || next.Time != cur.Time
		footprintChanged := staffChanged || serviceChanged || slotChanged ||
			(!cur.Status.Blocking() && next.Status.Blocking()) ||
			(!cur.Status.Committed() && next.Status.Committed())

		if footprintChanged {
			svc, err := tx.GetService(ctx, next.ServiceID)
			if err != nil {
				return lookup("service", next.ServiceID, err)
			}
			start, err := availability.ParseClock(next.Time)
			if err != nil {
				return invalidInput("%v", err)
			}
			iv, err := serviceInterval(svc, start)
			if err != nil {
				return err
			}
			if next.StaffID != "" {
				staff, err := tx.LockStaff(ctx, next.StaffID)
				if err != nil {
					return lookup("staff", next.StaffID, err)
				}
				c := checks{
					eligibility: fromQueue || staffChanged || serviceChanged,
					capacity:    next.Status.Committed(),
					conflict:    next.Status.Blocking(),
				}
				if err := checkAssignment(ctx, tx, staff, svc, next.Date, iv, next.ID, c); err != nil {
					return err
				}
			}
		}

		next.UpdatedAt = e.now()
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return err
		}
		if cur.Status == model.StatusQueued && next.Status != model.StatusQueued {
			if _, err := tx.Dequeue(ctx, next.ID); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	e.record(ctx, activity.ActionUpdated, out, "updated by "+activity.ActorFromContext(ctx))
	return out, nil
}

// DeleteAppointment removes the appointment and any queue entry it still has.
func (e *Engine) DeleteAppointment(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "scheduling.DeleteAppointment", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return invalidInput("appointment id is required")
	}

	var appt model.Appointment
	err = e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		appt, err = tx.LockAppointment(ctx, id)
		if err != nil {
			return lookup("appointment", id, err)
		}
		if _, err := tx.Dequeue(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAppointment(ctx, id)
	})
	if err != nil {
		return err
	}

	e.record(ctx, activity.ActionDeleted, appt, "deleted by "+activity.ActorFromContext(ctx))
	return nil
}

type ConflictQuery struct {
	StaffID   string
	Date      string
	Time      string
	ServiceID string
	ExcludeID string
}

type ConflictResult struct {
	Conflict bool
	Existing *model.Booking
}

// CheckConflict is a read-only probe. It takes no locks.
func (e *Engine) CheckConflict(ctx context.Context, q ConflictQuery) (res ConflictResult, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.CheckConflict")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(q.StaffID) == "" || strings.TrimSpace(q.ServiceID) == "" {
		return ConflictResult{}, invalidInput("staff, service, date and time are required")
	}
	date, start, err := parseSlot(q.Date, q.Time)
	if err != nil {
		return ConflictResult{}, err
	}
	if _, err := e.catalog.GetStaff(ctx, q.StaffID); err != nil {
		return ConflictResult{}, lookup("staff", q.StaffID, err)
	}
	svc, err := e.catalog.GetService(ctx, q.ServiceID)
	if err != nil {
		return ConflictResult{}, lookup("service", q.ServiceID, err)
	}
	iv, err := serviceInterval(svc, start)
	if err != nil {
		return ConflictResult{}, err
	}

	day, err := e.store.StaffDay(ctx, q.StaffID, date)
	if err != nil {
		return ConflictResult{}, err
	}
	existing, found, err := FindConflict(day, iv, strings.TrimSpace(q.ExcludeID))
	if err != nil {
		return ConflictResult{}, err
	}
	if !found {
		return ConflictResult{}, nil
	}
	return ConflictResult{Conflict: true, Existing: &existing}, nil
}

func (e *Engine) GetAppointment(ctx context.Context, id string) (model.AppointmentDetail, error) {
	d, err := e.store.GetAppointment(ctx, id)
	if err != nil {
		return model.AppointmentDetail{}, lookup("appointment", id, err)
	}
	return d, nil
}

func (e *Engine) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.AppointmentDetail, error) {
	if filter.Date != "" {
		d, err := availability.ParseDate(filter.Date)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		filter.Date = d
	}
	if filter.Status != "" {
		if _, ok := model.ParseStatus(string(filter.Status)); !ok {
			return nil, invalidInput("invalid status %q", filter.Status)
		}
	}
	return e.store.ListAppointments(ctx, filter)
}

// ListStaff returns the directory. With a date, each entry carries its committed count.
func (e *Engine) ListStaff(ctx context.Context, filter model.StaffFilter) ([]model.StaffLoad, error) {
	if filter.Date != "" {
		d, err := availability.ParseDate(filter.Date)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		filter.Date = d
	}
	staff, err := e.catalog.ListStaff(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]model.StaffLoad, 0, len(staff))
	for _, s := range staff {
		load := model.StaffLoad{Staff: s}
		if filter.Date != "" {
			day, err := e.store.StaffDay(ctx, s.ID, filter.Date)
			if err != nil {
				return nil, err
			}
			load.AppointmentCount = CommittedCount(day, "")
		}
		out = append(out, load)
	}
	return out, nil
}

func (e *Engine) ListStaffTypes(ctx context.Context) ([]string, error) {
	return e.catalog.ListStaffTypes(ctx)
}

func (e *Engine) ListServices(ctx context.Context) ([]model.Service, error) {
	return e.catalog.ListServices(ctx)
}

// OpenSlots lists start times in the working day where the service fits the staff
// member's calendar.
func (e *Engine) OpenSlots(ctx context.Context, staffID, serviceID, date string) ([]string, error) {
	d, err := availability.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if _, err := e.catalog.GetStaff(ctx, staffID); err != nil {
		return nil, lookup("staff", staffID, err)
	}
	svc, err := e.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, lookup("service", serviceID, err)
	}
	day, err := e.store.StaffDay(ctx, staffID, d)
	if err != nil {
		return nil, err
	}
	busy, err := busyIntervals(day)
	if err != nil {
		return nil, err
	}

	slots := availability.OpenSlots(e.workStart, e.workEnd, svc.DurationMinutes, slotStep, busy)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out, nil
}

type checks struct {
	eligibility bool
	capacity    bool
	conflict    bool
}

var allChecks = checks{eligibility: true, capacity: true, conflict: true}

// checkAssignment validates placing iv on staff's calendar for date. The caller must
// hold the staff lock.
func checkAssignment(ctx context.Context, tx Tx, staff model.Staff, svc model.Service, date string, iv availability.Interval, excludeID string, c checks) error {
	if c.eligibility && !staff.Eligible(svc) {
		if staff.Status == model.StaffOnLeave {
			return newError(KindStaffIneligible, "%s is on leave", staff.Name)
		}
		return newError(KindStaffIneligible, "%s is a %s but %s requires a %s", staff.Name, staff.ServiceType, svc.Name, svc.RequiredStaffType)
	}
	if !c.capacity && !c.conflict {
		return nil
	}

	day, err := tx.StaffDay(ctx, staff.ID, date)
	if err != nil {
		return err
	}
	if c.capacity && !HasCapacity(staff, day, excludeID) {
		return newError(KindCapacityExceeded, "%s has reached the daily limit of %d appointments on %s", staff.Name, staff.DailyCapacity, date)
	}
	if c.conflict {
		existing, found, err := FindConflict(day, iv, excludeID)
		if err != nil {
			return err
		}
		if found {
			return newError(KindTimeConflict, "%s already has an appointment with %s at %s on %s", staff.Name, existing.CustomerName, existing.Time, date)
		}
	}
	return nil
}

func serviceInterval(svc model.Service, start availability.Clock) (availability.Interval, error) {
	if !model.ValidDuration(svc.DurationMinutes) {
		return availability.Interval{}, invalidInput("service %s has unsupported duration %d", svc.Name, svc.DurationMinutes)
	}
	iv, err := availability.NewInterval(start, svc.DurationMinutes)
	if errors.Is(err, availability.ErrCrossesMidnight) {
		return availability.Interval{}, &Error{Kind: KindInvalidInput, Message: fmt.Sprintf("%s at %s would run past midnight", svc.Name, start), Err: err}
	}
	if err != nil {
		return availability.Interval{}, invalidInput("%v", err)
	}
	return iv, nil
}

func parseSlot(date, clock string) (string, availability.Clock, error) {
	d, err := availability.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return "", 0, invalidInput("%v", err)
	}
	c, err := availability.ParseClock(strings.TrimSpace(clock))
	if err != nil {
		return "", 0, invalidInput("%v", err)
	}
	return d, c, nil
}

func (e *Engine) record(ctx context.Context, action activity.Action, appt model.Appointment, what string) {
	entry := activity.Entry{
		Action:        action,
		AppointmentID: appt.ID,
		Actor:         activity.ActorFromContext(ctx),
		Message:       fmt.Sprintf("Appointment for %q %s", appt.CustomerName, what),
		At:            e.now(),
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "activity record failed", "err", err, "appointment_id", appt.ID, "action", string(action))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
