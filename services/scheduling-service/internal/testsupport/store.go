package testsupport

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/storage/sqlite"
)

const Date = "2026-03-02"

// Clinic is the catalog every seeded store starts with.
var (
	Consultation = model.Service{ID: "svc-consult", Name: "Consultation", DurationMinutes: 30, RequiredStaffType: "Doctor"}
	Checkup      = model.Service{ID: "svc-checkup", Name: "Full Checkup", DurationMinutes: 60, RequiredStaffType: "Doctor"}
	Vaccination  = model.Service{ID: "svc-vaccine", Name: "Vaccination", DurationMinutes: 15, RequiredStaffType: "Nurse"}
	LateSurgery  = model.Service{ID: "svc-surgery", Name: "Surgery", DurationMinutes: 120, RequiredStaffType: "Doctor"}

	DrAdams  = model.Staff{ID: "staff-adams", Name: "Dr. Adams", ServiceType: "Doctor", DailyCapacity: 5, Status: model.StaffAvailable}
	DrBaker  = model.Staff{ID: "staff-baker", Name: "Dr. Baker", ServiceType: "Doctor", DailyCapacity: 1, Status: model.StaffAvailable}
	DrCole   = model.Staff{ID: "staff-cole", Name: "Dr. Cole", ServiceType: "Doctor", DailyCapacity: 3, Status: model.StaffOnLeave}
	NurseKim = model.Staff{ID: "staff-kim", Name: "Nurse Kim", ServiceType: "Nurse", DailyCapacity: 8, Status: model.StaffAvailable}
)

// OpenStore opens a fresh store in a per-test directory and closes it on cleanup.
func OpenStore(t testing.TB) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "scheduling.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SeededStore opens a store loaded with the clinic catalog.
func SeededStore(t testing.TB) *sqlite.Store {
	t.Helper()

	store := OpenStore(t)
	ctx := context.Background()
	for _, svc := range []model.Service{Consultation, Checkup, Vaccination, LateSurgery} {
		if err := store.UpsertService(ctx, svc); err != nil {
			t.Fatalf("seed service %s: %v", svc.ID, err)
		}
	}
	for _, st := range []model.Staff{DrAdams, DrBaker, DrCole, NurseKim} {
		if err := store.UpsertStaff(ctx, st); err != nil {
			t.Fatalf("seed staff %s: %v", st.ID, err)
		}
	}
	return store
}

// NewEngine builds an engine over store that records activity into it.
func NewEngine(t testing.TB, store *sqlite.Store, opts ...scheduling.Option) *scheduling.Engine {
	t.Helper()
	return scheduling.NewEngine(store, store, Logger(), opts...)
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RecentActivity reads back what store recorded as an activity.Sink, newest first.
func RecentActivity(t testing.TB, store *sqlite.Store, limit int) []activity.Entry {
	t.Helper()

	rows, err := store.DB().QueryContext(context.Background(), `
		SELECT action, COALESCE(appointment_id, ''), actor, message
		FROM activity_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		t.Fatalf("read activity: %v", err)
	}
	defer rows.Close()

	var out []activity.Entry
	for rows.Next() {
		var (
			e      activity.Entry
			action string
		)
		if err := rows.Scan(&action, &e.AppointmentID, &e.Actor, &e.Message); err != nil {
			t.Fatalf("scan activity: %v", err)
		}
		e.Action = activity.Action(action)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("read activity: %v", err)
	}
	return out
}
