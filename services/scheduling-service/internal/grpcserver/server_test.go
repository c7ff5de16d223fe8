package grpcserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/auth"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/grpcx"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/grpcserver"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/storage/sqlite"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/testsupport"
)

func startServer(t *testing.T, opts ...grpc.ServerOption) (*grpcserver.Client, *sqlite.Store) {
	t.Helper()

	store := testsupport.SeededStore(t)
	engine := testsupport.NewEngine(t, store)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpcx.NewServer(testsupport.Logger(), opts...)
	grpcserver.Register(srv, engine, testsupport.Logger())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), lis.Addr().String(), grpcx.DialOptions{Timeout: 5 * time.Second, JSON: true})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return grpcserver.NewClient(conn), store
}

func expectCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func TestSchedulerRoundTrip(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	scheduled, err := client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "Jane",
		ServiceID:    testsupport.Consultation.ID,
		StaffID:      testsupport.DrAdams.ID,
		Date:         testsupport.Date,
		Time:         "10:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if scheduled.Status != "scheduled" {
		t.Fatalf("unexpected status %q", scheduled.Status)
	}

	queued, err := client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "Sam",
		ServiceID:    testsupport.Consultation.ID,
		Date:         testsupport.Date,
		Time:         "10:15",
	})
	if err != nil {
		t.Fatalf("create queued: %v", err)
	}
	if queued.Status != "queued" || queued.QueuePosition != 1 {
		t.Fatalf("unexpected queued response %+v", queued)
	}

	q, err := client.ListQueue(ctx)
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if len(q.Entries) != 1 || q.Entries[0].AppointmentID != queued.ID {
		t.Fatalf("unexpected queue %+v", q.Entries)
	}

	conflict, err := client.CheckConflict(ctx, &grpcserver.CheckConflictRequest{
		StaffID:   testsupport.DrAdams.ID,
		Date:      testsupport.Date,
		Time:      "10:15",
		ServiceID: testsupport.Consultation.ID,
	})
	if err != nil {
		t.Fatalf("check conflict: %v", err)
	}
	if !conflict.Conflict || conflict.Existing == nil || conflict.Existing.AppointmentID != scheduled.ID {
		t.Fatalf("expected conflict with %s, got %+v", scheduled.ID, conflict)
	}

	_, err = client.AssignFromQueue(ctx, &grpcserver.AssignFromQueueRequest{AppointmentID: queued.ID, StaffID: testsupport.DrAdams.ID})
	expectCode(t, err, codes.Aborted)

	got, err := client.AutoAssign(ctx, &grpcserver.AutoAssignRequest{StaffID: testsupport.DrBaker.ID})
	if err != nil {
		t.Fatalf("auto-assign: %v", err)
	}
	if got.ID != queued.ID || got.StaffID != testsupport.DrBaker.ID || got.Status != "scheduled" {
		t.Fatalf("unexpected assignment %+v", got)
	}

	updated, err := client.UpdateAppointment(ctx, &grpcserver.UpdateAppointmentRequest{ID: scheduled.ID, Status: "completed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != "completed" {
		t.Fatalf("unexpected status %q", updated.Status)
	}

	if err := client.DeleteAppointment(ctx, &grpcserver.DeleteAppointmentRequest{ID: scheduled.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectCode(t, client.DeleteAppointment(ctx, &grpcserver.DeleteAppointmentRequest{ID: scheduled.ID}), codes.NotFound)
}

func TestSchedulerErrorCodes(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	_, err := client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "Late",
		ServiceID:    testsupport.LateSurgery.ID,
		StaffID:      testsupport.DrAdams.ID,
		Date:         testsupport.Date,
		Time:         "23:00",
	})
	expectCode(t, err, codes.InvalidArgument)

	_, err = client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "Jo",
		ServiceID:    testsupport.Vaccination.ID,
		StaffID:      testsupport.DrAdams.ID,
		Date:         testsupport.Date,
		Time:         "09:00",
	})
	expectCode(t, err, codes.FailedPrecondition)

	_, err = client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "A",
		ServiceID:    testsupport.Consultation.ID,
		StaffID:      testsupport.DrBaker.ID,
		Date:         testsupport.Date,
		Time:         "09:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "B",
		ServiceID:    testsupport.Consultation.ID,
		StaffID:      testsupport.DrBaker.ID,
		Date:         testsupport.Date,
		Time:         "13:00",
	})
	expectCode(t, err, codes.ResourceExhausted)

	_, err = client.AutoAssign(ctx, &grpcserver.AutoAssignRequest{StaffID: testsupport.NurseKim.ID})
	expectCode(t, err, codes.FailedPrecondition)
}

func TestAuthInterceptor(t *testing.T) {
	const secret = "grpc-secret"
	client, store := startServer(t, grpc.ChainUnaryInterceptor(grpcserver.UnaryAuthInterceptor(auth.Verifier{Secret: secret})))

	_, err := client.ListQueue(context.Background())
	expectCode(t, err, codes.Unauthenticated)

	token, err := auth.SignHS256(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "svc-reception",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)

	res, err := client.CreateAppointment(ctx, &grpcserver.CreateAppointmentRequest{
		CustomerName: "Jane",
		ServiceID:    testsupport.Consultation.ID,
		Date:         testsupport.Date,
		Time:         "10:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := client.DeleteAppointment(ctx, &grpcserver.DeleteAppointmentRequest{ID: res.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries := testsupport.RecentActivity(t, store, 1)
	if len(entries) != 1 || entries[0].Actor != "svc-reception" {
		t.Fatalf("expected the token subject as actor, got %+v", entries)
	}
}
