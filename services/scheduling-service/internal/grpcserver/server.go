package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/auth"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

const ServiceName = "scheduling.v1.Scheduler"

// SchedulerServer is the handler side of ServiceDesc.
type SchedulerServer interface {
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*Appointment, error)
	DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error)
	ListQueue(context.Context, *ListQueueRequest) (*ListQueueResponse, error)
	AssignFromQueue(context.Context, *AssignFromQueueRequest) (*Appointment, error)
	AutoAssign(context.Context, *AutoAssignRequest) (*Appointment, error)
	CheckConflict(context.Context, *CheckConflictRequest) (*CheckConflictResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateAppointment", SchedulerServer.CreateAppointment),
		unary("UpdateAppointment", SchedulerServer.UpdateAppointment),
		unary("DeleteAppointment", SchedulerServer.DeleteAppointment),
		unary("ListQueue", SchedulerServer.ListQueue),
		unary("AssignFromQueue", SchedulerServer.AssignFromQueue),
		unary("AutoAssign", SchedulerServer.AutoAssign),
		unary("CheckConflict", SchedulerServer.CheckConflict),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduling/v1/scheduler.proto",
}

func unary[Req, Resp any](name string, call func(SchedulerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type server struct {
	engine *scheduling.Engine
	logger *slog.Logger
}

func Register(grpcServer *grpc.Server, engine *scheduling.Engine, logger *slog.Logger) {
	grpcServer.RegisterService(&ServiceDesc, &server{engine: engine, logger: logger})
}

func (s *server) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	res, err := s.engine.CreateAppointment(ctx, scheduling.CreateInput{
		CustomerName: req.CustomerName,
		ServiceID:    req.ServiceID,
		StaffID:      req.StaffID,
		Date:         req.Date,
		Time:         req.Time,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &CreateAppointmentResponse{ID: res.ID, Status: string(res.Status), QueuePosition: res.QueuePosition}, nil
}

func (s *server) UpdateAppointment(ctx context.Context, req *UpdateAppointmentRequest) (*Appointment, error) {
	a, err := s.engine.UpdateAppointment(ctx, scheduling.UpdateInput{
		ID:           req.ID,
		CustomerName: req.CustomerName,
		ServiceID:    req.ServiceID,
		StaffID:      req.StaffID,
		Date:         req.Date,
		Time:         req.Time,
		Status:       req.Status,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return fromAppointment(a), nil
}

func (s *server) DeleteAppointment(ctx context.Context, req *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error) {
	if err := s.engine.DeleteAppointment(ctx, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &DeleteAppointmentResponse{}, nil
}

func (s *server) ListQueue(ctx context.Context, _ *ListQueueRequest) (*ListQueueResponse, error) {
	entries, err := s.engine.ListQueue(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &ListQueueResponse{Entries: make([]QueueEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, QueueEntry{
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
	return out, nil
}

func (s *server) AssignFromQueue(ctx context.Context, req *AssignFromQueueRequest) (*Appointment, error) {
	a, err := s.engine.AssignFromQueue(ctx, req.AppointmentID, req.StaffID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return fromAppointment(a), nil
}

func (s *server) AutoAssign(ctx context.Context, req *AutoAssignRequest) (*Appointment, error) {
	a, err := s.engine.AutoAssign(ctx, req.StaffID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return fromAppointment(a), nil
}

func (s *server) CheckConflict(ctx context.Context, req *CheckConflictRequest) (*CheckConflictResponse, error) {
	res, err := s.engine.CheckConflict(ctx, scheduling.ConflictQuery{
		StaffID:   req.StaffID,
		Date:      req.Date,
		Time:      req.Time,
		ServiceID: req.ServiceID,
		ExcludeID: req.ExcludeID,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := &CheckConflictResponse{Conflict: res.Conflict}
	if res.Existing != nil {
		out.Existing = &Booking{
			AppointmentID:   res.Existing.AppointmentID,
			CustomerName:    res.Existing.CustomerName,
			Time:            res.Existing.Time,
			DurationMinutes: res.Existing.DurationMinutes,
			Status:          string(res.Existing.Status),
		}
	}
	return out, nil
}

// CodeFor maps an error kind to the gRPC status code callers see.
func CodeFor(kind scheduling.Kind) codes.Code {
	switch kind {
	case scheduling.KindInvalidInput:
		return codes.InvalidArgument
	case scheduling.KindUnauthorized:
		return codes.Unauthenticated
	case scheduling.KindNotFound:
		return codes.NotFound
	case scheduling.KindCapacityExceeded:
		return codes.ResourceExhausted
	case scheduling.KindTimeConflict:
		return codes.Aborted
	case scheduling.KindAlreadyAssigned:
		return codes.AlreadyExists
	case scheduling.KindStaffIneligible, scheduling.KindNoEligibleAppointment:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func (s *server) toStatus(ctx context.Context, err error) error {
	kind := scheduling.KindOf(err)
	if kind == scheduling.KindInternal {
		s.logger.ErrorContext(ctx, "grpc call failed", "err", err)
		return status.Error(codes.Internal, "internal error")
	}
	msg := err.Error()
	var se *scheduling.Error
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	return status.Error(CodeFor(kind), msg)
}

// UnaryAuthInterceptor verifies the bearer token in the authorization metadata and
// names the caller as the activity actor.
func UnaryAuthInterceptor(v auth.Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				token = strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
			}
		}
		if token == "" {
			return nil, status.Error(CodeFor(scheduling.KindUnauthorized), "missing bearer token")
		}
		claims, err := v.Verify(ctx, token)
		if err != nil {
			return nil, status.Error(CodeFor(scheduling.KindUnauthorized), "invalid token")
		}
		ctx = auth.WithClaims(ctx, *claims)
		return handler(activity.WithActor(ctx, claims.Actor()), req)
	}
}
