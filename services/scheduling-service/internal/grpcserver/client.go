package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/grpcx"
)

// Client calls the scheduler over a connection dialed with grpcx.Dial.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcx.JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*CreateAppointmentResponse, error) {
	out := new(CreateAppointmentResponse)
	if err := c.invoke(ctx, "CreateAppointment", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, in *UpdateAppointmentRequest, opts ...grpc.CallOption) (*Appointment, error) {
	out := new(Appointment)
	if err := c.invoke(ctx, "UpdateAppointment", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, in *DeleteAppointmentRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteAppointment", in, new(DeleteAppointmentResponse), opts...)
}

func (c *Client) ListQueue(ctx context.Context, opts ...grpc.CallOption) (*ListQueueResponse, error) {
	out := new(ListQueueResponse)
	if err := c.invoke(ctx, "ListQueue", &ListQueueRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AssignFromQueue(ctx context.Context, in *AssignFromQueueRequest, opts ...grpc.CallOption) (*Appointment, error) {
	out := new(Appointment)
	if err := c.invoke(ctx, "AssignFromQueue", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AutoAssign(ctx context.Context, in *AutoAssignRequest, opts ...grpc.CallOption) (*Appointment, error) {
	out := new(Appointment)
	if err := c.invoke(ctx, "AutoAssign", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckConflict(ctx context.Context, in *CheckConflictRequest, opts ...grpc.CallOption) (*CheckConflictResponse, error) {
	out := new(CheckConflictResponse)
	if err := c.invoke(ctx, "CheckConflict", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
