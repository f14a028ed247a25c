package grpc_control

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Methods maps the ctl verbs onto service methods.
var Methods = map[string]string{
	"snapshot":  "GetSnapshot",
	"start":     "Start",
	"stop":      "Stop",
	"reconnect": "Reconnect",
	"reset":     "Reset",
}

// Client calls the control service.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient connects lazily to addr without transport security.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client for %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes the method behind verb (see Methods).
func (c *Client) Call(ctx context.Context, verb string) (*structpb.Struct, error) {
	method, ok := Methods[strings.ToLower(verb)]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", verb)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}
