package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a running launcher's control service
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the control service at address
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Status returns the launcher's status
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStatus, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckForUpdates asks the launcher to check for updates
func (c *Client) CheckForUpdates(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodCheckForUpdates, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Launch asks the launcher to start the game against server
func (c *Client) Launch(ctx context.Context, server string) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodLaunch, wrapperspb.String(server), out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchUpdates calls fn for every update status until the stream ends
func (c *Client) WatchUpdates(ctx context.Context, fn func(*structpb.Struct)) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], methodWatchUpdates)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(msg)
	}
}
