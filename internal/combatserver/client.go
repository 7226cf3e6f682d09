package combatserver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/registry"
)

// Client is a typed CombatSync client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *Client) get(ctx context.Context, method, missionID string, v any) error {
	out := &structpb.Struct{}
	if err := c.call(ctx, method, wrapperspb.String(missionID), out); err != nil {
		return err
	}
	return fromStruct(out, v)
}

// StartSession asks the server to start req. It reports whether a new
// session was started.
func (c *Client) StartSession(ctx context.Context, req StartRequest) (bool, error) {
	in, err := toStruct(req)
	if err != nil {
		return false, err
	}
	out := &structpb.Struct{}
	if err := c.call(ctx, methodStartSession, in, out); err != nil {
		return false, err
	}
	return out.GetFields()["started"].GetBoolValue(), nil
}

// GetStatus returns the lifecycle flags of missionID.
func (c *Client) GetStatus(ctx context.Context, missionID string) (registry.Status, error) {
	var st registry.Status
	err := c.get(ctx, methodGetStatus, missionID, &st)
	return st, err
}

// GetLiveState returns the latest snapshot. A session that is not running
// yields a NotFound status error.
func (c *Client) GetLiveState(ctx context.Context, missionID string) (*combat.Session, error) {
	var s combat.Session
	if err := c.get(ctx, methodGetLiveState, missionID, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetResult returns the finalized result, or a NotFound status error.
func (c *Client) GetResult(ctx context.Context, missionID string) (*combat.Result, error) {
	var r combat.Result
	if err := c.get(ctx, methodGetResult, missionID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReport returns the detailed report, or a NotFound status error.
func (c *Client) GetReport(ctx context.Context, missionID string) (*registry.Report, error) {
	var r registry.Report
	if err := c.get(ctx, methodGetReport, missionID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ForceEnd force-ends missionID. It succeeds for unknown ids.
func (c *Client) ForceEnd(ctx context.Context, missionID string) error {
	return c.call(ctx, methodForceEnd, wrapperspb.String(missionID), &emptypb.Empty{})
}

// Watch streams WatchMessages to fn until the server sends the result or
// the stream fails. fn returning an error stops the watch.
func (c *Client) Watch(ctx context.Context, missionID string, fn func(WatchMessage) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodWatchSession)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(wrapperspb.String(missionID)); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := &structpb.Struct{}
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg WatchMessage
		if err := fromStruct(out, &msg); err != nil {
			return fmt.Errorf("decoding watch message: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
