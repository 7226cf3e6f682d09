package combatserver

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/registry"
)

// Registry is the subset of *registry.Registry the service calls.
type Registry interface {
	Start(missionID string, participants []combat.ParticipantSpec, enemies []combat.EnemySpec, mc combat.MissionContext) bool
	Status(missionID string) registry.Status
	LiveState(missionID string) *combat.Session
	Result(missionID string) *combat.Result
	DetailedReport(missionID string) *registry.Report
	ForceEnd(missionID string) bool
	OnUpdate(missionID string, fn func(*combat.Session)) (cancel func())
	OnComplete(missionID string, fn registry.CompletionFunc) bool
}

// watchBuffer bounds the snapshots queued for one slow watcher. Older
// snapshots are dropped first.
const watchBuffer = 16

// Service implements CombatSyncServer over a Registry.
type Service struct {
	reg    Registry
	logger *zap.Logger
}

// NewService creates a Service.
//
// Precondition: reg must be non-nil.
func NewService(reg Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reg: reg, logger: logger}
}

func missionID(in *wrapperspb.StringValue) (string, error) {
	id := strings.TrimSpace(in.GetValue())
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "mission id must not be empty")
	}
	return id, nil
}

func encode(v any) (*structpb.Struct, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

// StartSession starts a session. Duplicate and late starts answer
// started=false rather than an error.
func (s *Service) StartSession(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StartRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed start request: %v", err)
	}
	req.MissionID = strings.TrimSpace(req.MissionID)
	if req.MissionID == "" {
		return nil, status.Error(codes.InvalidArgument, "mission id must not be empty")
	}
	if len(req.Participants) == 0 || len(req.Enemies) == 0 {
		return nil, status.Error(codes.InvalidArgument, "a session needs at least one participant and one enemy")
	}
	started := s.reg.Start(req.MissionID, req.Participants, req.Enemies, req.Context)
	s.logger.Debug("start session requested",
		zap.String("mission_id", req.MissionID),
		zap.Bool("started", started),
	)
	return encode(map[string]any{"mission_id": req.MissionID, "started": started})
}

// GetStatus answers for any id, known or not.
func (s *Service) GetStatus(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := missionID(in)
	if err != nil {
		return nil, err
	}
	return encode(s.reg.Status(id))
}

// GetLiveState returns the latest snapshot of a running session.
func (s *Service) GetLiveState(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := missionID(in)
	if err != nil {
		return nil, err
	}
	snap := s.reg.LiveState(id)
	if snap == nil {
		return nil, status.Errorf(codes.NotFound, "no running session for mission %q", id)
	}
	return encode(snap)
}

// GetResult returns the finalized result.
func (s *Service) GetResult(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := missionID(in)
	if err != nil {
		return nil, err
	}
	res := s.reg.Result(id)
	if res == nil {
		return nil, status.Errorf(codes.NotFound, "no result for mission %q", id)
	}
	return encode(res)
}

// GetReport returns the finalized result with per-actor summaries.
func (s *Service) GetReport(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := missionID(in)
	if err != nil {
		return nil, err
	}
	rep := s.reg.DetailedReport(id)
	if rep == nil {
		return nil, status.Errorf(codes.NotFound, "no result for mission %q", id)
	}
	return encode(rep)
}

// ForceEnd is idempotent and succeeds for unknown ids.
func (s *Service) ForceEnd(_ context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := missionID(in)
	if err != nil {
		return nil, err
	}
	ended := s.reg.ForceEnd(id)
	s.logger.Debug("force end requested", zap.String("mission_id", id), zap.Bool("ended", ended))
	return &emptypb.Empty{}, nil
}

// WatchSession streams end-of-tick snapshots until the session is finalized,
// then the result, then closes.
func (s *Service) WatchSession(in *wrapperspb.StringValue, stream WatchSessionServer) error {
	id, err := missionID(in)
	if err != nil {
		return err
	}
	if res := s.reg.Result(id); res != nil {
		return sendWatch(stream, WatchMessage{Kind: WatchResult, Result: res})
	}
	if !s.reg.Status(id).Active {
		return status.Errorf(codes.NotFound, "no session for mission %q", id)
	}

	updates := make(chan *combat.Session, watchBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := s.reg.OnUpdate(id, func(snap *combat.Session) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			// Full: drop the oldest queued snapshot and retry.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()
	if !s.reg.OnComplete(id, func(bool, time.Duration) { once.Do(func() { close(done) }) }) {
		once.Do(func() { close(done) })
	}

	if snap := s.reg.LiveState(id); snap != nil {
		if err := sendWatch(stream, WatchMessage{Kind: WatchSnapshot, Session: snap}); err != nil {
			return err
		}
	}
	ctx := stream.Context()
	for {
		select {
		case snap := <-updates:
			if err := sendWatch(stream, WatchMessage{Kind: WatchSnapshot, Session: snap}); err != nil {
				return err
			}
		case <-done:
			if err := drain(stream, updates); err != nil {
				return err
			}
			res := s.reg.Result(id)
			if res == nil {
				return status.Errorf(codes.Internal, "mission %q finalized without a result", id)
			}
			return sendWatch(stream, WatchMessage{Kind: WatchResult, Result: res})
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
}

// drain sends every snapshot still queued.
func drain(stream WatchSessionServer, updates <-chan *combat.Session) error {
	for {
		select {
		case snap := <-updates:
			if err := sendWatch(stream, WatchMessage{Kind: WatchSnapshot, Session: snap}); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func sendWatch(stream WatchSessionServer, msg WatchMessage) error {
	st, err := encode(msg)
	if err != nil {
		return err
	}
	return stream.Send(st)
}
