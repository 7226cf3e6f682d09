package combatserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/fieldops/internal/combatserver"
	"github.com/cory-johannsen/fieldops/internal/game/combat"
	"github.com/cory-johannsen/fieldops/internal/game/dice"
	"github.com/cory-johannsen/fieldops/internal/game/registry"
	"github.com/cory-johannsen/fieldops/internal/storage/memory"
)

type testEnv struct {
	client *combatserver.Client
	conn   *grpc.ClientConn
	reg    *registry.Registry
	sched  *combat.ManualScheduler
}

// newTestEnv serves a registry over an in-memory listener and returns a
// connected client.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sched := combat.NewManualScheduler()
	reg := registry.New(memory.New(), combat.Config{},
		registry.WithLogger(logger),
		registry.WithClock(clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))),
		registry.WithSchedulerFactory(func() combat.Scheduler { return sched }),
		registry.WithSourceFactory(func(string) dice.Source { return dice.NewSeededSource(7) }),
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	combatserver.Register(grpcServer, combatserver.NewService(reg, logger))
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{client: combatserver.NewClient(conn), conn: conn, reg: reg, sched: sched}
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func trivialVictory(id string) combatserver.StartRequest {
	return combatserver.StartRequest{
		MissionID: id,
		Participants: []combat.ParticipantSpec{{ID: "p1", Name: "Vasquez", Health: 100, MaxHealth: 100,
			Stats: combat.Stats{Damage: 50, Accuracy: 100}}},
		Enemies: []combat.EnemySpec{{ID: "e1", Name: "Sentry", Health: 10}},
		Context: combat.MissionContext{Terrain: "open", Weather: "clear", NominalDuration: 90 * time.Minute},
	}
}

func twoOnTwo(id string) combatserver.StartRequest {
	return combatserver.StartRequest{
		MissionID: id,
		Participants: []combat.ParticipantSpec{
			{ID: "p1", Name: "Vasquez", Health: 100, Stats: combat.Stats{Damage: 20, Accuracy: 70}},
			{ID: "p2", Name: "Hicks", Health: 100, Stats: combat.Stats{Damage: 20, Accuracy: 70}},
		},
		Enemies: []combat.EnemySpec{
			{ID: "e1", Name: "Raider", Health: 200, Stats: combat.Stats{Damage: 20, Accuracy: 80}, Perks: []string{"brute"}},
			{ID: "e2", Name: "Raider", Health: 200, Stats: combat.Stats{Damage: 20, Accuracy: 80}},
		},
		Context: combat.MissionContext{Terrain: "urban", Weather: "rain"},
	}
}

func TestStartSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	started, err := env.client.StartSession(ctx, twoOnTwo("m-1"))
	require.NoError(t, err)
	assert.True(t, started)

	started, err = env.client.StartSession(ctx, twoOnTwo("m-1"))
	require.NoError(t, err)
	assert.False(t, started, "duplicate start is ignored, not an error")

	st, err := env.client.GetStatus(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, registry.Status{Active: true, Started: true}, st)
}

func TestStartSession_InvalidArgument(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	_, err := env.client.StartSession(ctx, trivialVictory(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req := trivialVictory("m-1")
	req.Enemies = nil
	_, err = env.client.StartSession(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	malformed, err := structpb.NewStruct(map[string]any{"mission_id": "m-2", "participants": "everyone"})
	require.NoError(t, err)
	err = env.conn.Invoke(ctx, "/"+combatserver.ServiceName+"/StartSession", malformed, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetLiveState(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	_, err := env.client.GetLiveState(ctx, "m-1")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.StartSession(ctx, twoOnTwo("m-1"))
	require.NoError(t, err)
	env.sched.Fire()

	snap, err := env.client.GetLiveState(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", snap.ID)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, combat.Running, snap.Status)
	assert.Nil(t, snap.Victory)
	require.Len(t, snap.Participants, 2)
	require.Len(t, snap.Enemies, 2)
	assert.Equal(t, []string{"brute"}, snap.Enemies[0].Perks)
	assert.Equal(t, env.reg.LiveState("m-1").Participants[0].Health, snap.Participants[0].Health)
	assert.NotEmpty(t, snap.Events)
}

func TestResultAndReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	_, err := env.client.StartSession(ctx, trivialVictory("m-1"))
	require.NoError(t, err)

	_, err = env.client.GetResult(ctx, "m-1")
	assert.Equal(t, codes.NotFound, status.Code(err))

	env.sched.Fire()

	res, err := env.client.GetResult(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, res.Victory)
	assert.Equal(t, combat.Completed, res.Status)
	assert.Equal(t, 100, res.FinalHealths["p1"])
	assert.Len(t, res.Events, 3)

	rep, err := env.client.GetReport(ctx, "m-1")
	require.NoError(t, err)
	assert.Len(t, rep.Events, 3)
	require.Len(t, rep.Actors, 2)
	assert.Equal(t, "p1", rep.Actors[1].ActorID)
	assert.Equal(t, 1, rep.Actors[1].Hits)

	started, err := env.client.StartSession(ctx, trivialVictory("m-1"))
	require.NoError(t, err)
	assert.False(t, started, "a finalized mission never restarts")
}

func TestForceEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	require.NoError(t, env.client.ForceEnd(ctx, "unknown"))

	_, err := env.client.StartSession(ctx, twoOnTwo("m-1"))
	require.NoError(t, err)
	require.NoError(t, env.client.ForceEnd(ctx, "m-1"))
	require.NoError(t, env.client.ForceEnd(ctx, "m-1"))

	res, err := env.client.GetResult(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, combat.ForcedEnd, res.Status)
	assert.False(t, res.Victory)

	err = env.client.ForceEnd(ctx, " ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestWatchSession_StreamsUntilResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	_, err := env.client.StartSession(ctx, trivialVictory("m-1"))
	require.NoError(t, err)

	msgs := make(chan combatserver.WatchMessage, 8)
	errc := make(chan error, 1)
	go func() {
		errc <- env.client.Watch(ctx, "m-1", func(m combatserver.WatchMessage) error {
			msgs <- m
			return nil
		})
	}()

	first := <-msgs
	require.Equal(t, combatserver.WatchSnapshot, first.Kind)
	require.NotNil(t, first.Session)
	assert.Equal(t, 0, first.Session.Round)

	env.sched.Fire()

	var last combatserver.WatchMessage
	for m := range msgs {
		last = m
		if m.Kind == combatserver.WatchResult {
			break
		}
		require.NotNil(t, m.Session)
	}
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Victory)
	assert.NoError(t, <-errc)
}

func TestWatchSession_FinalizedAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxT(t)

	_, err := env.client.StartSession(ctx, twoOnTwo("m-1"))
	require.NoError(t, err)
	require.NoError(t, env.client.ForceEnd(ctx, "m-1"))

	var got []combatserver.WatchMessage
	require.NoError(t, env.client.Watch(ctx, "m-1", func(m combatserver.WatchMessage) error {
		got = append(got, m)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, combatserver.WatchResult, got[0].Kind)
	assert.Equal(t, combat.ForcedEnd, got[0].Result.Status)

	err = env.client.Watch(ctx, "unknown", func(combatserver.WatchMessage) error { return nil })
	assert.Equal(t, codes.NotFound, status.Code(err))
}
