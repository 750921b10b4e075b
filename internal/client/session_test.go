package client

import (
	"errors"
	"math"
	"testing"
	"time"

	"soccer/internal/config"
	"soccer/pkg/core"
	"soccer/pkg/protocol"
	"soccer/pkg/quality"

	"github.com/go-gl/mathgl/mgl64"
)

const localID = 1

type fakeTransport struct {
	states []*protocol.WorldState
	events []*protocol.GameEvent
	left   []uint32
	pongs  []*protocol.Pong

	sent    []protocol.Message
	sendErr error
}

func (f *fakeTransport) PlayerID() uint32 { return localID }

func (f *fakeTransport) ReceiveState() *protocol.WorldState {
	if len(f.states) == 0 {
		return nil
	}
	s := f.states[0]
	f.states = f.states[1:]
	return s
}

func (f *fakeTransport) ReceiveEvent() *protocol.GameEvent {
	if len(f.events) == 0 {
		return nil
	}
	e := f.events[0]
	f.events = f.events[1:]
	return e
}

func (f *fakeTransport) ReceivePlayerLeft() (uint32, bool) {
	if len(f.left) == 0 {
		return 0, false
	}
	id := f.left[0]
	f.left = f.left[1:]
	return id, true
}

func (f *fakeTransport) ReceivePong() *protocol.Pong {
	if len(f.pongs) == 0 {
		return nil
	}
	p := f.pongs[0]
	f.pongs = f.pongs[1:]
	return p
}

func (f *fakeTransport) Send(msg protocol.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) sentOfType(t protocol.MessageType) []protocol.Message {
	var out []protocol.Message
	for _, m := range f.sent {
		if m.Type() == t {
			out = append(out, m)
		}
	}
	return out
}

type testClock struct {
	ms int64
}

func (c *testClock) Now() int64 { return c.ms }

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Network.ClockSync = false
	cfg.Network.InputRateHz = 0
	return cfg
}

func newTestSession(cfg config.Config) (*Session, *fakeTransport, *testClock) {
	tr := &fakeTransport{}
	clock := &testClock{ms: 1000}
	return NewSession(cfg, tr, nil, clock.Now), tr, clock
}

func localUpdate(tick, ack uint32, pos mgl64.Vec3) *protocol.WorldState {
	return &protocol.WorldState{
		Tick:   tick,
		AckSeq: ack,
		Entities: []protocol.EntityUpdate{
			{ID: localID, Kind: core.KindPlayer, Team: core.TeamHome, Position: pos},
		},
	}
}

func TestSessionInterpolatesRemotes(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	tr.states = append(tr.states, &protocol.WorldState{Tick: 1, Entities: []protocol.EntityUpdate{
		{ID: 2, Kind: core.KindPlayer, Team: core.TeamAway, Position: mgl64.Vec3{0, 0, 0}},
	}})
	s.Update(16 * time.Millisecond)

	clock.ms = 1100
	tr.states = append(tr.states, &protocol.WorldState{Tick: 2, Entities: []protocol.EntityUpdate{
		{ID: 2, Kind: core.KindPlayer, Team: core.TeamAway, Position: mgl64.Vec3{10, 0, 0}},
	}})
	s.Update(16 * time.Millisecond)

	clock.ms = 1150
	got, ok := s.RemoteState(2)
	if !ok {
		t.Fatal("expected remote entity 2")
	}
	if math.Abs(got.Position.X()-5) > 1e-9 {
		t.Errorf("interpolated x = %f, want 5", got.Position.X())
	}

	remotes := s.Remotes()
	if len(remotes) != 1 || remotes[0].Team != core.TeamAway {
		t.Errorf("remotes = %+v", remotes)
	}
	if _, ok := s.RemoteState(99); ok {
		t.Error("unknown entity should not be found")
	}
}

func TestSessionDropsStaleStates(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())

	tr.states = append(tr.states,
		&protocol.WorldState{Tick: 5, Entities: []protocol.EntityUpdate{{ID: 2, Position: mgl64.Vec3{1, 0, 0}}}},
		&protocol.WorldState{Tick: 3, Entities: []protocol.EntityUpdate{{ID: 2, Position: mgl64.Vec3{9, 0, 0}}}},
	)
	s.Update(16 * time.Millisecond)

	latest, _ := s.remotes[2].buffer.Latest()
	if latest.State.Position.X() != 1 {
		t.Errorf("out-of-order state should be ignored, latest x = %f", latest.State.Position.X())
	}
}

func TestSessionPredictsAndAcknowledges(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	tr.states = append(tr.states, localUpdate(1, 0, mgl64.Vec3{}))
	s.SetInput(core.Input{MoveZ: 1})
	s.Update(16 * time.Millisecond)

	inputs := tr.sentOfType(protocol.TypeInput)
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input command, got %d", len(inputs))
	}
	cmd := inputs[0].(*protocol.InputCommand)
	if cmd.Seq != 1 || cmd.Input.MoveZ != 1 {
		t.Errorf("input command = %+v", cmd)
	}

	step := core.PlayerWalkSpeed * 0.016
	local, ok := s.LocalState()
	if !ok {
		t.Fatal("expected local state")
	}
	if math.Abs(local.Position.Z()-step) > 1e-6 {
		t.Errorf("predicted z = %f, want %f", local.Position.Z(), step)
	}
	if s.PendingInputs() != 1 {
		t.Errorf("pending = %d, want 1", s.PendingInputs())
	}

	// 服务器确认 seq 1 且位置一致
	clock.ms = 1016
	tr.states = append(tr.states, localUpdate(2, 1, mgl64.Vec3{0, 0, step}))
	s.Update(16 * time.Millisecond)

	if s.PendingInputs() != 0 {
		t.Errorf("pending after ack = %d, want 0", s.PendingInputs())
	}
	local, _ = s.LocalState()
	if math.Abs(local.Position.Z()-2*step) > 1e-6 {
		t.Errorf("z after second frame = %f, want %f", local.Position.Z(), 2*step)
	}

	// 输入不变时不重复发送
	if n := len(tr.sentOfType(protocol.TypeInput)); n != 1 {
		t.Errorf("unchanged input should not be resent, sent %d", n)
	}

	if _, ok := s.history.GetByTimestamp(1016); !ok {
		t.Error("local history should record predicted frames")
	}
}

func TestSessionSnapsOnLargeError(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	tr.states = append(tr.states, localUpdate(1, 0, mgl64.Vec3{}))
	s.Update(0)

	clock.ms = 1050
	tr.states = append(tr.states, localUpdate(2, 1, mgl64.Vec3{10, 0, 0}))
	s.Update(0)

	local, _ := s.LocalState()
	if math.Abs(local.Position.X()-10) > 1e-6 {
		t.Errorf("expected snap to server x=10, got %f", local.Position.X())
	}
}

func TestSessionSmoothsSmallError(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	tr.states = append(tr.states, localUpdate(1, 0, mgl64.Vec3{}))
	s.Update(0)

	clock.ms = 1050
	tr.states = append(tr.states, localUpdate(2, 1, mgl64.Vec3{1, 0, 0}))
	s.Update(0)

	local, _ := s.LocalState()
	want := config.DefaultConfig().Prediction.CorrectionRate
	if math.Abs(local.Position.X()-want) > 1e-6 {
		t.Errorf("x = %f, want %f", local.Position.X(), want)
	}
}

func TestSessionReplaysPendingInputs(t *testing.T) {
	cfg := testConfig()
	cfg.Network.ClockSync = true
	s, tr, clock := newTestSession(cfg)

	// 偏移为 0 的时钟样本
	tr.pongs = append(tr.pongs, &protocol.Pong{ClientTime: 900, ServerTime: 950})
	tr.states = append(tr.states, localUpdate(1, 0, mgl64.Vec3{}))
	s.Update(0) // seq 1：静止

	clock.ms = 1100
	s.SetInput(core.Input{MoveZ: 1})
	s.Update(100 * time.Millisecond) // seq 2：向 +z

	clock.ms = 1200
	s.Update(100 * time.Millisecond)
	before, _ := s.LocalState()

	// 服务器在 1100 时只处理了 seq 1，需要在其上重放 seq 2 的 1100~1200ms
	clock.ms = 1250
	ws := localUpdate(2, 1, mgl64.Vec3{})
	ws.Timestamp = 1100
	tr.states = append(tr.states, ws)
	s.Update(0)

	if s.PendingInputs() != 1 {
		t.Errorf("pending = %d, want 1", s.PendingInputs())
	}

	replayed := core.PlayerWalkSpeed * 0.1
	want := before.Position.Z() + (replayed-before.Position.Z())*cfg.Prediction.CorrectionRate
	local, _ := s.LocalState()
	if math.Abs(local.Position.Z()-want) > 1e-6 {
		t.Errorf("z = %f, want %f (corrected toward replayed %f)", local.Position.Z(), want, replayed)
	}
}

func TestSessionHeldInputStaysInSync(t *testing.T) {
	cfg := testConfig()
	cfg.Network.ClockSync = true
	s, tr, clock := newTestSession(cfg)

	const latencyMs = 100
	speed := core.PlayerWalkSpeed
	truth := func(ts int64) float64 { return speed * float64(ts-1000) / 1000 }

	tr.pongs = append(tr.pongs, &protocol.Pong{ClientTime: 900, ServerTime: 950})
	first := localUpdate(1, 0, mgl64.Vec3{})
	first.Timestamp = 1000
	tr.states = append(tr.states, first)
	s.SetInput(core.Input{MoveX: 1})
	s.Update(0)

	// 按键一直保持，服务器状态落后 100ms，已确认 seq 1
	for tick := uint32(2); tick <= 61; tick++ {
		clock.ms += 50
		if ts := clock.ms - latencyMs; ts >= 1000 {
			ws := localUpdate(tick, 1, mgl64.Vec3{truth(ts), 0, 0})
			ws.Timestamp = ts
			tr.states = append(tr.states, ws)
		}
		s.Update(50 * time.Millisecond)
	}

	if s.PendingInputs() != 0 {
		t.Errorf("pending = %d, want 0", s.PendingInputs())
	}
	if n := len(tr.sentOfType(protocol.TypeInput)); n != 1 {
		t.Errorf("held input should be sent once, sent %d", n)
	}
	local, _ := s.LocalState()
	if want := truth(clock.ms); math.Abs(local.Position.X()-want) > 1e-6 {
		t.Errorf("x = %f, want %f", local.Position.X(), want)
	}
}

func TestSessionRetriesFailedInput(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())

	tr.sendErr = ErrSendQueueFull
	s.SetInput(core.Input{MoveZ: 1})
	s.Update(16 * time.Millisecond)
	if s.PendingInputs() != 0 {
		t.Errorf("unsent input should not stay pending, got %d", s.PendingInputs())
	}

	tr.sendErr = nil
	s.Update(16 * time.Millisecond)
	inputs := tr.sentOfType(protocol.TypeInput)
	if len(inputs) != 1 {
		t.Fatalf("expected the input to be resent, got %d", len(inputs))
	}
	if cmd := inputs[0].(*protocol.InputCommand); cmd.Input.MoveZ != 1 {
		t.Errorf("resent command = %+v", cmd)
	}
	if s.PendingInputs() != 1 {
		t.Errorf("pending = %d, want 1", s.PendingInputs())
	}
}

func TestSessionReset(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	ws := localUpdate(40, 0, mgl64.Vec3{5, 0, 5})
	ws.Entities = append(ws.Entities, protocol.EntityUpdate{ID: 2, Kind: core.KindBall, Position: mgl64.Vec3{1, 0, 1}})
	tr.states = append(tr.states, ws)
	s.SetInput(core.Input{MoveX: 1})
	s.Update(16 * time.Millisecond)
	if _, ok := s.LocalState(); !ok {
		t.Fatal("expected local state before reset")
	}

	// 令牌过期，以新 ID 重新加入，服务器 tick 从头计数
	s.Reset(7)
	if _, ok := s.LocalState(); ok {
		t.Error("local state should be cleared")
	}
	if len(s.RemoteIDs()) != 0 || s.PendingInputs() != 0 {
		t.Errorf("remotes=%v pending=%d after reset", s.RemoteIDs(), s.PendingInputs())
	}

	clock.ms += 16
	tr.states = append(tr.states, &protocol.WorldState{Tick: 1, Entities: []protocol.EntityUpdate{
		{ID: 7, Kind: core.KindPlayer, Team: core.TeamAway, Position: mgl64.Vec3{-3, 0, 0}},
		{ID: localID, Kind: core.KindPlayer, Team: core.TeamHome, Position: mgl64.Vec3{5, 0, 5}},
	}})
	s.Update(0)

	local, ok := s.LocalState()
	if !ok || local.Position.X() != -3 {
		t.Errorf("new local player not applied: %v %v", local.Position, ok)
	}
	if ids := s.RemoteIDs(); len(ids) != 1 || ids[0] != localID {
		t.Errorf("old local ID should now be remote, remotes = %v", ids)
	}
	// 当前输入需要重新发给新的会话
	if n := len(tr.sentOfType(protocol.TypeInput)); n != 2 {
		t.Errorf("input commands sent = %d, want 2", n)
	}
}

func TestSessionInputRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Network.InputRateHz = 1
	cfg.Network.InputBurst = 1
	s, tr, clock := newTestSession(cfg)

	for i := 0; i < 10; i++ {
		s.SetInput(core.Input{MoveX: float64(i%2*2 - 1)})
		s.Update(16 * time.Millisecond)
		clock.ms += 16
	}
	if n := len(tr.sentOfType(protocol.TypeInput)); n != 1 {
		t.Errorf("sent %d input commands within one second, want 1", n)
	}

	clock.ms += 1000
	s.SetInput(core.Input{MoveX: 0.5})
	s.Update(16 * time.Millisecond)
	if n := len(tr.sentOfType(protocol.TypeInput)); n != 2 {
		t.Errorf("expected throttled input to go out later, sent %d", n)
	}
}

func TestSessionClampsInput(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())
	s.SetInput(core.Input{MoveX: 4})
	s.Update(0)

	cmd := tr.sentOfType(protocol.TypeInput)[0].(*protocol.InputCommand)
	if cmd.Input.MoveX != 1 {
		t.Errorf("input should be clamped before sending, got %f", cmd.Input.MoveX)
	}
}

func TestSessionPlayerLeft(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())
	tr.states = append(tr.states, &protocol.WorldState{Tick: 1, Entities: []protocol.EntityUpdate{
		{ID: 2, Position: mgl64.Vec3{}},
		{ID: 3, Position: mgl64.Vec3{}},
	}})
	s.Update(0)

	tr.left = append(tr.left, 2)
	s.Update(0)

	ids := s.RemoteIDs()
	if len(ids) != 1 || ids[0] != 3 {
		t.Errorf("remote ids = %v, want [3]", ids)
	}
}

func TestSessionRemovesStaleRemotes(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())
	tr.states = append(tr.states, &protocol.WorldState{Tick: 1, Entities: []protocol.EntityUpdate{{ID: 2}}})
	s.Update(0)

	clock.ms += staleRemoteMs + 1
	s.Update(0)
	if len(s.RemoteIDs()) != 0 {
		t.Errorf("stale remote should be removed, got %v", s.RemoteIDs())
	}
}

func TestSessionEventsAndKickConfirmation(t *testing.T) {
	s, tr, clock := newTestSession(testConfig())

	tr.states = append(tr.states, localUpdate(1, 0, mgl64.Vec3{3, 0, 4}))
	s.Update(16 * time.Millisecond)

	clock.ms = 2000
	if err := s.Kick(mgl64.Vec3{0, 0, 2}, 100); err != nil {
		t.Fatalf("Kick failed: %v", err)
	}
	kicks := tr.sentOfType(protocol.TypeKick)
	if len(kicks) != 1 {
		t.Fatalf("expected kick command, got %d", len(kicks))
	}
	kc := kicks[0].(*protocol.KickCommand)
	if kc.Power != core.MaxKickPower || !kc.Direction.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Errorf("kick command = %+v", kc)
	}

	clock.ms = 2010
	tr.events = append(tr.events,
		&protocol.GameEvent{Kind: protocol.EventKick, Kick: &protocol.KickEvent{PlayerID: localID}},
		&protocol.GameEvent{Kind: protocol.EventGoal, Goal: &protocol.GoalEvent{Team: core.TeamHome, HomeScore: 1}},
	)
	s.Update(16 * time.Millisecond)

	if len(s.kicks) != 0 {
		t.Errorf("kick should be confirmed by the event log, pending %v", s.kicks)
	}

	effects := s.Effects()
	if len(effects) != 2 {
		t.Fatalf("expected 2 effects, got %d", len(effects))
	}
	if !effects[0].HasLocal {
		t.Error("effect should carry the local state at event time")
	}
	if effects[1].Event.Type != "goal" {
		t.Errorf("second effect type = %s", effects[1].Event.Type)
	}
	if len(s.Effects()) != 0 {
		t.Error("Effects should drain")
	}

	home, away := s.Score()
	if home != 1 || away != 0 {
		t.Errorf("score = %d:%d, want 1:0", home, away)
	}
}

func TestSessionUnconfirmedKickExpires(t *testing.T) {
	s, _, clock := newTestSession(testConfig())
	if err := s.Kick(mgl64.Vec3{1, 0, 0}, 5); err != nil {
		t.Fatal(err)
	}
	s.Update(0)
	if len(s.kicks) != 1 {
		t.Fatalf("kick should wait for confirmation")
	}

	clock.ms += 5000
	s.Update(0)
	if len(s.kicks) != 0 {
		t.Error("unconfirmed kick should expire")
	}
}

func TestSessionKickErrors(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())
	if err := s.Kick(mgl64.Vec3{}, 10); !errors.Is(err, errZeroDirection) {
		t.Errorf("zero direction error = %v", err)
	}

	tr.sendErr = ErrNotConnected
	if err := s.Kick(mgl64.Vec3{1, 0, 0}, 10); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send error = %v", err)
	}
	if len(s.kicks) != 0 {
		t.Error("failed kick should not be tracked")
	}
}

func TestSessionMatchPhase(t *testing.T) {
	s, tr, _ := newTestSession(testConfig())
	tr.events = append(tr.events, &protocol.GameEvent{
		Kind:  protocol.EventMatch,
		Match: &protocol.MatchEvent{Phase: protocol.PhaseCountdown, RemainingSeconds: 3},
	})
	s.Update(0)
	if s.Phase() != protocol.PhaseCountdown {
		t.Errorf("phase = %s", s.Phase())
	}
}

func TestSessionClockSync(t *testing.T) {
	cfg := testConfig()
	cfg.Network.ClockSync = true
	s, tr, clock := newTestSession(cfg)

	// 本地 900 发出，服务器 50000 回复，本地 1000 收到
	tr.pongs = append(tr.pongs, &protocol.Pong{ClientTime: 900, ServerTime: 50_000})
	tr.states = append(tr.states, &protocol.WorldState{
		Tick:      1,
		Timestamp: 50_100,
		Entities:  []protocol.EntityUpdate{{ID: 2}},
	})
	s.Update(0)

	if s.RTT() != 100 {
		t.Errorf("rtt = %d, want 100", s.RTT())
	}
	latest, _ := s.remotes[2].buffer.Latest()
	if latest.Timestamp != 1050 {
		t.Errorf("snapshot local time = %d, want 1050", latest.Timestamp)
	}

	clock.ms = 2000
	s.SetInput(core.Input{MoveX: 1})
	s.Update(0)
	cmd := tr.sentOfType(protocol.TypeInput)[1].(*protocol.InputCommand)
	if cmd.Timestamp != 2000+49_050 {
		t.Errorf("input timestamp = %d, want server time %d", cmd.Timestamp, 2000+49_050)
	}
}

func TestSessionAdaptiveQuality(t *testing.T) {
	s, _, _ := newTestSession(testConfig())
	if s.QualityLevel() != quality.High {
		t.Fatalf("initial quality = %s", s.QualityLevel())
	}

	for i := 0; i < quality.WindowSize; i++ {
		s.Update(40 * time.Millisecond)
	}
	if s.QualityLevel() != quality.Medium {
		t.Errorf("quality = %s, want medium", s.QualityLevel())
	}
	if s.Quality().ShadowMapSize != 1024 {
		t.Errorf("settings = %+v", s.Quality())
	}
}

func TestSessionQualityDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Quality.Enabled = false
	s, _, _ := newTestSession(cfg)

	for i := 0; i < quality.WindowSize; i++ {
		s.Update(80 * time.Millisecond)
	}
	if s.QualityLevel() != quality.High {
		t.Errorf("disabled quality should stay high, got %s", s.QualityLevel())
	}
}
