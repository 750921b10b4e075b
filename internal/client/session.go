package client

import (
	"errors"
	"io"
	"math"
	"sort"
	"time"

	"soccer/internal/config"
	"soccer/pkg/core"
	"soccer/pkg/netsync"
	"soccer/pkg/protocol"
	"soccer/pkg/quality"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/time/rate"
)

const (
	// 单帧积分上限，窗口拖动等长时间停顿后避免瞬移
	maxFrameSeconds = 0.25

	// 远端实体超过该时间没有更新则移除
	staleRemoteMs = 5000
)

var errZeroDirection = errors.New("踢球方向不能为零向量")

// Effect 一条服务器事件及其发生时本地玩家的状态
type Effect struct {
	Event    netsync.Event[protocol.GameEvent]
	Local    netsync.EntityState
	HasLocal bool
}

// RemoteEntity 插值后的远端实体
type RemoteEntity struct {
	ID    uint32
	Kind  core.EntityKind
	Team  core.Team
	State netsync.EntityState
}

type remoteEntity struct {
	kind   core.EntityKind
	team   core.Team
	buffer *netsync.SnapshotBuffer
}

// Session 联机同步会话，每个渲染帧调用一次 Update
// 所有同步结构只在渲染线程访问
type Session struct {
	cfg       config.Config
	transport Transport
	logger    *log.Logger
	now       netsync.Clock

	localID uint32
	remotes map[uint32]*remoteEntity

	prediction *netsync.ClientPrediction
	history    *netsync.RingBuffer[netsync.EntityState]
	events     *netsync.LagCompensation[protocol.GameEvent]
	clock      *netsync.ClockSync
	quality    *quality.AdaptiveQuality
	limiter    *rate.Limiter
	pitch      *Pitch

	local    netsync.EntityState
	hasLocal bool

	input   core.Input
	sent    core.Input
	hasSent bool

	frame    uint32
	lastTick uint32
	effects  []Effect
	kicks    []int64 // 等待服务器确认的本地踢球时间

	homeScore uint32
	awayScore uint32
	phase     protocol.MatchPhase
}

// NewSession 创建会话；clock 为 nil 时使用本地墙钟
func NewSession(cfg config.Config, transport Transport, logger *log.Logger, clock netsync.Clock) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if clock == nil {
		clock = netsync.SystemClock
	}

	limit := rate.Inf
	if cfg.Network.InputRateHz > 0 {
		limit = rate.Limit(cfg.Network.InputRateHz)
	}
	burst := cfg.Network.InputBurst
	if burst <= 0 {
		burst = 1
	}

	capacity := cfg.Interpolation.HistoryCapacity
	if capacity <= 0 {
		capacity = netsync.DefaultHistoryCapacity
	}

	s := &Session{
		cfg:        cfg,
		transport:  transport,
		logger:     logger,
		now:        clock,
		localID:    transport.PlayerID(),
		remotes:    make(map[uint32]*remoteEntity),
		prediction: netsync.NewClientPrediction(cfg.Prediction.PredictionOptions(), clock),
		history:    netsync.NewRingBuffer[netsync.EntityState](capacity),
		events:     netsync.NewLagCompensation[protocol.GameEvent](cfg.Events.WindowMs, cfg.Events.MaxAgeMs, clock),
		clock:      netsync.NewClockSync(cfg.Network.ClockSmoothing),
		limiter:    rate.NewLimiter(limit, burst),
		pitch:      NewPitch(),
	}
	if cfg.Quality.Enabled {
		s.quality = quality.New(cfg.Quality.InitialLevel(), cfg.Quality.Thresholds, cfg.Quality.PresetTable())
	}
	return s
}

// Reset 重连后以新的玩家 ID 重新开始同步
// 服务器的 tick 可能从头计数，本地预测和远端缓冲全部清空
func (s *Session) Reset(playerID uint32) {
	if playerID != s.localID {
		s.logger.Info("玩家 ID 变化", "old", s.localID, "new", playerID)
	}
	s.localID = playerID
	s.lastTick = 0
	s.local = netsync.EntityState{}
	s.hasLocal = false
	s.hasSent = false
	s.sent = core.Input{}
	s.kicks = nil
	s.prediction.Reset()
	s.history.Clear()
	clear(s.remotes)
}

// SetInput 设置本帧的移动意图
func (s *Session) SetInput(in core.Input) {
	s.input = in.Clamped()
}

// Update 推进一帧：收包、发输入、预测、清理、画质调整
func (s *Session) Update(frame time.Duration) {
	now := s.now()
	s.frame++

	s.syncClock(now)
	s.applyStates(now)
	s.applyPlayerLeft()
	s.applyEvents(now)
	s.sendInput(now)
	s.advanceLocal(now, frame.Seconds())
	s.confirmKicks(now)
	s.cleanup(now)

	if s.quality != nil && frame > 0 {
		s.quality.UpdateQuality(float64(frame) / float64(time.Millisecond))
	}
}

// ========== 时钟 ==========

func (s *Session) syncClock(now int64) {
	for {
		pong := s.transport.ReceivePong()
		if pong == nil {
			return
		}
		if !s.cfg.Network.ClockSync {
			continue
		}
		s.clock.Observe(pong.ClientTime, pong.ServerTime, now)
		s.logger.Debug("时钟同步", "offset", s.clock.Offset(), "rtt", s.clock.RTT())
	}
}

// localTime 服务器时间戳换算为本地时间；未同步时以收包时间为准
func (s *Session) localTime(serverTs, now int64) int64 {
	if !s.cfg.Network.ClockSync || !s.clock.Synced() {
		return now
	}
	return serverTs - s.clock.Offset()
}

// serverTime 本地时间换算为服务器时间
func (s *Session) serverTime(local int64) int64 {
	if !s.cfg.Network.ClockSync || !s.clock.Synced() {
		return local
	}
	return s.clock.ServerNow(local)
}

// ========== 状态 ==========

func (s *Session) applyStates(now int64) {
	for {
		ws := s.transport.ReceiveState()
		if ws == nil {
			return
		}

		// 乱序到达的旧状态直接丢弃
		if s.lastTick != 0 && ws.Tick <= s.lastTick {
			s.logger.Debug("丢弃过期状态", "tick", ws.Tick, "last", s.lastTick)
			continue
		}
		s.lastTick = ws.Tick

		ts := s.localTime(ws.Timestamp, now)
		for _, ent := range ws.Entities {
			if ent.ID == s.localID && ent.Kind == core.KindPlayer {
				s.applyLocal(ws, ent, ts, now)
				continue
			}
			s.applyRemote(ws.Tick, ent, ts)
		}
	}
}

func (s *Session) applyRemote(tick uint32, ent protocol.EntityUpdate, ts int64) {
	r, ok := s.remotes[ent.ID]
	if !ok {
		r = &remoteEntity{
			kind:   ent.Kind,
			buffer: netsync.NewSnapshotBuffer(s.cfg.Interpolation.BufferTimeMs),
		}
		s.remotes[ent.ID] = r
		s.logger.Info("实体加入", "id", ent.ID, "kind", ent.Kind)
	}
	r.team = ent.Team
	r.buffer.Add(ent.ToEntityState(tick, ts), ts)
}

// applyLocal 确认已处理的输入，在权威位置上重放剩余输入后纠正本地位置
func (s *Session) applyLocal(ws *protocol.WorldState, ent protocol.EntityUpdate, ts, now int64) {
	server := ent.Position
	s.prediction.SetServerState(server)
	s.prediction.Acknowledge(ws.AckSeq)

	// 重放到本地位置所在的时刻，两者才能直接比较
	until := now
	if s.hasLocal {
		until = s.local.Timestamp
	}
	target := server
	if s.cfg.Prediction.Replay {
		target = s.prediction.Replay(server, ts, until, s.pitch.Step)
	}

	if !s.hasLocal {
		s.local = ent.ToEntityState(ws.Tick, now)
		s.local.Position = target
		s.hasLocal = true
		s.logger.Info("本地玩家就位", "id", s.localID, "pos", target)
	} else {
		s.local.Position = s.prediction.Reconcile(target, s.local.Position)
		if ent.HasYaw {
			s.local = s.local.WithYaw(ent.Yaw)
		}
		if ent.HasRotation {
			s.local = s.local.WithRotation(ent.Rotation)
		}
	}
	s.prediction.SetClientState(s.local.Position)
}

func (s *Session) applyPlayerLeft() {
	for {
		id, ok := s.transport.ReceivePlayerLeft()
		if !ok {
			return
		}
		if _, exists := s.remotes[id]; exists {
			delete(s.remotes, id)
			s.logger.Info("玩家离开", "id", id)
		}
	}
}

// ========== 事件 ==========

func (s *Session) applyEvents(now int64) {
	for {
		ev := s.transport.ReceiveEvent()
		if ev == nil {
			return
		}

		ts := s.localTime(ev.Timestamp, now)
		s.events.AddEvent(ev.Kind.EventType(), *ev, ts)

		effect := Effect{Event: netsync.Event[protocol.GameEvent]{
			Type:      ev.Kind.EventType(),
			Data:      *ev,
			Timestamp: ts,
		}}
		effect.Local, effect.HasLocal = s.history.GetByTimestamp(ts)
		s.effects = append(s.effects, effect)

		switch ev.Kind {
		case protocol.EventGoal:
			s.homeScore = ev.Goal.HomeScore
			s.awayScore = ev.Goal.AwayScore
			s.logger.Info("进球", "team", ev.Goal.Team, "scorer", ev.Goal.ScorerID,
				"score", [2]uint32{s.homeScore, s.awayScore})
		case protocol.EventMatch:
			s.phase = ev.Match.Phase
			s.logger.Info("比赛阶段变化", "phase", ev.Match.Phase, "remaining", ev.Match.RemainingSeconds)
		}
	}
}

// confirmKicks 用事件日志确认本地踢球；超时未确认的丢弃
func (s *Session) confirmKicks(now int64) {
	if len(s.kicks) == 0 {
		return
	}

	// 服务器处理时间晚于本地发送约半个 RTT
	lead := s.clock.RTT() / 2
	maxAge := s.cfg.Events.MaxAgeMs
	if maxAge <= 0 {
		maxAge = netsync.DefaultEventMaxAgeMs
	}

	keep := s.kicks[:0]
	for _, ts := range s.kicks {
		ev, ok := s.events.NearestEvent(ts + lead)
		if ok && ev.Type == netsync.EventKick && ev.Data.Kick != nil && ev.Data.Kick.PlayerID == s.localID {
			s.logger.Debug("踢球已确认", "at", ts, "impulse", ev.Data.Kick.Impulse)
			continue
		}
		if now-ts > maxAge {
			s.logger.Warn("踢球未被服务器确认", "at", ts)
			continue
		}
		keep = append(keep, ts)
	}
	s.kicks = keep
}

// ========== 输入 ==========

// sendInput 移动意图变化时发送，受速率限制，被限流的输入下一帧重试
func (s *Session) sendInput(now int64) {
	if s.hasSent && s.input == s.sent {
		return
	}
	if !s.limiter.AllowN(time.UnixMilli(now), 1) {
		return
	}

	seq := s.prediction.AddInput(s.input, now)
	cmd := &protocol.InputCommand{
		Seq:       seq,
		Timestamp: s.serverTime(now),
		Input:     s.input,
	}
	if err := s.transport.Send(cmd); err != nil {
		// 服务器没有收到，撤回记录，下一帧重发
		s.prediction.Discard(seq)
		s.logger.Warn("发送输入失败", "seq", seq, "err", err)
		return
	}
	s.sent = s.input
	s.hasSent = true
}

// Kick 发送踢球指令；power 超出范围时截断
func (s *Session) Kick(direction mgl64.Vec3, power float64) error {
	if direction.Len() == 0 || math.IsNaN(direction.Len()) {
		return errZeroDirection
	}
	power = clampRange(power, 0, core.MaxKickPower)

	now := s.now()
	cmd := &protocol.KickCommand{
		Timestamp: s.serverTime(now),
		Direction: direction.Normalize(),
		Power:     power,
	}
	if err := s.transport.Send(cmd); err != nil {
		return err
	}
	s.kicks = append(s.kicks, now)
	return nil
}

// ========== 本地预测 ==========

func (s *Session) advanceLocal(now int64, dt float64) {
	if !s.hasLocal {
		return
	}
	if dt > maxFrameSeconds {
		dt = maxFrameSeconds
	}

	vel := s.sent.Velocity()
	if dt > 0 {
		next := s.prediction.Predict(s.local.Position, vel, dt)
		s.local.Position = s.pitch.Resolve(s.local.Position, next)
	}
	s.local = s.local.WithVelocity(vel)
	s.local.Tick = s.frame
	s.local.Timestamp = now
	s.prediction.SetClientState(s.local.Position)

	s.history.Push(s.local)
}

// ========== 清理 ==========

func (s *Session) cleanup(now int64) {
	s.prediction.Cleanup(0)
	s.events.Cleanup(0)

	for id, r := range s.remotes {
		latest, ok := r.buffer.Latest()
		if !ok || now-latest.Timestamp > staleRemoteMs {
			delete(s.remotes, id)
			s.logger.Debug("移除长时间未更新的实体", "id", id)
		}
	}
}

// ========== 查询 ==========

// LocalState 本地玩家预测状态
func (s *Session) LocalState() (netsync.EntityState, bool) {
	return s.local, s.hasLocal
}

// RemoteState 远端实体当前的插值状态
func (s *Session) RemoteState(id uint32) (netsync.EntityState, bool) {
	r, ok := s.remotes[id]
	if !ok {
		return netsync.EntityState{}, false
	}
	return r.buffer.InterpolatedState(s.now())
}

// RemoteIDs 远端实体 ID（升序）
func (s *Session) RemoteIDs() []uint32 {
	ids := make([]uint32, 0, len(s.remotes))
	for id := range s.remotes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Remotes 全部远端实体的插值状态，按 ID 升序
func (s *Session) Remotes() []RemoteEntity {
	now := s.now()
	out := make([]RemoteEntity, 0, len(s.remotes))
	for _, id := range s.RemoteIDs() {
		r := s.remotes[id]
		state, ok := r.buffer.InterpolatedState(now)
		if !ok {
			continue
		}
		out = append(out, RemoteEntity{ID: id, Kind: r.kind, Team: r.team, State: state})
	}
	return out
}

// Effects 取出自上次调用以来的事件
func (s *Session) Effects() []Effect {
	out := s.effects
	s.effects = nil
	return out
}

// Quality 当前渲染预设；未启用自适应画质时返回 high 预设
func (s *Session) Quality() quality.Settings {
	if s.quality == nil {
		return s.cfg.Quality.PresetTable().Lookup(quality.High)
	}
	return s.quality.Settings()
}

// QualityLevel 当前画质等级
func (s *Session) QualityLevel() quality.Level {
	if s.quality == nil {
		return quality.High
	}
	return s.quality.CurrentLevel()
}

// Score 比分（主队, 客队）
func (s *Session) Score() (home, away uint32) {
	return s.homeScore, s.awayScore
}

// Phase 比赛阶段
func (s *Session) Phase() protocol.MatchPhase {
	return s.phase
}

// PendingInputs 尚未被服务器确认的输入数
func (s *Session) PendingInputs() int {
	return len(s.prediction.Pending())
}

// RTT 平滑往返时延（毫秒）
func (s *Session) RTT() int64 {
	return s.clock.RTT()
}
