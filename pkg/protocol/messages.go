package protocol

import (
	"github.com/go-gl/mathgl/mgl64"

	"soccer/pkg/core"
)

// MessageType 消息类型（信封中的 type 字段）
type MessageType int32

const (
	TypeUnknown MessageType = iota

	// 客户端 -> 服务器
	TypeJoinRequest
	TypeInput
	TypeKick
	TypePing

	// 服务器 -> 客户端
	TypeJoinAccepted
	TypeJoinRejected
	TypeWorldState
	TypeGameEvent
	TypePlayerLeft
	TypePong
)

func (t MessageType) String() string {
	switch t {
	case TypeJoinRequest:
		return "join_request"
	case TypeInput:
		return "input"
	case TypeKick:
		return "kick"
	case TypePing:
		return "ping"
	case TypeJoinAccepted:
		return "join_accepted"
	case TypeJoinRejected:
		return "join_rejected"
	case TypeWorldState:
		return "world_state"
	case TypeGameEvent:
		return "game_event"
	case TypePlayerLeft:
		return "player_left"
	case TypePong:
		return "pong"
	}
	return "unknown"
}

// Message 封闭的消息集合，只有本包内的类型可以实现
type Message interface {
	Type() MessageType
	isMessage()
}

// ========== 客户端消息 ==========

// JoinRequest 加入请求；SessionToken 非空时表示断线重连
type JoinRequest struct {
	PlayerName   string
	RoomID       string
	SessionToken string
}

// InputCommand 移动意图，本地输入变化时发送，不需要应答
type InputCommand struct {
	Seq       uint32
	Timestamp int64
	Input     core.Input
}

// KickCommand 踢球动作
type KickCommand struct {
	Timestamp int64
	Direction mgl64.Vec3
	Power     float64
}

// Ping 时钟同步请求
type Ping struct {
	ClientTime int64
}

// ========== 服务器消息 ==========

// JoinAccepted 加入成功
type JoinAccepted struct {
	PlayerID     uint32
	SessionToken string
	TickRate     uint32
	ServerTime   int64
}

// JoinRejected 加入失败
type JoinRejected struct {
	Reason string
}

// EntityUpdate 单个实体的权威状态
type EntityUpdate struct {
	ID       uint32
	Kind     core.EntityKind
	Team     core.Team
	Position mgl64.Vec3

	Velocity    mgl64.Vec3
	HasVelocity bool

	Yaw    float64
	HasYaw bool

	Rotation    mgl64.Quat
	HasRotation bool
}

// WorldState 一次状态下发；AckSeq 为服务器已处理的本地玩家最大输入序号
type WorldState struct {
	Tick      uint32
	Timestamp int64
	AckSeq    uint32
	Entities  []EntityUpdate
}

// EventKind 离散事件种类
type EventKind int32

const (
	EventUnknown EventKind = iota
	EventKick
	EventGoal
	EventMatch
)

func (k EventKind) String() string {
	switch k {
	case EventKick:
		return "kick"
	case EventGoal:
		return "goal"
	case EventMatch:
		return "match"
	}
	return "unknown"
}

// KickEvent 有人踢球
type KickEvent struct {
	PlayerID     uint32
	Impulse      mgl64.Vec3
	BallPosition mgl64.Vec3
}

// GoalEvent 进球
type GoalEvent struct {
	Team      core.Team
	ScorerID  uint32
	HomeScore uint32
	AwayScore uint32
}

// MatchPhase 比赛阶段
type MatchPhase int32

const (
	PhaseWaiting MatchPhase = iota
	PhaseCountdown
	PhasePlaying
	PhaseFinished
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// MatchEvent 比赛阶段变化
type MatchEvent struct {
	Phase            MatchPhase
	RemainingSeconds float64
}

// GameEvent 离散事件；只有与 Kind 对应的负载非空
type GameEvent struct {
	Kind      EventKind
	Timestamp int64
	Kick      *KickEvent
	Goal      *GoalEvent
	Match     *MatchEvent
}

// PlayerLeft 玩家离开
type PlayerLeft struct {
	PlayerID uint32
}

// Pong 时钟同步应答
type Pong struct {
	ClientTime int64
	ServerTime int64
}

func (*JoinRequest) Type() MessageType  { return TypeJoinRequest }
func (*InputCommand) Type() MessageType { return TypeInput }
func (*KickCommand) Type() MessageType  { return TypeKick }
func (*Ping) Type() MessageType         { return TypePing }
func (*JoinAccepted) Type() MessageType { return TypeJoinAccepted }
func (*JoinRejected) Type() MessageType { return TypeJoinRejected }
func (*WorldState) Type() MessageType   { return TypeWorldState }
func (*GameEvent) Type() MessageType    { return TypeGameEvent }
func (*PlayerLeft) Type() MessageType   { return TypePlayerLeft }
func (*Pong) Type() MessageType         { return TypePong }

func (*JoinRequest) isMessage()  {}
func (*InputCommand) isMessage() {}
func (*KickCommand) isMessage()  {}
func (*Ping) isMessage()         {}
func (*JoinAccepted) isMessage() {}
func (*JoinRejected) isMessage() {}
func (*WorldState) isMessage()   {}
func (*GameEvent) isMessage()    {}
func (*PlayerLeft) isMessage()   {}
func (*Pong) isMessage()         {}
