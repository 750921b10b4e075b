package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"

	"soccer/pkg/core"
)

// MaxPacketSize 单条消息最大字节数
const MaxPacketSize = 4096

var (
	ErrUnknownType    = errors.New("未知消息类型")
	ErrPacketTooLarge = errors.New("消息过大")
	ErrInvalid        = errors.New("消息校验失败")
)

// 信封字段
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// Marshal 序列化消息（信封 + 负载）
func Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrUnknownType
	}
	if err := Validate(msg); err != nil {
		return nil, err
	}

	var payload encoder
	switch m := msg.(type) {
	case *JoinRequest:
		payload.str(1, m.PlayerName)
		payload.str(2, m.RoomID)
		payload.str(3, m.SessionToken)
	case *InputCommand:
		payload.varint(1, uint64(m.Seq))
		payload.sint(2, m.Timestamp)
		payload.double(3, m.Input.MoveX)
		payload.double(4, m.Input.MoveZ)
		payload.boolean(5, m.Input.Sprint)
	case *KickCommand:
		payload.sint(1, m.Timestamp)
		payload.vec3(2, m.Direction)
		payload.double(3, m.Power)
	case *Ping:
		payload.sint(1, m.ClientTime)
	case *JoinAccepted:
		payload.varint(1, uint64(m.PlayerID))
		payload.str(2, m.SessionToken)
		payload.varint(3, uint64(m.TickRate))
		payload.sint(4, m.ServerTime)
	case *JoinRejected:
		payload.str(1, m.Reason)
	case *WorldState:
		payload.varint(1, uint64(m.Tick))
		payload.sint(2, m.Timestamp)
		payload.varint(3, uint64(m.AckSeq))
		for i := range m.Entities {
			ent := &m.Entities[i]
			payload.message(4, func(e *encoder) { encodeEntity(e, ent) })
		}
	case *GameEvent:
		payload.varint(1, uint64(m.Kind))
		payload.sint(2, m.Timestamp)
		encodeEventPayload(&payload, m)
	case *PlayerLeft:
		payload.varint(1, uint64(m.PlayerID))
	case *Pong:
		payload.sint(1, m.ClientTime)
		payload.sint(2, m.ServerTime)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}

	var env encoder
	env.varint(fieldType, uint64(msg.Type()))
	env.bytes(fieldPayload, payload.b)
	if len(env.b) > MaxPacketSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, len(env.b))
	}
	return env.b, nil
}

func encodeEntity(e *encoder, ent *EntityUpdate) {
	e.varint(1, uint64(ent.ID))
	e.varint(2, uint64(ent.Kind))
	e.varint(3, uint64(ent.Team))
	e.vec3(4, ent.Position)
	if ent.HasVelocity {
		e.vec3(5, ent.Velocity)
	}
	if ent.HasYaw {
		// yaw 可能恰好为 0，用嵌套消息表达存在
		e.message(6, func(sub *encoder) { sub.double(1, ent.Yaw) })
	}
	if ent.HasRotation {
		e.quat(7, ent.Rotation)
	}
}

func encodeEventPayload(e *encoder, m *GameEvent) {
	switch m.Kind {
	case EventKick:
		e.message(3, func(sub *encoder) {
			sub.varint(1, uint64(m.Kick.PlayerID))
			sub.vec3(2, m.Kick.Impulse)
			sub.vec3(3, m.Kick.BallPosition)
		})
	case EventGoal:
		e.message(4, func(sub *encoder) {
			sub.varint(1, uint64(m.Goal.Team))
			sub.varint(2, uint64(m.Goal.ScorerID))
			sub.varint(3, uint64(m.Goal.HomeScore))
			sub.varint(4, uint64(m.Goal.AwayScore))
		})
	case EventMatch:
		e.message(5, func(sub *encoder) {
			sub.varint(1, uint64(m.Match.Phase))
			sub.double(2, m.Match.RemainingSeconds)
		})
	}
}

// Unmarshal 反序列化并校验消息
func Unmarshal(data []byte) (Message, error) {
	if len(data) > MaxPacketSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPacketTooLarge, len(data))
	}

	var (
		msgType MessageType
		payload []byte
	)
	err := walk(data, func(num protowire.Number, r *fieldReader) {
		switch num {
		case fieldType:
			msgType = MessageType(r.varint())
		case fieldPayload:
			payload = r.bytes()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: 解析信封失败: %w", ErrInvalid, err)
	}

	msg, err := decodePayload(msgType, payload)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: 解析 %s 失败: %w", ErrInvalid, msgType, err)
	}
	if err := Validate(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodePayload(t MessageType, b []byte) (Message, error) {
	switch t {
	case TypeJoinRequest:
		m := &JoinRequest{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.PlayerName = r.str()
			case 2:
				m.RoomID = r.str()
			case 3:
				m.SessionToken = r.str()
			}
		})
	case TypeInput:
		m := &InputCommand{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.Seq = uint32(r.varint())
			case 2:
				m.Timestamp = r.sint()
			case 3:
				m.Input.MoveX = r.double()
			case 4:
				m.Input.MoveZ = r.double()
			case 5:
				m.Input.Sprint = r.boolean()
			}
		})
	case TypeKick:
		m := &KickCommand{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.Timestamp = r.sint()
			case 2:
				m.Direction = r.vec3()
			case 3:
				m.Power = r.double()
			}
		})
	case TypePing:
		m := &Ping{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			if num == 1 {
				m.ClientTime = r.sint()
			}
		})
	case TypeJoinAccepted:
		m := &JoinAccepted{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.PlayerID = uint32(r.varint())
			case 2:
				m.SessionToken = r.str()
			case 3:
				m.TickRate = uint32(r.varint())
			case 4:
				m.ServerTime = r.sint()
			}
		})
	case TypeJoinRejected:
		m := &JoinRejected{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			if num == 1 {
				m.Reason = r.str()
			}
		})
	case TypeWorldState:
		m := &WorldState{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.Tick = uint32(r.varint())
			case 2:
				m.Timestamp = r.sint()
			case 3:
				m.AckSeq = uint32(r.varint())
			case 4:
				var ent EntityUpdate
				r.nested(func(num protowire.Number, sub *fieldReader) { decodeEntityField(&ent, num, sub) })
				m.Entities = append(m.Entities, ent)
			}
		})
	case TypeGameEvent:
		m := &GameEvent{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) { decodeEventField(m, num, r) })
	case TypePlayerLeft:
		m := &PlayerLeft{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			if num == 1 {
				m.PlayerID = uint32(r.varint())
			}
		})
	case TypePong:
		m := &Pong{}
		return m, walk(b, func(num protowire.Number, r *fieldReader) {
			switch num {
			case 1:
				m.ClientTime = r.sint()
			case 2:
				m.ServerTime = r.sint()
			}
		})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

func decodeEntityField(ent *EntityUpdate, num protowire.Number, r *fieldReader) {
	switch num {
	case 1:
		ent.ID = uint32(r.varint())
	case 2:
		ent.Kind = core.EntityKind(r.varint())
	case 3:
		ent.Team = core.Team(r.varint())
	case 4:
		ent.Position = r.vec3()
	case 5:
		ent.Velocity = r.vec3()
		ent.HasVelocity = true
	case 6:
		r.nested(func(num protowire.Number, sub *fieldReader) {
			if num == 1 {
				ent.Yaw = sub.double()
			}
		})
		ent.HasYaw = true
	case 7:
		ent.Rotation = r.quat()
		ent.HasRotation = true
	}
}

func decodeEventField(m *GameEvent, num protowire.Number, r *fieldReader) {
	switch num {
	case 1:
		m.Kind = EventKind(r.varint())
	case 2:
		m.Timestamp = r.sint()
	case 3:
		k := &KickEvent{}
		r.nested(func(num protowire.Number, sub *fieldReader) {
			switch num {
			case 1:
				k.PlayerID = uint32(sub.varint())
			case 2:
				k.Impulse = sub.vec3()
			case 3:
				k.BallPosition = sub.vec3()
			}
		})
		m.Kick = k
	case 4:
		g := &GoalEvent{}
		r.nested(func(num protowire.Number, sub *fieldReader) {
			switch num {
			case 1:
				g.Team = core.Team(sub.varint())
			case 2:
				g.ScorerID = uint32(sub.varint())
			case 3:
				g.HomeScore = uint32(sub.varint())
			case 4:
				g.AwayScore = uint32(sub.varint())
			}
		})
		m.Goal = g
	case 5:
		ph := &MatchEvent{}
		r.nested(func(num protowire.Number, sub *fieldReader) {
			switch num {
			case 1:
				ph.Phase = MatchPhase(sub.varint())
			case 2:
				ph.RemainingSeconds = sub.double()
			}
		})
		m.Match = ph
	}
}

// ========== 边界校验 ==========

// Validate 检查消息是否可以交给同步层（有限数值、负载与种类一致等）
func Validate(msg Message) error {
	switch m := msg.(type) {
	case *InputCommand:
		if !finite(m.Input.MoveX, m.Input.MoveZ) || math.Abs(m.Input.MoveX) > 1 || math.Abs(m.Input.MoveZ) > 1 {
			return fmt.Errorf("%w: 移动输入越界", ErrInvalid)
		}
	case *KickCommand:
		if !finiteVec(m.Direction) || !finite(m.Power) || m.Power < 0 || m.Power > core.MaxKickPower {
			return fmt.Errorf("%w: 踢球参数非法", ErrInvalid)
		}
	case *WorldState:
		for i := range m.Entities {
			if err := validateEntity(&m.Entities[i]); err != nil {
				return err
			}
		}
	case *GameEvent:
		return validateEvent(m)
	}
	return nil
}

func validateEntity(ent *EntityUpdate) error {
	if ent.Kind != core.KindPlayer && ent.Kind != core.KindBall {
		return fmt.Errorf("%w: 实体 %d 类型未知", ErrInvalid, ent.ID)
	}
	if !finiteVec(ent.Position) {
		return fmt.Errorf("%w: 实体 %d 位置非法", ErrInvalid, ent.ID)
	}
	if ent.HasVelocity && !finiteVec(ent.Velocity) {
		return fmt.Errorf("%w: 实体 %d 速度非法", ErrInvalid, ent.ID)
	}
	if ent.HasYaw && !finite(ent.Yaw) {
		return fmt.Errorf("%w: 实体 %d 朝向非法", ErrInvalid, ent.ID)
	}
	if ent.HasRotation {
		q := ent.Rotation
		if !finite(q.W) || !finiteVec(q.V) || q.Len() < 1e-6 {
			return fmt.Errorf("%w: 实体 %d 四元数非法", ErrInvalid, ent.ID)
		}
		ent.Rotation = q.Normalize()
	}
	return nil
}

func validateEvent(m *GameEvent) error {
	switch m.Kind {
	case EventKick:
		if m.Kick == nil || m.Goal != nil || m.Match != nil {
			return fmt.Errorf("%w: kick 事件负载不匹配", ErrInvalid)
		}
		if !finiteVec(m.Kick.Impulse) || !finiteVec(m.Kick.BallPosition) {
			return fmt.Errorf("%w: kick 事件数值非法", ErrInvalid)
		}
	case EventGoal:
		if m.Goal == nil || m.Kick != nil || m.Match != nil {
			return fmt.Errorf("%w: goal 事件负载不匹配", ErrInvalid)
		}
	case EventMatch:
		if m.Match == nil || m.Kick != nil || m.Goal != nil {
			return fmt.Errorf("%w: match 事件负载不匹配", ErrInvalid)
		}
		if !finite(m.Match.RemainingSeconds) {
			return fmt.Errorf("%w: match 事件数值非法", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: 未知事件种类 %d", ErrInvalid, m.Kind)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0], v[1], v[2])
}
