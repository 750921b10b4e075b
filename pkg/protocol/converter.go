package protocol

import (
	"soccer/pkg/netsync"
)

// ========== 线上实体 -> 同步层状态 ==========

// ToEntityState 将 EntityUpdate 转换为 netsync.EntityState
func (u EntityUpdate) ToEntityState(tick uint32, timestamp int64) netsync.EntityState {
	state := netsync.EntityState{
		Tick:      tick,
		Timestamp: timestamp,
		Position:  u.Position,
	}
	if u.HasVelocity {
		state = state.WithVelocity(u.Velocity)
	}
	if u.HasYaw {
		state = state.WithYaw(u.Yaw)
	}
	if u.HasRotation {
		state = state.WithRotation(u.Rotation)
	}
	return state
}

// EventType 将事件种类转换为同步层事件类型
func (k EventKind) EventType() netsync.EventType {
	switch k {
	case EventKick:
		return netsync.EventKick
	case EventGoal:
		return netsync.EventGoal
	case EventMatch:
		return netsync.EventMatch
	}
	return netsync.EventType(k.String())
}
