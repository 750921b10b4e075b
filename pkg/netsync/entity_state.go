package netsync

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EntityState 实体权威状态（世界坐标，米）
// 可选字段用 HasXxx 标记是否存在
type EntityState struct {
	Tick      uint32
	Timestamp int64

	Position mgl64.Vec3

	Velocity    mgl64.Vec3
	HasVelocity bool

	Yaw    float64
	HasYaw bool

	Rotation    mgl64.Quat
	HasRotation bool
}

// HistoryTick 实现 Historical
func (s EntityState) HistoryTick() uint32 { return s.Tick }

// HistoryTimestamp 实现 Historical
func (s EntityState) HistoryTimestamp() int64 { return s.Timestamp }

// WithVelocity 返回带速度的副本
func (s EntityState) WithVelocity(v mgl64.Vec3) EntityState {
	s.Velocity = v
	s.HasVelocity = true
	return s
}

// WithRotation 返回带四元数朝向的副本
func (s EntityState) WithRotation(q mgl64.Quat) EntityState {
	s.Rotation = q
	s.HasRotation = true
	return s
}

// WithYaw 返回带偏航角的副本
func (s EntityState) WithYaw(yaw float64) EntityState {
	s.Yaw = yaw
	s.HasYaw = true
	return s
}

// Interpolate 在 a、b 之间插值
// 位置线性插值；两端都有四元数时球面插值；其余字段取自 a
func Interpolate(a, b EntityState, alpha float64) EntityState {
	alpha = clamp01(alpha)

	out := a
	out.Position = a.Position.Add(b.Position.Sub(a.Position).Mul(alpha))

	if a.HasRotation && b.HasRotation {
		out.Rotation = slerp(a.Rotation, b.Rotation, alpha)
	}
	return out
}

// slerp 沿最短弧做球面插值
func slerp(from, to mgl64.Quat, alpha float64) mgl64.Quat {
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	q := mgl64.QuatSlerp(from, to, alpha)
	if l := q.Len(); l == 0 || math.IsNaN(l) {
		return from
	}
	return q.Normalize()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
