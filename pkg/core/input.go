package core

import "github.com/go-gl/mathgl/mgl64"

// Input 表示一帧内本地玩家的移动意图
// MoveX / MoveZ 取值 [-1, 1]
type Input struct {
	MoveX  float64
	MoveZ  float64
	Sprint bool
}

// IsIdle 没有任何移动意图
func (in Input) IsIdle() bool {
	return in.MoveX == 0 && in.MoveZ == 0
}

// Clamped 将两个轴限制在 [-1, 1]
func (in Input) Clamped() Input {
	in.MoveX = clampAxis(in.MoveX)
	in.MoveZ = clampAxis(in.MoveZ)
	return in
}

// Velocity 将输入换算为水平速度（米/秒）
func (in Input) Velocity() mgl64.Vec3 {
	dir := mgl64.Vec3{clampAxis(in.MoveX), 0, clampAxis(in.MoveZ)}
	if dir.Len() == 0 {
		return mgl64.Vec3{}
	}

	// 斜向移动时归一化，避免速度变快
	if dir.Len() > 1 {
		dir = dir.Normalize()
	}

	speed := PlayerWalkSpeed
	if in.Sprint {
		speed = PlayerSprintSpeed
	}
	return dir.Mul(speed)
}

// ApplyInput 以给定输入积分 dt 秒后的位置
func ApplyInput(pos mgl64.Vec3, input Input, dt float64) mgl64.Vec3 {
	if dt <= 0 {
		return pos
	}
	return pos.Add(input.Velocity().Mul(dt))
}

func clampAxis(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
