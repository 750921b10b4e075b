package core

// 球场尺寸（米），原点在中圈，x 为边线方向，z 为球门方向
const (
	PitchWidth  = 68.0
	PitchLength = 105.0
	GoalWidth   = 7.32
)

// 渲染帧率
const (
	FPS            = 60
	FixedDeltaTime = 1.0 / FPS
)

// 球员配置
const (
	PlayerRadius      = 0.4 // 碰撞半径（米）
	PlayerWalkSpeed   = 6.0 // 米/秒
	PlayerSprintSpeed = 9.0 // 米/秒
	BallRadius        = 0.11
)

// 射门配置
const (
	MaxKickPower = 30.0 // 冲量上限（牛·秒）
)
