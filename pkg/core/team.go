package core

// Team 队伍
type Team int

const (
	TeamNone Team = iota
	TeamHome      // 主队
	TeamAway      // 客队
)

// String 返回队伍的字符串表示
func (t Team) String() string {
	switch t {
	case TeamHome:
		return "主队"
	case TeamAway:
		return "客队"
	}
	return "未知"
}

// EntityKind 同步实体类型
type EntityKind int

const (
	KindPlayer EntityKind = iota
	KindBall
)

func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindBall:
		return "ball"
	}
	return "unknown"
}
