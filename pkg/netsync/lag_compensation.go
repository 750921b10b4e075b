package netsync

// EventType 离散游戏事件类型
type EventType string

const (
	EventKick  EventType = "kick"
	EventGoal  EventType = "goal"
	EventMatch EventType = "match"
)

// Event 事件日志条目
type Event[T any] struct {
	Type      EventType
	Data      T
	Timestamp int64
}

// LagCompensation 短时事件日志，用于把踢球、进球等事件与当时的状态对应起来
// 按时间淘汰，不按数量
type LagCompensation[T any] struct {
	events   []Event[T]
	windowMs int64
	maxAgeMs int64
	now      Clock
}

// NewLagCompensation 创建事件日志；参数 <= 0 时使用默认值
func NewLagCompensation[T any](windowMs, maxAgeMs int64, clock Clock) *LagCompensation[T] {
	if windowMs <= 0 {
		windowMs = DefaultEventWindowMs
	}
	if maxAgeMs <= 0 {
		maxAgeMs = DefaultEventMaxAgeMs
	}
	if clock == nil {
		clock = SystemClock
	}
	return &LagCompensation[T]{
		windowMs: windowMs,
		maxAgeMs: maxAgeMs,
		now:      clock,
	}
}

// AddEvent 追加事件
func (lc *LagCompensation[T]) AddEvent(eventType EventType, data T, timestamp int64) {
	lc.events = append(lc.events, Event[T]{
		Type:      eventType,
		Data:      data,
		Timestamp: timestamp,
	})
}

// NearestEvent 按插入顺序返回第一个落在窗口内的事件
// 多个事件命中时不保证是时间上最近的
func (lc *LagCompensation[T]) NearestEvent(timestamp int64) (Event[T], bool) {
	for _, e := range lc.events {
		if absInt64(e.Timestamp-timestamp) < lc.windowMs {
			return e, true
		}
	}
	return Event[T]{}, false
}

// Cleanup 丢弃早于 maxAgeMs 的事件；maxAgeMs <= 0 时使用配置值
func (lc *LagCompensation[T]) Cleanup(maxAgeMs int64) {
	if maxAgeMs <= 0 {
		maxAgeMs = lc.maxAgeMs
	}
	cutoff := lc.now() - maxAgeMs

	keep := lc.events[:0]
	for _, e := range lc.events {
		if e.Timestamp >= cutoff {
			keep = append(keep, e)
		}
	}
	// 释放被淘汰条目持有的负载引用
	var zero Event[T]
	for i := len(keep); i < len(lc.events); i++ {
		lc.events[i] = zero
	}
	lc.events = keep
}

// Len 当前事件数
func (lc *LagCompensation[T]) Len() int {
	return len(lc.events)
}
