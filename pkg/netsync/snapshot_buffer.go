package netsync

// Snapshot 带时间戳的权威状态快照
type Snapshot struct {
	State     EntityState
	Timestamp int64
}

// SnapshotBuffer 远端实体插值缓冲
// 渲染时间固定滞后 bufferTime，把稀疏且不规则的快照流转换为连续状态
type SnapshotBuffer struct {
	snapshots  []Snapshot
	bufferTime int64
}

// NewSnapshotBuffer 创建插值缓冲器
func NewSnapshotBuffer(bufferTimeMs int64) *SnapshotBuffer {
	if bufferTimeMs <= 0 {
		bufferTimeMs = DefaultBufferTimeMs
	}
	return &SnapshotBuffer{
		snapshots:  make([]Snapshot, 0, MaxSnapshots),
		bufferTime: bufferTimeMs,
	}
}

// SetBufferTime 设置插值延迟（毫秒）
func (b *SnapshotBuffer) SetBufferTime(ms int64) {
	if ms < MinBufferTimeMs {
		ms = MinBufferTimeMs
	}
	if ms > MaxBufferTimeMs {
		ms = MaxBufferTimeMs
	}
	b.bufferTime = ms
}

// BufferTime 获取当前插值延迟（毫秒）
func (b *SnapshotBuffer) BufferTime() int64 {
	return b.bufferTime
}

// Add 追加快照（调用方保证时间戳不递减，不去重）
func (b *SnapshotBuffer) Add(state EntityState, timestamp int64) {
	b.snapshots = append(b.snapshots, Snapshot{State: state, Timestamp: timestamp})

	if len(b.snapshots) > MaxSnapshots {
		over := len(b.snapshots) - MaxSnapshots
		b.snapshots = append(b.snapshots[:0], b.snapshots[over:]...)
	}
}

// InterpolatedState 返回 now 对应的插值状态；缓冲为空时返回 false
func (b *SnapshotBuffer) InterpolatedState(now int64) (EntityState, bool) {
	renderTime := now - b.bufferTime

	// 只保留夹住 renderTime 的那一对
	drop := 0
	for len(b.snapshots)-drop >= 2 && b.snapshots[drop+1].Timestamp <= renderTime {
		drop++
	}
	if drop > 0 {
		b.snapshots = append(b.snapshots[:0], b.snapshots[drop:]...)
	}

	if len(b.snapshots) == 0 {
		return EntityState{}, false
	}

	first := b.snapshots[0]
	if len(b.snapshots) == 1 || first.Timestamp > renderTime {
		// 数据不足或渲染时刻早于最旧快照，不做外推
		return first.State, true
	}

	second := b.snapshots[1]
	span := second.Timestamp - first.Timestamp
	if span <= 0 {
		// 同一时刻合并送达的快照
		return first.State, true
	}

	alpha := float64(renderTime-first.Timestamp) / float64(span)
	return Interpolate(first.State, second.State, alpha), true
}

// Latest 最新收到的快照
func (b *SnapshotBuffer) Latest() (Snapshot, bool) {
	if len(b.snapshots) == 0 {
		return Snapshot{}, false
	}
	return b.snapshots[len(b.snapshots)-1], true
}

// Len 当前缓冲的快照数
func (b *SnapshotBuffer) Len() int {
	return len(b.snapshots)
}

// Clear 清空缓冲
func (b *SnapshotBuffer) Clear() {
	b.snapshots = b.snapshots[:0]
}
