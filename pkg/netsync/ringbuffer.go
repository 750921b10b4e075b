package netsync

// Historical 可放入 RingBuffer 的历史记录
type Historical interface {
	HistoryTick() uint32
	HistoryTimestamp() int64
}

// RingBuffer 固定容量的环形历史缓冲区（按 tick / 时间戳检索）
// 写满后静默覆盖最旧的记录
type RingBuffer[T Historical] struct {
	items []T
	head  int // 下一个写入位置
	size  int
}

// NewRingBuffer 创建环形缓冲区
func NewRingBuffer[T Historical](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &RingBuffer[T]{
		items: make([]T, capacity),
	}
}

// Push 追加一条记录
func (rb *RingBuffer[T]) Push(item T) {
	rb.items[rb.head] = item
	rb.head = (rb.head + 1) % len(rb.items)
	if rb.size < len(rb.items) {
		rb.size++
	}
}

// Get 返回比最新记录旧 index 个位置的记录（0 为最新）
func (rb *RingBuffer[T]) Get(index int) (T, bool) {
	var zero T
	if index < 0 || index >= rb.size {
		return zero, false
	}
	return rb.items[rb.slot(index)], true
}

// GetByTick 从新到旧查找 tick 完全匹配的记录
func (rb *RingBuffer[T]) GetByTick(tick uint32) (T, bool) {
	for i := 0; i < rb.size; i++ {
		item := rb.items[rb.slot(i)]
		if item.HistoryTick() == tick {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// GetByTimestamp 返回时间戳最接近的记录
// 距离相同时保留先扫描到的（即较新的）
func (rb *RingBuffer[T]) GetByTimestamp(timestamp int64) (T, bool) {
	var best T
	if rb.size == 0 {
		return best, false
	}

	bestDist := int64(-1)
	for i := 0; i < rb.size; i++ {
		item := rb.items[rb.slot(i)]
		dist := absInt64(item.HistoryTimestamp() - timestamp)
		if bestDist < 0 || dist < bestDist {
			best = item
			bestDist = dist
		}
	}
	return best, true
}

// Clear 清空（不释放底层存储）
func (rb *RingBuffer[T]) Clear() {
	rb.head = 0
	rb.size = 0
}

// Len 当前记录数
func (rb *RingBuffer[T]) Len() int {
	return rb.size
}

// Cap 固定容量
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.items)
}

// slot 第 index 新的记录在底层数组中的下标
func (rb *RingBuffer[T]) slot(index int) int {
	n := len(rb.items)
	return (rb.head - 1 - index + n) % n
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
